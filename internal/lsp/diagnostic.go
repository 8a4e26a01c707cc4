package lsp

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dslint/pkg/lint"
	"github.com/leapstack-labs/dslint/pkg/lint/rules/data"
	"github.com/leapstack-labs/dslint/pkg/pyast"
	"github.com/leapstack-labs/dslint/pkg/tracker"
)

const (
	diagnosticSource = "dslint"

	// SyntaxErrorCode marks diagnostics for source that does not parse.
	SyntaxErrorCode = "E0001"
)

func isPython(uri string) bool {
	return strings.HasSuffix(uri, ".py")
}

// publishDiagnostics analyzes the document and publishes the result.
// Documents that are not Python get an empty list.
func (s *Server) publishDiagnostics(ctx context.Context, uri string) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return
	}

	diagnostics := []Diagnostic{}
	if isPython(uri) {
		diags, bindings := s.analyze(ctx, doc)
		s.documents.SetAnalysis(uri, doc.Version, diags, bindings)
		for _, d := range diags {
			diagnostics = append(diagnostics, toProtocol(doc, d))
		}
	}

	version := doc.Version
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: diagnostics,
	})
}

// analyze lints doc. A file whose analysis fails reports no diagnostics;
// the failure is logged and shown to the user.
func (s *Server) analyze(ctx context.Context, doc *Document) ([]lint.Diagnostic, []*tracker.Binding) {
	path := URIToPath(doc.URI)
	file, err := pyast.Parse(path, []byte(doc.Content))
	var perr *pyast.ParseError
	if errors.As(err, &perr) {
		return []lint.Diagnostic{{
			RuleID:   SyntaxErrorCode,
			Symbol:   "syntax-error",
			Severity: lint.SeverityError,
			Message:  perr.Message,
			File:     path,
			Pos:      lint.Position{Line: perr.Line, Column: perr.Col},
		}}, nil
	}
	if err != nil {
		s.logger.Error("parse failed", slog.String("path", path), slog.Any("error", err))
		return nil, nil
	}

	unit, err := s.analyzer.NewUnit(file)
	if err != nil {
		s.reportFailure(path, err)
		return nil, nil
	}
	diags, err := unit.Run(ctx, file.Stmts)
	if err != nil {
		s.reportFailure(path, err)
		return nil, nil
	}

	var bindings []*tracker.Binding
	for _, v := range unit.Visitors() {
		if lister, ok := v.(data.BindingLister); ok {
			bindings = append(bindings, lister.Bindings()...)
		}
	}
	return diags, bindings
}

func (s *Server) reportFailure(path string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	s.logger.Error("analysis failed", slog.String("path", path), slog.Any("error", err))
	s.sendNotification("window/showMessage", &ShowMessageParams{
		Type:    MessageTypeError,
		Message: "dslint: " + err.Error(),
	})
}

// toProtocol converts a 1-based lint diagnostic to a 0-based LSP one. A
// diagnostic without an end position covers the rest of its line.
func toProtocol(doc *Document, d lint.Diagnostic) Diagnostic {
	start := toPosition(d.Pos)
	end := Position{Line: start.Line, Character: uint32(len(doc.GetLine(int(start.Line))))}
	if d.EndPos.IsValid() {
		end = toPosition(d.EndPos)
	}
	if end.Line < start.Line || (end.Line == start.Line && end.Character < start.Character) {
		end = start
	}

	out := Diagnostic{
		Range:    Range{Start: start, End: end},
		Severity: toSeverity(d.Severity),
		Code:     d.RuleID,
		Source:   diagnosticSource,
		Message:  d.Message,
	}
	if d.DocumentationURL != "" {
		out.CodeDescription = &CodeDescription{Href: d.DocumentationURL}
	}
	return out
}

func toPosition(p lint.Position) Position {
	return Position{
		Line:      uint32(max(p.Line-1, 0)),
		Character: uint32(max(p.Column-1, 0)),
	}
}

func toSeverity(sev lint.Severity) DiagnosticSeverity {
	switch sev {
	case lint.SeverityError:
		return DiagnosticSeverityError
	case lint.SeverityWarning:
		return DiagnosticSeverityWarning
	case lint.SeverityInfo:
		return DiagnosticSeverityInformation
	default:
		return DiagnosticSeverityHint
	}
}
