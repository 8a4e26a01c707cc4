// Package lint is a small rule framework for Python sources parsed by pyast.
//
// Rules are plain RuleDef values collected in an explicit Registry. For every
// file the Analyzer builds one Visitor per enabled rule, walks the file once in
// lexical order, and gathers the diagnostics the visitors report.
package lint

import (
	"fmt"
	"strings"

	"go.starlark.net/syntax"
)

// Severity indicates the importance of a diagnostic.
type Severity int

// Severity levels for diagnostics.
const (
	// SeverityError indicates a critical issue that should be fixed.
	SeverityError Severity = iota
	// SeverityWarning indicates a potential issue that should be reviewed.
	SeverityWarning
	// SeverityInfo indicates informational feedback.
	SeverityInfo
	// SeverityHint indicates a suggestion for improvement.
	SeverityHint
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a string to a Severity value.
// Returns the severity and true if valid, or SeverityWarning and false if invalid.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError, true
	case "warning":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	case "hint":
		return SeverityHint, true
	default:
		return SeverityWarning, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	sev, ok := ParseSeverity(string(b))
	if !ok {
		return fmt.Errorf("invalid severity %q", b)
	}
	*s = sev
	return nil
}

// AtLeast reports whether s is at least as severe as threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s <= threshold
}

// Position is a 1-based location in a source file.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// PositionOf converts a parser position.
func PositionOf(p syntax.Position) Position {
	return Position{Line: int(p.Line), Column: int(p.Col)}
}

// Diagnostic represents a lint finding.
type Diagnostic struct {
	RuleID   string   `json:"rule_id"`
	Symbol   string   `json:"symbol"` // rule name, e.g. "data-api-conflict"
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	File     string   `json:"file"`
	Pos      Position `json:"pos"`
	EndPos   Position `json:"end_pos,omitzero"` // Optional: end of the problematic range

	DocumentationURL string `json:"documentation_url,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%s: %s: %s (%s)", d.File, d.Pos, d.RuleID, d.Message, d.Symbol)
}
