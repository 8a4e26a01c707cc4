// Package pyast is the Python-syntax front end of dslint.
//
// Data-science scripts are parsed with the Starlark grammar from
// go.starlark.net/syntax, which covers the expression and statement subset the
// checkers care about (assignments, calls, attribute chains, subscripts, literals,
// def/if/for bodies). A scanner runs first: it records import statements as
// name bindings and rewrites spellings Starlark rejects (the name load, is and
// is not, string prefixes) without moving any line. Statements that still fail
// on a Python-only construct (with, try, class, annotations, decorators, **)
// are reduced to "pass", so one such line does not hide the rest of the file.
//
// Parsing never executes anything; it only builds the AST, a scope index and the
// import table used by call-identity resolution.
package pyast

import (
	"errors"
	"fmt"
	"path/filepath"

	"go.starlark.net/syntax"
)

// File is a parsed source file together with its import table and scope index.
type File struct {
	Path    string
	Stmts   []syntax.Stmt
	Imports []Import
	Skipped []Skipped

	scopes *ScopeIndex
}

// Parse parses Python source text.
func Parse(filename string, src []byte) (*File, error) {
	f := &File{
		Path:   filename,
		scopes: newScopeIndex(),
	}
	if _, err := f.Append(src); err != nil {
		return nil, err
	}
	return f, nil
}

// Append parses another chunk of source into the file and returns the new
// statements. Earlier statements, their node identities and their bindings are
// left untouched, so a chunk can only add names that were not bound before.
// The interactive session uses this to grow one analysis unit line by line.
func (f *File) Append(src []byte) ([]syntax.Stmt, error) {
	s := newSource(src)

	parsed, skipped, err := s.parse(f.Path)
	if err != nil {
		return nil, err
	}

	f.Stmts = append(f.Stmts, parsed.Stmts...)
	f.Imports = append(f.Imports, s.imports...)
	f.Skipped = append(f.Skipped, skipped...)
	f.scopes.index(parsed.Stmts)
	return parsed.Stmts, nil
}

// Import returns the first import binding for name.
func (f *File) Import(name string) (Import, bool) {
	for _, imp := range f.Imports {
		if imp.Name == name {
			return imp, true
		}
	}
	return Import{}, false
}

// Module returns the module-level scope.
func (f *File) Module() *Scope {
	return f.scopes.module
}

// EnclosingScope returns the innermost scope that contains call.
// Calls the index has never seen are attributed to the module scope.
func (f *File) EnclosingScope(call *syntax.CallExpr) *Scope {
	if s, ok := f.scopes.byCall[call]; ok {
		return s
	}
	return f.scopes.module
}

// ParseError represents a syntax error in a source file.
type ParseError struct {
	File    string
	Line    int
	Col     int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d:%d: %s", filepath.Base(e.File), e.Line, e.Col, e.Message)
	}
	return "parse " + filepath.Base(e.File) + ": " + e.Message
}

func newParseError(file string, err error) *ParseError {
	var serr syntax.Error
	if errors.As(err, &serr) {
		return &ParseError{
			File:    file,
			Line:    int(serr.Pos.Line),
			Col:     int(serr.Pos.Col),
			Message: serr.Msg,
		}
	}
	return &ParseError{File: file, Message: err.Error()}
}
