package pyast

import (
	"errors"
	"strings"
	"unicode/utf8"

	"go.starlark.net/syntax"
)

// Skipped is a statement the Starlark grammar could not represent. It was
// replaced by "pass" or rewritten before the rest of the chunk was parsed.
type Skipped struct {
	Line    int
	Message string
}

// pythonOnly lists the tokens at which Starlark stops on valid Python. A parse
// error anywhere else is a real syntax error and is reported.
var pythonOnly = map[string]bool{
	"as": true, "assert": true, "async": true, "await": true, "class": true,
	"del": true, "else": true, "except": true, "finally": true, "from": true,
	"global": true, "import": true, "lambda": true, "nonlocal": true,
	"raise": true, "try": true, "with": true, "yield": true,
}

var pythonOnlyOps = []string{"**", "->", ":=", "...", "@", ":", "*", "'", `"`}

// parse parses the chunk, repairing statements that are valid Python but not
// Starlark until the parser succeeds. When a statement cannot be repaired its
// syntax error is returned.
func (s *source) parse(path string) (*syntax.File, []Skipped, error) {
	var (
		err      error
		skipped  []Skipped
		attempts = make(map[int]int)
	)
	for range 3*len(s.stmts) + 3 {
		var parsed *syntax.File
		parsed, err = syntax.Parse(path, s.bytes(), 0) //nolint:staticcheck // SA1019: legacy options accept while/top-level control
		if err == nil {
			restoreNames(parsed.Stmts)
			return parsed, skipped, nil
		}

		var serr syntax.Error
		if !errors.As(err, &serr) {
			break
		}
		li := int(serr.Pos.Line) - 1
		if li < 0 || li >= len(s.owner) || s.owner[li] < 0 {
			break
		}
		idx := s.owner[li]
		n := attempts[idx]
		if n == 0 && !s.recoverable(idx, li, int(serr.Pos.Col)) {
			break
		}
		if !s.repair(idx, n) {
			break
		}
		if n == 0 {
			skipped = append(skipped, Skipped{Line: s.stmts[idx].first + 1, Message: serr.Msg})
		}
		attempts[idx] = n + 1
	}
	return nil, nil, newParseError(path, err)
}

// recoverable reports whether the statement is well formed Python that failed
// at a construct Starlark lacks.
func (s *source) recoverable(idx, li, col int) bool {
	st := s.stmts[idx]
	if !st.balanced || !st.terminated {
		return false
	}
	if pythonOnly[firstWord(s.code[st.first])] {
		// assert is an identifier to Starlark, so it fails one token later.
		return true
	}

	line := s.lines[li]
	off := 0
	for n := 1; n < col && off < len(line); n++ {
		_, size := utf8.DecodeRune(line[off:])
		off += size
	}
	code := s.code[li]
	if off >= len(code) {
		return false
	}
	if code[off] == ' ' && line[off] != ' ' {
		// Inside a string literal.
		return true
	}
	tok := code[off:]
	if word := firstWord(tok); word != "" {
		if len(word) <= 2 && len(tok) > len(word) && (tok[len(word)] == '"' || tok[len(word)] == '\'') {
			// A prefixed string literal, e.g. an escape Starlark rejects.
			return true
		}
		return pythonOnly[word]
	}
	for _, op := range pythonOnlyOps {
		if strings.HasPrefix(tok, op) {
			return true
		}
	}
	return false
}

// repair rewrites statement idx for its nth failed attempt. Simple statements
// lose their annotation, then become "pass". Block headers become "if True:"
// (or a def without annotations), then a bare def, then the whole block
// becomes "pass".
func (s *source) repair(idx, n int) bool {
	st := s.stmts[idx]
	if !st.header {
		switch n {
		case 0:
			if !s.stripAnnotation(st) {
				s.setLine(st, "pass")
			}
		case 1:
			s.setLine(st, "pass")
		default:
			return false
		}
		return true
	}

	name, isDef := defName(s.code[st.first])
	switch {
	case n == 0 && isDef:
		s.stripDefAnnotations(st)
	case n == 0:
		s.setLine(st, "if True:")
	case n == 1 && isDef:
		s.setLine(st, "def "+name+"():")
	case n <= 2:
		s.blankBlock(idx)
	default:
		return false
	}
	return true
}

func defName(code string) (string, bool) {
	code = strings.TrimLeft(code, " \t")
	if rest, ok := strings.CutPrefix(code, "async"); ok && rest != "" && (rest[0] == ' ' || rest[0] == '\t') {
		code = strings.TrimLeft(rest, " \t")
	}
	rest, ok := strings.CutPrefix(code, "def")
	if !ok || rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", false
	}
	name := firstWord(rest)
	return name, name != ""
}

// blankBlock replaces a header and its indented body with "pass".
func (s *source) blankBlock(idx int) {
	st := s.stmts[idx]
	end := st.last
	for j := idx + 1; j < len(s.stmts) && len(s.stmts[j].indent) > len(st.indent); j++ {
		end = s.stmts[j].last
	}
	s.setLine(st, "pass")
	for li := st.last + 1; li <= end; li++ {
		s.lines[li] = nil
	}
}

type codePos struct {
	line, col int
	c         byte
	depth     int // bracket depth before c
}

func (s *source) positions(st stmt) []codePos {
	var out []codePos
	depth := 0
	for li := st.first; li <= st.last; li++ {
		code := s.code[li]
		for col := 0; col < len(code); col++ {
			c := code[col]
			if c == ' ' || c == '\t' || c == '\r' {
				continue
			}
			out = append(out, codePos{line: li, col: col, c: c, depth: depth})
			switch c {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				depth--
			}
		}
	}
	return out
}

// blank overwrites the code between two positions, end excluded.
func (s *source) blank(from, to codePos) {
	for li := from.line; li <= to.line; li++ {
		start, end := 0, len(s.lines[li])
		if li == from.line {
			start = from.col
		}
		if li == to.line {
			end = min(to.col, end)
		}
		for col := start; col < end; col++ {
			s.lines[li][col] = ' '
		}
	}
}

// stripAnnotation turns "x: T = v" into "x = v". It reports false when the
// statement has no annotation or no value.
func (s *source) stripAnnotation(st stmt) bool {
	pos := s.positions(st)
	colon := -1
	for i, p := range pos {
		if p.depth == 0 && p.c == ':' {
			colon = i
			break
		}
	}
	if colon < 0 {
		return false
	}
	for i := colon + 1; i < len(pos); i++ {
		if pos[i].depth == 0 && isAssign(pos, i) {
			s.blank(pos[colon], pos[i])
			return true
		}
	}
	return false
}

// stripDefAnnotations removes parameter and return annotations from a def
// header and drops a leading "async".
func (s *source) stripDefAnnotations(st stmt) {
	pos := s.positions(st)
	open := -1
	for i, p := range pos {
		if p.c == '(' && p.depth == 0 {
			open = i
			break
		}
	}
	if open >= 0 {
		i := open + 1
		for i < len(pos) && pos[i].depth > 0 {
			if pos[i].depth == 1 && pos[i].c == ':' {
				j := i + 1
				for j < len(pos) && pos[j].depth > 0 && !(pos[j].depth == 1 && (pos[j].c == ',' || pos[j].c == ')' || isAssign(pos, j))) {
					j++
				}
				if j < len(pos) {
					s.blank(pos[i], pos[j])
				}
				i = j
				continue
			}
			i++
		}
		for j := i; j+1 < len(pos); j++ {
			if pos[j].depth == 0 && pos[j].c == '-' && pos[j+1].c == '>' {
				s.blank(pos[j], pos[len(pos)-1])
				break
			}
		}
	}

	line := string(s.lines[st.first])
	trimmed := strings.TrimLeft(line, " \t")
	if rest, ok := strings.CutPrefix(trimmed, "async"); ok && rest != "" && (rest[0] == ' ' || rest[0] == '\t') {
		s.lines[st.first] = []byte(st.indent + strings.TrimLeft(rest, " \t"))
	}
}

// isAssign reports whether pos[i] is a lone "=" rather than part of ==, !=,
// <=, >= or :=.
func isAssign(pos []codePos, i int) bool {
	if pos[i].c != '=' {
		return false
	}
	if i+1 < len(pos) && pos[i+1].c == '=' && pos[i+1].line == pos[i].line && pos[i+1].col == pos[i].col+1 {
		return false
	}
	if i > 0 && pos[i-1].line == pos[i].line && pos[i-1].col == pos[i].col-1 && strings.IndexByte("=!<>:+-*/%&|^", pos[i-1].c) >= 0 {
		return false
	}
	return true
}

// restoreNames undoes the load rewrite in the parsed tree.
func restoreNames(stmts []syntax.Stmt) {
	for _, stmt := range stmts {
		syntax.Walk(stmt, func(n syntax.Node) bool {
			switch x := n.(type) {
			case *syntax.Ident:
				if x.Name == loadAlias {
					x.Name = "load"
				}
			case *syntax.DotExpr:
				if x.Name != nil && x.Name.Name == loadAlias {
					x.Name.Name = "load"
				}
			case *syntax.DefStmt:
				if x.Name != nil && x.Name.Name == loadAlias {
					x.Name.Name = "load"
				}
			}
			return true
		})
	}
}
