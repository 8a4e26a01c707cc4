package pyast

import (
	"bytes"
	"sort"
	"strings"
)

// Byte classes of a scanned chunk.
const (
	kindCode byte = iota
	kindQuote
	kindString
	kindComment
)

// loadAlias stands in for the identifier "load", which Starlark reserves for its
// load statement. It has the same length so columns do not move.
const loadAlias = "_ld_"

// source is one chunk of Python text prepared for the Starlark parser. All
// rewrites keep line numbers, and all but import statements and repaired
// statements keep columns.
type source struct {
	lines   [][]byte // physical lines, rewritten in place
	code    []string // original lines with string bodies and comments blanked
	stmts   []stmt
	owner   []int // physical line to index in stmts, -1 for blank lines
	imports []Import
}

// stmt is one logical line: a physical line plus its continuation lines.
type stmt struct {
	first, last int
	indent      string
	balanced    bool // brackets close within the statement
	terminated  bool // every string literal is closed
	header      bool // ends with ':' and opens an indented block
	isImport    bool
}

type strSpan struct {
	prefix, quote int
}

func newSource(src []byte) *source {
	text := string(src)
	kind, spans, open := classify(text)

	view := []byte(text)
	for i, k := range kind {
		if (k == kindString || k == kindComment) && view[i] != '\n' {
			view[i] = ' '
		}
	}

	s := &source{code: strings.Split(string(view), "\n")}
	s.split(text, kind, open)

	out := []byte(text)
	s.rewrite(out, view, spans)
	for _, line := range bytes.Split(out, []byte("\n")) {
		s.lines = append(s.lines, line)
	}
	s.stripImports()
	return s
}

// classify marks every byte of src as code, string delimiter, string body or
// comment. It returns the string literals found and the offsets of strings
// that are never closed.
func classify(src string) ([]byte, []strSpan, []int) {
	kind := make([]byte, len(src))
	var spans []strSpan
	var open []int

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				kind[i] = kindComment
				i++
			}
		case c == '\'' || c == '"':
			p := prefixStart(src, i)
			for j := p; j < i; j++ {
				kind[j] = kindQuote
			}
			spans = append(spans, strSpan{prefix: p, quote: i})
			end, ok := scanString(src, i, kind)
			if !ok {
				open = append(open, i)
			}
			i = end
		default:
			kind[i] = kindCode
			i++
		}
	}
	return kind, spans, open
}

// scanString classifies the literal starting at the quote at i and returns the
// offset just past it.
func scanString(src string, i int, kind []byte) (int, bool) {
	delim := src[i : i+1]
	if strings.HasPrefix(src[i:], strings.Repeat(delim, 3)) {
		delim = src[i : i+3]
	}
	for k := range len(delim) {
		kind[i+k] = kindQuote
	}
	i += len(delim)

	for i < len(src) {
		switch c := src[i]; {
		case c == '\\':
			kind[i] = kindString
			if i+1 < len(src) {
				kind[i+1] = kindString
			}
			i += 2
			continue
		case c == '\n' && len(delim) == 1:
			return i, false
		case strings.HasPrefix(src[i:], delim):
			for k := range len(delim) {
				kind[i+k] = kindQuote
			}
			return i + len(delim), true
		}
		kind[i] = kindString
		i++
	}
	return len(src), false
}

// prefixStart returns the offset of the string prefix (r, b, u, f and their
// two-letter combinations) in front of the quote at q, or q when there is none.
func prefixStart(src string, q int) int {
	p := q
	for p > 0 && q-p < 2 && strings.IndexByte("rRbBuUfF", src[p-1]) >= 0 {
		p--
	}
	if p == q || (p > 0 && isIdentByte(src[p-1])) {
		return q
	}
	switch strings.ToLower(src[p:q]) {
	case "r", "u", "b", "f", "br", "rb", "fr", "rf":
		return p
	}
	return q
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 0x80 || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// split groups physical lines into logical statements.
func (s *source) split(text string, kind []byte, open []int) {
	raw := strings.Split(text, "\n")
	s.owner = make([]int, len(raw))

	unterminated := make(map[int]bool, len(open))
	for _, off := range open {
		unterminated[strings.Count(text[:off], "\n")] = true
	}

	cur, depth, offset := -1, 0, 0
	for li, line := range raw {
		code := s.code[li]
		nl := offset + len(line)
		offset = nl + 1

		if cur < 0 {
			if strings.TrimSpace(code) == "" {
				s.owner[li] = -1
				continue
			}
			cur = len(s.stmts)
			s.stmts = append(s.stmts, stmt{
				first:      li,
				indent:     line[:len(line)-len(strings.TrimLeft(line, " \t"))],
				balanced:   true,
				terminated: true,
			})
		}
		st := &s.stmts[cur]
		s.owner[li] = cur
		st.last = li
		if unterminated[li] {
			st.terminated = false
		}

		for i := 0; i < len(code); i++ {
			switch code[i] {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				if depth--; depth < 0 {
					st.balanced = false
					depth = 0
				}
			}
		}

		trimmed := strings.TrimRight(code, " \t\r")
		inString := nl < len(text) && kind[nl] == kindString
		if depth > 0 || inString || strings.HasSuffix(trimmed, "\\") {
			continue
		}
		st.header = strings.HasSuffix(trimmed, ":")
		switch firstWord(code) {
		case "import", "from":
			st.isImport = true
		}
		cur = -1
	}
	if cur >= 0 && depth > 0 {
		s.stmts[cur].balanced = false
	}
}

func firstWord(code string) string {
	code = strings.TrimLeft(code, " \t")
	n := 0
	for n < len(code) && isIdentByte(code[n]) {
		n++
	}
	return code[:n]
}

// rewrite replaces Python spellings Starlark rejects with ones of equal length:
// the identifier load, the is and is not operators, and string prefixes other
// than r and b. Import statements are left alone.
func (s *source) rewrite(out, view []byte, spans []strSpan) {
	starts := []int{0}
	for i, c := range view {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	lineOf := func(off int) int {
		return sort.SearchInts(starts, off+1) - 1
	}
	skip := func(off int) bool {
		li := lineOf(off)
		return s.owner[li] >= 0 && s.stmts[s.owner[li]].isImport
	}

	for i := 0; i < len(view); {
		c := view[i]
		if !isIdentByte(c) || ('0' <= c && c <= '9') {
			if '0' <= c && c <= '9' {
				for i < len(view) && isIdentByte(view[i]) {
					i++
				}
				continue
			}
			i++
			continue
		}
		start := i
		for i < len(view) && isIdentByte(view[i]) {
			i++
		}
		switch string(view[start:i]) {
		case "load":
			if !skip(start) {
				copy(out[start:], loadAlias)
			}
		case "is":
			if skip(start) {
				continue
			}
			next := i
			for next < len(view) && (view[next] == ' ' || view[next] == '\t') {
				next++
			}
			if bytes.HasPrefix(view[next:], []byte("not")) && (next+3 == len(view) || !isIdentByte(view[next+3])) {
				copy(out[start:], "!=")
				copy(out[next:], "   ")
				i = next + 3
				continue
			}
			copy(out[start:], "==")
		}
	}

	for _, sp := range spans {
		if sp.prefix == sp.quote || skip(sp.prefix) {
			continue
		}
		lineStart := starts[lineOf(sp.prefix)]
		atStart := len(bytes.TrimLeft(view[lineStart:sp.prefix], " \t")) == 0
		copy(out[sp.prefix:], rewritePrefix(string(out[sp.prefix:sp.quote]), atStart))
	}
}

// rewritePrefix maps a string prefix to one Starlark accepts. Formatted strings
// become a negated string so that they are never taken for constants.
func rewritePrefix(p string, atStart bool) string {
	lower := strings.ToLower(p)
	raw := strings.Contains(lower, "r")

	var keep string
	switch {
	case strings.Contains(lower, "f"):
		keep = "-"
		if raw {
			keep += "r"
		}
	case raw:
		keep = "r"
	case lower == "b":
		keep = p
	}
	if len(keep) == len(p) {
		return keep
	}
	fill := " "
	if atStart {
		fill = "+"
	}
	return fill + strings.Repeat(" ", len(p)-len(keep)-1) + keep
}

// stripImports records the names bound by import statements and replaces each
// statement with "pass", blanking its continuation lines.
func (s *source) stripImports() {
	for _, st := range s.stmts {
		if !st.isImport {
			continue
		}
		s.imports = append(s.imports, parseImport(strings.Join(s.code[st.first:st.last+1], " "), st.first+1)...)
		s.setLine(st, "pass")
	}
}

func (s *source) setLine(st stmt, text string) {
	s.lines[st.first] = []byte(st.indent + text)
	for li := st.first + 1; li <= st.last; li++ {
		s.lines[li] = nil
	}
}

func (s *source) bytes() []byte {
	return bytes.Join(s.lines, []byte("\n"))
}
