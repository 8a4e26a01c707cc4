package pyast

import (
	"fmt"
	"math/big"
	"strings"

	"go.starlark.net/syntax"
)

// LiteralError is returned when an expression is not a constant primitive.
type LiteralError struct {
	Expr syntax.Expr
}

func (e *LiteralError) Error() string {
	start, _ := e.Expr.Span()
	return fmt.Sprintf("%s: expression %s is not a literal", start, Describe(e.Expr))
}

// Literal evaluates a constant primitive expression: strings, bytes, ints,
// floats, True/False/None, a unary sign on a number, and lists or tuples of
// literals. Values are returned as string, int64, *big.Int, float64, bool, nil
// or []any.
func Literal(e syntax.Expr) (any, error) {
	switch x := unparen(e).(type) {
	case *syntax.Literal:
		return x.Value, nil

	case *syntax.Ident:
		switch x.Name {
		case "True":
			return true, nil
		case "False":
			return false, nil
		case "None":
			return nil, nil
		}

	case *syntax.UnaryExpr:
		if x.Op != syntax.MINUS && x.Op != syntax.PLUS {
			break
		}
		v, err := Literal(x.X)
		if err != nil {
			return nil, &LiteralError{Expr: e}
		}
		if x.Op == syntax.PLUS {
			return v, nil
		}
		switch n := v.(type) {
		case int64:
			return -n, nil
		case float64:
			return -n, nil
		case *big.Int:
			return new(big.Int).Neg(n), nil
		}

	case *syntax.ListExpr:
		return literalList(e, x.List)

	case *syntax.TupleExpr:
		return literalList(e, x.List)
	}

	return nil, &LiteralError{Expr: e}
}

func literalList(e syntax.Expr, elts []syntax.Expr) ([]any, error) {
	out := make([]any, 0, len(elts))
	for _, elt := range elts {
		v, err := Literal(elt)
		if err != nil {
			return nil, &LiteralError{Expr: e}
		}
		out = append(out, v)
	}
	return out, nil
}

// StringList evaluates a list literal whose elements are all strings,
// e.g. the column selector of df[["a", "b"]].
func StringList(e syntax.Expr) ([]string, error) {
	list, ok := unparen(e).(*syntax.ListExpr)
	if !ok {
		return nil, &LiteralError{Expr: e}
	}
	out := make([]string, 0, len(list.List))
	for _, elt := range list.List {
		v, err := Literal(elt)
		if err != nil {
			return nil, err
		}
		s, ok := v.(string)
		if !ok {
			return nil, &LiteralError{Expr: elt}
		}
		out = append(out, s)
	}
	return out, nil
}

// Keyword is a name=value argument at a call site.
type Keyword struct {
	Name  string
	Value syntax.Expr
}

// Args is the argument list of a call split by kind.
type Args struct {
	Positional []syntax.Expr
	Keywords   []Keyword
	Star       syntax.Expr // *args, if present
	StarStar   syntax.Expr // **kwargs, if present
}

// Keyword returns the value of the named keyword argument.
func (a Args) Keyword(name string) (syntax.Expr, bool) {
	for _, kw := range a.Keywords {
		if kw.Name == name {
			return kw.Value, true
		}
	}
	return nil, false
}

// SplitArgs splits the arguments of call into positional, keyword and star
// arguments.
func SplitArgs(call *syntax.CallExpr) Args {
	var args Args
	for _, arg := range call.Args {
		switch a := arg.(type) {
		case *syntax.BinaryExpr:
			if id, ok := a.X.(*syntax.Ident); ok && a.Op == syntax.EQ {
				args.Keywords = append(args.Keywords, Keyword{Name: id.Name, Value: a.Y})
				continue
			}
		case *syntax.UnaryExpr:
			switch a.Op {
			case syntax.STAR:
				args.Star = a.X
				continue
			case syntax.STARSTAR:
				args.StarStar = a.X
				continue
			}
		}
		args.Positional = append(args.Positional, arg)
	}
	return args
}

// Unparen strips any enclosing parentheses.
func Unparen(e syntax.Expr) syntax.Expr {
	return unparen(e)
}

// Describe renders a short source-like form of an expression for log and
// diagnostic messages.
func Describe(e syntax.Expr) string {
	switch x := e.(type) {
	case *syntax.Ident:
		return x.Name
	case *syntax.Literal:
		return x.Raw
	case *syntax.DotExpr:
		return Describe(x.X) + "." + x.Name.Name
	case *syntax.CallExpr:
		return Describe(x.Fn) + "(...)"
	case *syntax.IndexExpr:
		return Describe(x.X) + "[" + Describe(x.Y) + "]"
	case *syntax.ParenExpr:
		return "(" + Describe(x.X) + ")"
	case *syntax.ListExpr:
		parts := make([]string, len(x.List))
		for i, elt := range x.List {
			parts[i] = Describe(elt)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("<%T>", e)
	}
}
