package loader

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/dslint/pkg/pyast"
	"go.starlark.net/syntax"
)

// ArgError reports a loader argument that is missing, non-literal or of the
// wrong type.
type ArgError struct {
	Name   string
	Reason string
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("argument %s: %s", e.Name, e.Reason)
}

// CallArgs are the literal values of a call's arguments.
type CallArgs struct {
	Positional []any
	Keywords   map[string]any
}

// EvalArgs evaluates every argument of call as a literal. Any non-literal
// argument, or a *args/**kwargs splat, fails the whole call.
func EvalArgs(call *syntax.CallExpr) (CallArgs, error) {
	split := pyast.SplitArgs(call)
	if split.Star != nil || split.StarStar != nil {
		return CallArgs{}, &ArgError{Name: "*", Reason: "star arguments cannot be evaluated statically"}
	}

	out := CallArgs{Keywords: make(map[string]any, len(split.Keywords))}
	for i, e := range split.Positional {
		v, err := pyast.Literal(e)
		if err != nil {
			return CallArgs{}, &ArgError{Name: fmt.Sprintf("#%d", i), Reason: err.Error()}
		}
		out.Positional = append(out.Positional, v)
	}
	for _, kw := range split.Keywords {
		if _, dup := out.Keywords[kw.Name]; dup {
			return CallArgs{}, &ArgError{Name: kw.Name, Reason: "given twice"}
		}
		v, err := pyast.Literal(kw.Value)
		if err != nil {
			return CallArgs{}, &ArgError{Name: kw.Name, Reason: err.Error()}
		}
		out.Keywords[kw.Name] = v
	}
	return out, nil
}

// Bind maps the arguments onto params: keywords by name, positionals by order.
// A parameter given both ways is an error.
func (a CallArgs) Bind(params ...string) (map[string]any, error) {
	bound := make(map[string]any, len(a.Keywords)+len(a.Positional))
	for k, v := range a.Keywords {
		bound[k] = v
	}
	for i, v := range a.Positional {
		if i >= len(params) {
			return nil, &ArgError{Name: fmt.Sprintf("#%d", i), Reason: "too many positional arguments"}
		}
		if _, dup := bound[params[i]]; dup {
			return nil, &ArgError{Name: params[i], Reason: "given both positionally and by keyword"}
		}
		bound[params[i]] = v
	}
	return bound, nil
}

func stringArg(bound map[string]any, name string) (string, bool, error) {
	v, ok := bound[name]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, &ArgError{Name: name, Reason: fmt.Sprintf("want string, got %T", v)}
	}
	return s, true, nil
}

func requiredString(bound map[string]any, name string) (string, error) {
	s, ok, err := stringArg(bound, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &ArgError{Name: name, Reason: "required"}
	}
	return s, nil
}

func intArg(bound map[string]any, name string) (int, bool, error) {
	v, ok := bound[name]
	if !ok || v == nil {
		return 0, false, nil
	}
	n, ok := v.(int64)
	if !ok || n < 0 {
		return 0, false, &ArgError{Name: name, Reason: fmt.Sprintf("want non-negative int, got %v", v)}
	}
	return int(n), true, nil
}

func stringsArg(bound map[string]any, name string) ([]string, error) {
	v, ok := bound[name]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &ArgError{Name: name, Reason: fmt.Sprintf("want list of column names, got %T", v)}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, &ArgError{Name: name, Reason: "only column names are supported"}
		}
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out, nil
}

// ignored lists bound arguments not in known.
func ignored(bound map[string]any, known ...string) []string {
	var out []string
	for k := range bound {
		if !slices.Contains(known, k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
