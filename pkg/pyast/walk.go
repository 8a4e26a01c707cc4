package pyast

import "go.starlark.net/syntax"

// VisitFunc receives assignment statements and call expressions during a walk,
// together with the scope that encloses them. Returning an error stops the walk.
type VisitFunc func(node syntax.Node, scope *Scope) error

// Walk visits every *syntax.AssignStmt and *syntax.CallExpr of the file in
// lexical order. An assignment is reported before the calls on its right-hand
// side, and nested calls after the call that contains them.
func (f *File) Walk(fn VisitFunc) error {
	return f.WalkStmts(f.Stmts, fn)
}

// WalkStmts is Walk restricted to the given top-level statements of the file.
func (f *File) WalkStmts(stmts []syntax.Stmt, fn VisitFunc) error {
	for _, stmt := range stmts {
		if err := f.walkStmt(stmt, fn); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) walkStmt(stmt syntax.Stmt, fn VisitFunc) error {
	scope := f.scopes.module
	var stack []syntax.Node
	var werr error

	syntax.Walk(stmt, func(n syntax.Node) bool {
		if n == nil {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, ok := top.(*syntax.DefStmt); ok {
				scope = scope.Parent()
			}
			return false
		}
		if werr != nil {
			return false
		}

		switch node := n.(type) {
		case *syntax.DefStmt:
			if s, ok := f.scopes.byDef[node]; ok {
				scope = s
			} else {
				scope = newScope(scope, node)
			}
		case *syntax.AssignStmt:
			werr = fn(node, scope)
		case *syntax.CallExpr:
			werr = fn(node, scope)
		}
		if werr != nil {
			return false
		}

		stack = append(stack, n)
		return true
	})

	return werr
}
