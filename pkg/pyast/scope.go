package pyast

import "go.starlark.net/syntax"

// Binding is the first binding of a name within one scope.
type Binding struct {
	Name string
	// Value is the right-hand side of a plain "name = value" assignment.
	// It is nil for parameters, loop variables, def names, augmented
	// assignments and unpacked targets.
	Value syntax.Expr
	Pos   syntax.Position
}

// Scope is a lexical unit: the module or one def body. Names assigned anywhere in
// a def body belong to that def, as in Python; if/for/while bodies do not open
// scopes of their own.
type Scope struct {
	parent *Scope
	def    *syntax.DefStmt // nil for the module scope

	first map[string]Binding
	order []string
}

func newScope(parent *Scope, def *syntax.DefStmt) *Scope {
	return &Scope{
		parent: parent,
		def:    def,
		first:  make(map[string]Binding),
	}
}

// Parent returns the enclosing scope, or nil for the module scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Name returns "<module>" or the name of the def that owns the scope.
func (s *Scope) Name() string {
	if s.def == nil {
		return "<module>"
	}
	return s.def.Name.Name
}

// Local returns the first binding of name in this scope only.
func (s *Scope) Local(name string) (Binding, bool) {
	b, ok := s.first[name]
	return b, ok
}

// Lookup searches for name from this scope outward and returns the first
// binding in the innermost scope that binds it. Only one candidate per name is
// considered; later rebindings in the same scope are ignored.
func (s *Scope) Lookup(name string) (Binding, *Scope, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.first[name]; ok {
			return b, cur, true
		}
	}
	return Binding{}, nil, false
}

// Names returns the names bound in this scope in first-binding order.
func (s *Scope) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Scope) bind(name string, value syntax.Expr, pos syntax.Position) {
	if _, ok := s.first[name]; ok {
		return
	}
	s.first[name] = Binding{Name: name, Value: value, Pos: pos}
	s.order = append(s.order, name)
}

func (s *Scope) bindTargets(lhs, rhs syntax.Expr) {
	switch t := lhs.(type) {
	case *syntax.Ident:
		s.bind(t.Name, rhs, t.NamePos)
	case *syntax.ParenExpr:
		s.bindTargets(t.X, rhs)
	case *syntax.TupleExpr:
		for _, elt := range t.List {
			s.bindTargets(elt, nil)
		}
	case *syntax.ListExpr:
		for _, elt := range t.List {
			s.bindTargets(elt, nil)
		}
	}
}

// ScopeIndex maps defs and call expressions to their scopes.
type ScopeIndex struct {
	module *Scope
	byDef  map[*syntax.DefStmt]*Scope
	byCall map[*syntax.CallExpr]*Scope
}

func newScopeIndex() *ScopeIndex {
	return &ScopeIndex{
		module: newScope(nil, nil),
		byDef:  make(map[*syntax.DefStmt]*Scope),
		byCall: make(map[*syntax.CallExpr]*Scope),
	}
}

func (ix *ScopeIndex) index(stmts []syntax.Stmt) {
	ix.indexStmts(ix.module, stmts)
}

func (ix *ScopeIndex) indexStmts(s *Scope, stmts []syntax.Stmt) {
	for _, stmt := range stmts {
		switch st := stmt.(type) {
		case *syntax.AssignStmt:
			if st.Op == syntax.EQ {
				s.bindTargets(st.LHS, unparen(st.RHS))
			} else if id, ok := st.LHS.(*syntax.Ident); ok {
				s.bind(id.Name, nil, id.NamePos)
			}
			ix.indexExprs(s, st.LHS, st.RHS)

		case *syntax.DefStmt:
			s.bind(st.Name.Name, nil, st.Name.NamePos)
			child := newScope(s, st)
			ix.byDef[st] = child
			for _, param := range st.Params {
				ix.bindParam(s, child, param)
			}
			ix.indexStmts(child, st.Body)

		case *syntax.IfStmt:
			ix.indexExprs(s, st.Cond)
			ix.indexStmts(s, st.True)
			ix.indexStmts(s, st.False)

		case *syntax.ForStmt:
			s.bindTargets(st.Vars, nil)
			ix.indexExprs(s, st.Vars, st.X)
			ix.indexStmts(s, st.Body)

		case *syntax.WhileStmt:
			ix.indexExprs(s, st.Cond)
			ix.indexStmts(s, st.Body)

		case *syntax.ExprStmt:
			ix.indexExprs(s, st.X)

		case *syntax.ReturnStmt:
			ix.indexExprs(s, st.Result)
		}
	}
}

// bindParam binds a parameter in the def scope. Default values are evaluated in
// the enclosing scope.
func (ix *ScopeIndex) bindParam(outer, inner *Scope, param syntax.Expr) {
	switch p := param.(type) {
	case *syntax.Ident:
		inner.bind(p.Name, nil, p.NamePos)
	case *syntax.BinaryExpr:
		if id, ok := p.X.(*syntax.Ident); ok && p.Op == syntax.EQ {
			inner.bind(id.Name, nil, id.NamePos)
			ix.indexExprs(outer, p.Y)
		}
	case *syntax.UnaryExpr:
		if id, ok := p.X.(*syntax.Ident); ok {
			inner.bind(id.Name, nil, id.NamePos)
		}
	}
}

func (ix *ScopeIndex) indexExprs(s *Scope, exprs ...syntax.Expr) {
	for _, e := range exprs {
		if e == nil {
			continue
		}
		syntax.Walk(e, func(n syntax.Node) bool {
			if call, ok := n.(*syntax.CallExpr); ok {
				ix.byCall[call] = s
			}
			return true
		})
	}
}

func unparen(e syntax.Expr) syntax.Expr {
	for {
		p, ok := e.(*syntax.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}
