package ir

// Expr is the interface all query expression nodes implement.
type Expr interface {
	expr() // marker method
}

// BoolExpr is an expression usable as a row or aggregate predicate:
// a *Condition or a *BooleanCondition.
type BoolExpr interface {
	Expr
	boolExpr()
}

// Column references a named attribute.
type Column struct {
	Name string
}

// Literal is a runtime-typed scalar or list value.
// Value holds bool, an integer kind, a float kind, string, nil, or a list of those.
type Literal struct {
	Value any
}

// FunctionCall represents name(param, param, ...).
type FunctionCall struct {
	Name       string
	Parameters []Expr
	Alias      string // optional result label
}

// Condition represents lhs op rhs.
type Condition struct {
	LHS Expr
	Op  Operator
	RHS *Literal
}

// BooleanCondition joins nested conditions with AND or OR.
type BooleanCondition struct {
	Op         BooleanOp
	Conditions []BoolExpr
}

func (*Column) expr()           {}
func (*Literal) expr()          {}
func (*FunctionCall) expr()     {}
func (*Condition) expr()        {}
func (*BooleanCondition) expr() {}

func (*Condition) boolExpr()        {}
func (*BooleanCondition) boolExpr() {}

// --- Constructors ---

// Col returns a column reference.
func Col(name string) *Column {
	return &Column{Name: name}
}

// Lit wraps a Go value as a literal.
func Lit(v any) *Literal {
	return &Literal{Value: v}
}

// Fn returns a function call with the given parameters.
func Fn(name string, params ...Expr) *FunctionCall {
	return &FunctionCall{Name: name, Parameters: params}
}

// As returns a copy of the call carrying alias.
func (f *FunctionCall) As(alias string) *FunctionCall {
	cp := *f
	cp.Alias = alias
	return &cp
}

// Cond returns lhs op rhs, wrapping rhs with Lit.
func Cond(lhs Expr, op Operator, rhs any) *Condition {
	return &Condition{LHS: lhs, Op: op, RHS: Lit(rhs)}
}

// And joins conditions with AND.
func And(conds ...BoolExpr) *BooleanCondition {
	return &BooleanCondition{Op: BoolAnd, Conditions: conds}
}

// Or joins conditions with OR.
func Or(conds ...BoolExpr) *BooleanCondition {
	return &BooleanCondition{Op: BoolOr, Conditions: conds}
}
