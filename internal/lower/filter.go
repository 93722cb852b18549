package lower

import (
	"fmt"

	"github.com/atlekbai/query_lowering/internal/ir"
	"github.com/atlekbai/query_lowering/internal/wire"
)

// Condition lowers a where-clause item, or the trailing condition of a
// conditional aggregate, to a row filter.
func (c *Compiler) Condition(e ir.Expr) (wire.Filter, error) {
	switch n := e.(type) {
	case *ir.BooleanCondition:
		filters := make([]wire.Filter, 0, len(n.Conditions))
		for i, item := range n.Conditions {
			f, err := c.Condition(item)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", n.Op, i, err)
			}
			filters = append(filters, f)
		}
		switch n.Op {
		case ir.BoolAnd:
			return &wire.AndFilter{Filters: filters}, nil
		case ir.BoolOr:
			return &wire.OrFilter{Filters: filters}, nil
		default:
			return nil, &InvalidOperatorError{Op: string(n.Op)}
		}

	case *ir.Condition:
		return c.comparison(n)

	default:
		return nil, &UnsupportedExpressionError{Name: nodeName(e), Reason: "not a row condition"}
	}
}

func (c *Compiler) comparison(cond *ir.Condition) (wire.Filter, error) {
	switch lhs := cond.LHS.(type) {
	case *ir.FunctionCall:
		if err := checkFilterShape(lhs, cond); err != nil {
			return nil, err
		}
		return c.FunctionToFilter(lhs)

	case *ir.Column:
		op, err := lookup(Operators, cond.Op, invalidOperator)
		if err != nil {
			return nil, err
		}
		key, err := c.Key(lhs)
		if err != nil {
			return nil, err
		}
		val, err := EncodeLiteral(forKey(cond.RHS, key.Type))
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", lhs.Name, cond.Op, err)
		}
		return &wire.ComparisonFilter{Key: key, Op: op, Value: val}, nil

	default:
		return nil, &UnsupportedExpressionError{Name: nodeName(cond.LHS), Reason: "condition left-hand side must be a column or function"}
	}
}

// checkFilterShape enforces that a function used as a predicate is written fn(...) = 1.
func checkFilterShape(fn *ir.FunctionCall, cond *ir.Condition) error {
	if cond.Op == ir.OpEq && isIntOne(cond.RHS) {
		return nil
	}
	var rhs any
	if cond.RHS != nil {
		rhs = cond.RHS.Value
	}
	return &MalformedFilterShapeError{Function: fn.Name, Op: string(cond.Op), RHS: rhs}
}

// FunctionToFilter lowers a function call used as a row predicate.
func (c *Compiler) FunctionToFilter(fn *ir.FunctionCall) (wire.Filter, error) {
	switch fn.Name {
	case "and", "or":
		filters, err := c.filterParams(fn)
		if err != nil {
			return nil, err
		}
		if fn.Name == "and" {
			return &wire.AndFilter{Filters: filters}, nil
		}
		return &wire.OrFilter{Filters: filters}, nil

	case "exists":
		if len(fn.Parameters) != 1 {
			return nil, arityError(fn, 1)
		}
		col, ok := fn.Parameters[0].(*ir.Column)
		if !ok {
			return nil, &UnsupportedExpressionError{Name: fn.Name, Reason: "parameter must be a column"}
		}
		key, err := c.Key(col)
		if err != nil {
			return nil, err
		}
		return &wire.ExistsFilter{Key: key}, nil

	case "not":
		filters, err := c.filterParams(fn)
		if err != nil {
			return nil, err
		}
		return &wire.NotFilter{Filters: []wire.Filter{&wire.AndFilter{Filters: filters}}}, nil
	}

	op, err := lookup(FilterFuncs, fn.Name, func(name string) error {
		return &UnsupportedExpressionError{Name: name}
	})
	if err != nil {
		return nil, err
	}
	if len(fn.Parameters) != 2 {
		return nil, arityError(fn, 2)
	}
	col, ok := fn.Parameters[0].(*ir.Column)
	if !ok {
		return nil, &UnsupportedExpressionError{Name: fn.Name, Reason: "first parameter must be a column"}
	}
	lit, ok := fn.Parameters[1].(*ir.Literal)
	if !ok {
		return nil, &UnsupportedExpressionError{Name: fn.Name, Reason: "second parameter must be a literal"}
	}
	key, err := c.Key(col)
	if err != nil {
		return nil, err
	}
	val, err := EncodeLiteral(forKey(lit, key.Type))
	if err != nil {
		return nil, fmt.Errorf("%s(%s): %w", fn.Name, col.Name, err)
	}
	return &wire.ComparisonFilter{Key: key, Op: op, Value: val}, nil
}

// filterParams lowers the parameters of and/or/not in order. Nested calls are
// predicates themselves; anything else must be a condition.
func (c *Compiler) filterParams(fn *ir.FunctionCall) ([]wire.Filter, error) {
	filters := make([]wire.Filter, 0, len(fn.Parameters))
	for i, p := range fn.Parameters {
		var (
			f   wire.Filter
			err error
		)
		if call, ok := p.(*ir.FunctionCall); ok {
			f, err = c.FunctionToFilter(call)
		} else {
			f, err = c.Condition(p)
		}
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", fn.Name, i, err)
		}
		filters = append(filters, f)
	}
	return filters, nil
}
