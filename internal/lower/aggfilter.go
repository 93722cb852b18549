package lower

import (
	"fmt"

	"github.com/atlekbai/query_lowering/internal/ir"
	"github.com/atlekbai/query_lowering/internal/wire"
)

// AggCondition lowers a having-clause item to an aggregation filter.
func (c *Compiler) AggCondition(e ir.Expr) (wire.AggregationFilter, error) {
	switch n := e.(type) {
	case *ir.BooleanCondition:
		filters := make([]wire.AggregationFilter, 0, len(n.Conditions))
		for i, item := range n.Conditions {
			f, err := c.AggCondition(item)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", n.Op, i, err)
			}
			filters = append(filters, f)
		}
		switch n.Op {
		case ir.BoolAnd:
			return &wire.AggregationAndFilter{Filters: filters}, nil
		case ir.BoolOr:
			return &wire.AggregationOrFilter{Filters: filters}, nil
		default:
			return nil, &InvalidOperatorError{Op: string(n.Op)}
		}

	case *ir.Condition:
		fn, ok := n.LHS.(*ir.FunctionCall)
		if !ok {
			return nil, &UnsupportedExpressionError{Name: nodeName(n.LHS), Reason: "having condition must compare a function"}
		}
		if isAggregate(fn.Name) {
			return c.aggComparison(fn, n.Op, n.RHS)
		}
		if !isAggPredicate(fn.Name) {
			return nil, &UnsupportedExpressionError{Name: fn.Name}
		}
		if err := checkFilterShape(fn, n); err != nil {
			return nil, err
		}
		return c.AggFunctionToFilter(fn)

	default:
		return nil, &UnsupportedExpressionError{Name: nodeName(e), Reason: "not an aggregation condition"}
	}
}

// AggFunctionToFilter lowers a function call used as an aggregation predicate:
// and/or over nested predicates, or a comparison function over an aggregate
// and a numeric threshold.
func (c *Compiler) AggFunctionToFilter(fn *ir.FunctionCall) (wire.AggregationFilter, error) {
	if fn.Name == "and" || fn.Name == "or" {
		filters := make([]wire.AggregationFilter, 0, len(fn.Parameters))
		for i, p := range fn.Parameters {
			var (
				f   wire.AggregationFilter
				err error
			)
			if call, ok := p.(*ir.FunctionCall); ok {
				f, err = c.AggFunctionToFilter(call)
			} else {
				f, err = c.AggCondition(p)
			}
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", fn.Name, i, err)
			}
			filters = append(filters, f)
		}
		if fn.Name == "and" {
			return &wire.AggregationAndFilter{Filters: filters}, nil
		}
		return &wire.AggregationOrFilter{Filters: filters}, nil
	}

	op, err := lookup(AggregationFilterFuncs, fn.Name, func(name string) error {
		return &UnsupportedExpressionError{Name: name}
	})
	if err != nil {
		return nil, err
	}
	if len(fn.Parameters) != 2 {
		return nil, arityError(fn, 2)
	}
	inner, ok := fn.Parameters[0].(*ir.FunctionCall)
	if !ok || !isAggregate(inner.Name) {
		return nil, &UnsupportedExpressionError{Name: fn.Name, Reason: "first parameter must be an aggregate call"}
	}
	lit, ok := fn.Parameters[1].(*ir.Literal)
	if !ok {
		return nil, &UnsupportedExpressionError{Name: fn.Name, Reason: "second parameter must be a literal"}
	}
	val, err := threshold(lit)
	if err != nil {
		return nil, err
	}
	agg, err := c.aggregate(inner)
	if err != nil {
		return nil, err
	}
	return &wire.AggregationComparisonFilter{Op: op, Val: val, Aggregation: agg}, nil
}

func (c *Compiler) aggComparison(fn *ir.FunctionCall, irOp ir.Operator, rhs *ir.Literal) (wire.AggregationFilter, error) {
	op, err := lookup(AggregationOperators, irOp, invalidOperator)
	if err != nil {
		return nil, err
	}
	val, err := threshold(rhs)
	if err != nil {
		return nil, err
	}
	agg, err := c.aggregate(fn)
	if err != nil {
		return nil, err
	}
	return &wire.AggregationComparisonFilter{Op: op, Val: val, Aggregation: agg}, nil
}

func isAggPredicate(name string) bool {
	if name == "and" || name == "or" {
		return true
	}
	_, ok := AggregationFilterFuncs[name]
	return ok
}
