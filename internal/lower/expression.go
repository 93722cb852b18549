package lower

import (
	"fmt"

	"github.com/atlekbai/query_lowering/internal/ir"
	"github.com/atlekbai/query_lowering/internal/wire"
)

// Expression lowers a select-list, group-by or order-by expression to a column.
func (c *Compiler) Expression(e ir.Expr) (wire.Column, error) {
	switch n := e.(type) {
	case *ir.Column:
		key, err := c.Key(n)
		if err != nil {
			return wire.Column{}, err
		}
		return wire.Column{Label: n.Name, Expr: key}, nil

	case *ir.FunctionCall:
		return c.function(n)

	case *ir.Literal:
		f, ok := numeric(n)
		if !ok {
			return wire.Column{}, &UnsupportedExpressionError{Name: "literal", Reason: fmt.Sprintf("%T is not numeric", n.Value)}
		}
		if !finite(f) {
			return wire.Column{}, &InvalidLiteralError{Reason: ReasonNonFinite}
		}
		return wire.Column{Expr: wire.Literal{ValDouble: f}}, nil

	default:
		return wire.Column{}, &UnsupportedExpressionError{Name: nodeName(e), Reason: "not a column expression"}
	}
}

// function dispatches a call in order: arithmetic, plain aggregate,
// conditional aggregate.
func (c *Compiler) function(fn *ir.FunctionCall) (wire.Column, error) {
	if op, ok := FormulaOps[fn.Name]; ok {
		if len(fn.Parameters) != 2 {
			return wire.Column{}, arityError(fn, 2)
		}
		left, err := c.Expression(fn.Parameters[0])
		if err != nil {
			return wire.Column{}, fmt.Errorf("%s arg 1: %w", fn.Name, err)
		}
		right, err := c.Expression(fn.Parameters[1])
		if err != nil {
			return wire.Column{}, fmt.Errorf("%s arg 2: %w", fn.Name, err)
		}
		return wire.Column{
			Label: fn.Alias,
			Expr:  &wire.BinaryFormula{Op: op, Left: left, Right: right},
		}, nil
	}

	agg, err := c.aggregate(fn)
	if err != nil {
		return wire.Column{}, err
	}
	return wire.Column{Label: fn.Alias, Expr: agg}, nil
}

// aggregate lowers a plain or conditional aggregate call.
func (c *Compiler) aggregate(fn *ir.FunctionCall) (wire.AggregationExpr, error) {
	if f, ok := AggregateFuncs[fn.Name]; ok {
		if len(fn.Parameters) != 1 {
			return nil, arityError(fn, 1)
		}
		key, err := c.aggregateKey(fn, fn.Parameters[0])
		if err != nil {
			return nil, err
		}
		return &wire.Aggregation{
			Aggregate:         f,
			Key:               key,
			Label:             fn.Alias,
			ExtrapolationMode: c.extrapolationMode(),
		}, nil
	}

	if f, ok := ConditionalAggregateFuncs[fn.Name]; ok {
		if len(fn.Parameters) != 2 {
			return nil, arityError(fn, 2)
		}
		key, err := c.aggregateKey(fn, fn.Parameters[0])
		if err != nil {
			return nil, err
		}
		filter, err := c.Condition(fn.Parameters[1])
		if err != nil {
			return nil, fmt.Errorf("%s arg 2: %w", fn.Name, err)
		}
		return &wire.ConditionalAggregation{
			Aggregate:         f,
			Key:               key,
			Label:             fn.Alias,
			ExtrapolationMode: c.extrapolationMode(),
			Filter:            filter,
		}, nil
	}

	return nil, &UnsupportedExpressionError{Name: fn.Name}
}

// aggregateKey lowers the aggregated parameter, which must resolve to an attribute key.
func (c *Compiler) aggregateKey(fn *ir.FunctionCall, param ir.Expr) (wire.AttributeKey, error) {
	col, err := c.Expression(param)
	if err != nil {
		return wire.AttributeKey{}, fmt.Errorf("%s arg 1: %w", fn.Name, err)
	}
	key, ok := col.Expr.(wire.AttributeKey)
	if !ok {
		return wire.AttributeKey{}, &UnsupportedExpressionError{Name: fn.Name, Reason: "aggregated argument must be a column"}
	}
	return key, nil
}

func arityError(fn *ir.FunctionCall, want int) error {
	return &UnsupportedExpressionError{
		Name:   fn.Name,
		Reason: fmt.Sprintf("expected %d parameters, got %d", want, len(fn.Parameters)),
	}
}

func isAggregate(name string) bool {
	_, plain := AggregateFuncs[name]
	_, conditional := ConditionalAggregateFuncs[name]
	return plain || conditional
}

func nodeName(e ir.Expr) string {
	switch n := e.(type) {
	case *ir.Column:
		return n.Name
	case *ir.FunctionCall:
		return n.Name
	case *ir.Literal:
		return "literal"
	case *ir.Condition:
		return "condition"
	case *ir.BooleanCondition:
		return string(n.Op)
	default:
		return fmt.Sprintf("%T", e)
	}
}
