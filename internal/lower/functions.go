package lower

import (
	"github.com/atlekbai/query_lowering/internal/ir"
	"github.com/atlekbai/query_lowering/internal/wire"
)

// FormulaOps maps arithmetic function names to formula operators.
var FormulaOps = map[string]wire.FormulaOp{
	"divide":   wire.FormulaOpDivide,
	"minus":    wire.FormulaOpSubtract,
	"multiply": wire.FormulaOpMultiply,
	"plus":     wire.FormulaOpAdd,
}

// AggregateFuncs maps plain aggregate names to engine functions.
// Several spellings share a target; they are synonyms.
var AggregateFuncs = map[string]wire.Function{
	"avg":             wire.FunctionAverage,
	"count":           wire.FunctionCount,
	"max":             wire.FunctionMax,
	"min":             wire.FunctionMin,
	"p50":             wire.FunctionP50,
	"p75":             wire.FunctionP75,
	"p90":             wire.FunctionP90,
	"p95":             wire.FunctionP95,
	"p99":             wire.FunctionP99,
	"quantiles(0.5)":  wire.FunctionP50,
	"quantiles(0.75)": wire.FunctionP75,
	"quantiles(0.9)":  wire.FunctionP90,
	"quantiles(0.90)": wire.FunctionP90,
	"quantiles(0.95)": wire.FunctionP95,
	"quantiles(0.99)": wire.FunctionP99,
	"sum":             wire.FunctionSum,
	"uniq":            wire.FunctionUniq,
}

// ConditionalAggregateFuncs maps "...If" aggregate names to engine functions.
// Each takes a trailing condition parameter.
var ConditionalAggregateFuncs = map[string]wire.Function{
	"avgIf":             wire.FunctionAverage,
	"countIf":           wire.FunctionCount,
	"maxIf":             wire.FunctionMax,
	"minIf":             wire.FunctionMin,
	"p50If":             wire.FunctionP50,
	"p75If":             wire.FunctionP75,
	"p90If":             wire.FunctionP90,
	"p95If":             wire.FunctionP95,
	"p99If":             wire.FunctionP99,
	"quantilesIf(0.5)":  wire.FunctionP50,
	"quantilesIf(0.75)": wire.FunctionP75,
	"quantilesIf(0.9)":  wire.FunctionP90,
	"quantilesIf(0.90)": wire.FunctionP90,
	"quantilesIf(0.95)": wire.FunctionP95,
	"quantilesIf(0.99)": wire.FunctionP99,
	"sumIf":             wire.FunctionSum,
	"uniqIf":            wire.FunctionUniq,
}

// FilterFuncs maps comparison functions used as row filters to operators.
var FilterFuncs = map[string]wire.ComparisonOp{
	"equals":          wire.OpEquals,
	"notEquals":       wire.OpNotEquals,
	"in":              wire.OpIn,
	"notIn":           wire.OpNotIn,
	"greater":         wire.OpGreaterThan,
	"less":            wire.OpLessThan,
	"greaterOrEquals": wire.OpGreaterThanOrEquals,
	"lessOrEquals":    wire.OpLessThanOrEquals,
	"like":            wire.OpLike,
	"notLike":         wire.OpNotLike,
}

// AggregationFilterFuncs maps comparison functions over aggregates to operators.
var AggregationFilterFuncs = map[string]wire.AggregationOp{
	"equals":          wire.AggOpEquals,
	"notEquals":       wire.AggOpNotEquals,
	"greater":         wire.AggOpGreaterThan,
	"less":            wire.AggOpLessThan,
	"greaterOrEquals": wire.AggOpGreaterThanOrEquals,
	"lessOrEquals":    wire.AggOpLessThanOrEquals,
}

// Operators maps row-level condition operators to comparison operators.
var Operators = map[ir.Operator]wire.ComparisonOp{
	ir.OpEq:      wire.OpEquals,
	ir.OpNeq:     wire.OpNotEquals,
	ir.OpGt:      wire.OpGreaterThan,
	ir.OpLt:      wire.OpLessThan,
	ir.OpGte:     wire.OpGreaterThanOrEquals,
	ir.OpLte:     wire.OpLessThanOrEquals,
	ir.OpIn:      wire.OpIn,
	ir.OpNotIn:   wire.OpNotIn,
	ir.OpLike:    wire.OpLike,
	ir.OpNotLike: wire.OpNotLike,
}

// AggregationOperators maps having-clause operators to aggregation operators.
var AggregationOperators = map[ir.Operator]wire.AggregationOp{
	ir.OpEq:  wire.AggOpEquals,
	ir.OpNeq: wire.AggOpNotEquals,
	ir.OpGt:  wire.AggOpGreaterThan,
	ir.OpLt:  wire.AggOpLessThan,
	ir.OpGte: wire.AggOpGreaterThanOrEquals,
	ir.OpLte: wire.AggOpLessThanOrEquals,
}

var attributeTypes = map[ir.PrimitiveType]wire.AttributeType{
	ir.TypeBool:  wire.TypeBoolean,
	ir.TypeFloat: wire.TypeDouble,
	ir.TypeInt:   wire.TypeInt,
	ir.TypeStr:   wire.TypeString,
}

var extrapolationModes = map[ExtrapolationMode]wire.ExtrapolationMode{
	ExtrapolationWeighted: wire.ExtrapolationModeSampleWeighted,
	ExtrapolationNone:     wire.ExtrapolationModeNone,
}

// lookup returns table[key], or the error built by miss when key is absent.
func lookup[K comparable, V any](table map[K]V, key K, miss func(K) error) (V, error) {
	v, ok := table[key]
	if !ok {
		var zero V
		return zero, miss(key)
	}
	return v, nil
}

func invalidOperator(op ir.Operator) error {
	return &InvalidOperatorError{Op: string(op)}
}
