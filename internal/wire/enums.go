package wire

import "fmt"

// AttributeType is the wire type of an attribute key.
type AttributeType int

const (
	TypeUnspecified AttributeType = iota
	TypeBoolean
	TypeDouble
	TypeInt
	TypeString
)

var attributeTypeNames = map[AttributeType]string{
	TypeUnspecified: "TYPE_UNSPECIFIED",
	TypeBoolean:     "TYPE_BOOLEAN",
	TypeDouble:      "TYPE_DOUBLE",
	TypeInt:         "TYPE_INT",
	TypeString:      "TYPE_STRING",
}

func (t AttributeType) String() string { return enumName(attributeTypeNames, t, "AttributeType") }

// Function is an aggregate function understood by the engine.
type Function int

const (
	FunctionUnspecified Function = iota
	FunctionSum
	FunctionAverage
	FunctionCount
	FunctionP50
	FunctionP75
	FunctionP90
	FunctionP95
	FunctionP99
	FunctionMax
	FunctionMin
	FunctionUniq
)

var functionNames = map[Function]string{
	FunctionUnspecified: "FUNCTION_UNSPECIFIED",
	FunctionSum:         "FUNCTION_SUM",
	FunctionAverage:     "FUNCTION_AVERAGE",
	FunctionCount:       "FUNCTION_COUNT",
	FunctionP50:         "FUNCTION_P50",
	FunctionP75:         "FUNCTION_P75",
	FunctionP90:         "FUNCTION_P90",
	FunctionP95:         "FUNCTION_P95",
	FunctionP99:         "FUNCTION_P99",
	FunctionMax:         "FUNCTION_MAX",
	FunctionMin:         "FUNCTION_MIN",
	FunctionUniq:        "FUNCTION_UNIQ",
}

func (f Function) String() string { return enumName(functionNames, f, "Function") }

// ExtrapolationMode controls how the engine scales sampled aggregates.
type ExtrapolationMode int

const (
	ExtrapolationModeUnspecified ExtrapolationMode = iota
	ExtrapolationModeNone
	ExtrapolationModeSampleWeighted
)

var extrapolationModeNames = map[ExtrapolationMode]string{
	ExtrapolationModeUnspecified:    "EXTRAPOLATION_MODE_UNSPECIFIED",
	ExtrapolationModeNone:           "EXTRAPOLATION_MODE_NONE",
	ExtrapolationModeSampleWeighted: "EXTRAPOLATION_MODE_SAMPLE_WEIGHTED",
}

func (m ExtrapolationMode) String() string {
	return enumName(extrapolationModeNames, m, "ExtrapolationMode")
}

// FormulaOp is the operator of a BinaryFormula.
type FormulaOp int

const (
	FormulaOpUnspecified FormulaOp = iota
	FormulaOpDivide
	FormulaOpMultiply
	FormulaOpAdd
	FormulaOpSubtract
)

var formulaOpNames = map[FormulaOp]string{
	FormulaOpUnspecified: "OP_UNSPECIFIED",
	FormulaOpDivide:      "OP_DIVIDE",
	FormulaOpMultiply:    "OP_MULTIPLY",
	FormulaOpAdd:         "OP_ADD",
	FormulaOpSubtract:    "OP_SUBTRACT",
}

func (o FormulaOp) String() string { return enumName(formulaOpNames, o, "FormulaOp") }

// ComparisonOp is the operator of a row-level ComparisonFilter.
type ComparisonOp int

const (
	OpUnspecified ComparisonOp = iota
	OpLessThan
	OpGreaterThan
	OpLessThanOrEquals
	OpGreaterThanOrEquals
	OpEquals
	OpNotEquals
	OpLike
	OpNotLike
	OpIn
	OpNotIn
)

var comparisonOpNames = map[ComparisonOp]string{
	OpUnspecified:         "OP_UNSPECIFIED",
	OpLessThan:            "OP_LESS_THAN",
	OpGreaterThan:         "OP_GREATER_THAN",
	OpLessThanOrEquals:    "OP_LESS_THAN_OR_EQUALS",
	OpGreaterThanOrEquals: "OP_GREATER_THAN_OR_EQUALS",
	OpEquals:              "OP_EQUALS",
	OpNotEquals:           "OP_NOT_EQUALS",
	OpLike:                "OP_LIKE",
	OpNotLike:             "OP_NOT_LIKE",
	OpIn:                  "OP_IN",
	OpNotIn:               "OP_NOT_IN",
}

func (o ComparisonOp) String() string { return enumName(comparisonOpNames, o, "ComparisonOp") }

// AggregationOp is the operator of an AggregationComparisonFilter.
type AggregationOp int

const (
	AggOpUnspecified AggregationOp = iota
	AggOpLessThan
	AggOpGreaterThan
	AggOpLessThanOrEquals
	AggOpGreaterThanOrEquals
	AggOpEquals
	AggOpNotEquals
)

var aggregationOpNames = map[AggregationOp]string{
	AggOpUnspecified:         "OP_UNSPECIFIED",
	AggOpLessThan:            "OP_LESS_THAN",
	AggOpGreaterThan:         "OP_GREATER_THAN",
	AggOpLessThanOrEquals:    "OP_LESS_THAN_OR_EQUALS",
	AggOpGreaterThanOrEquals: "OP_GREATER_THAN_OR_EQUALS",
	AggOpEquals:              "OP_EQUALS",
	AggOpNotEquals:           "OP_NOT_EQUALS",
}

func (o AggregationOp) String() string { return enumName(aggregationOpNames, o, "AggregationOp") }

func enumName[E ~int](names map[E]string, v E, typ string) string {
	if s, ok := names[v]; ok {
		return s
	}
	return fmt.Sprintf("%s(%d)", typ, int(v))
}
