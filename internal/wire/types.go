// Package wire holds the request format consumed by the analytical query
// engine. Every union in the protocol is a sealed interface: only the types
// in this package implement it.
package wire

// AttributeKey is a typed reference to a named attribute.
type AttributeKey struct {
	Type AttributeType
	Name string
}

// --- Values ---

// Value is a typed literal in a ComparisonFilter.
type Value interface {
	value()
}

type (
	ValBool        bool
	ValInt         int64
	ValDouble      float64
	ValStr         string
	ValNull        struct{} // explicit is-null marker
	ValBoolArray   []bool
	ValIntArray    []int64
	ValDoubleArray []float64
	ValStrArray    []string
)

func (ValBool) value()        {}
func (ValInt) value()         {}
func (ValDouble) value()      {}
func (ValStr) value()         {}
func (ValNull) value()        {}
func (ValBoolArray) value()   {}
func (ValIntArray) value()    {}
func (ValDoubleArray) value() {}
func (ValStrArray) value()    {}

// --- Columns ---

// Column is one entry of the select list, an order-by target or a formula operand.
type Column struct {
	Label string
	Expr  ColumnExpr
}

// ColumnExpr is what a Column computes: an AttributeKey, *Aggregation,
// *ConditionalAggregation, *BinaryFormula or Literal.
type ColumnExpr interface {
	columnExpr()
}

// Aggregation applies an aggregate function to an attribute.
type Aggregation struct {
	Aggregate         Function
	Key               AttributeKey
	Label             string
	ExtrapolationMode ExtrapolationMode
}

// ConditionalAggregation aggregates only the rows matching Filter.
type ConditionalAggregation struct {
	Aggregate         Function
	Key               AttributeKey
	Label             string
	ExtrapolationMode ExtrapolationMode
	Filter            Filter
}

// BinaryFormula combines two columns arithmetically.
type BinaryFormula struct {
	Op    FormulaOp
	Left  Column
	Right Column
}

// Literal is a constant numeric column.
type Literal struct {
	ValDouble float64
}

func (AttributeKey) columnExpr()            {}
func (*Aggregation) columnExpr()            {}
func (*ConditionalAggregation) columnExpr() {}
func (*BinaryFormula) columnExpr()          {}
func (Literal) columnExpr()                 {}

// AggregationExpr is the aggregate compared by an AggregationComparisonFilter:
// *Aggregation or *ConditionalAggregation.
type AggregationExpr interface {
	ColumnExpr
	aggregationExpr()
}

func (*Aggregation) aggregationExpr()            {}
func (*ConditionalAggregation) aggregationExpr() {}

// --- Row filters ---

// Filter is a row-level predicate.
type Filter interface {
	filter()
}

type AndFilter struct{ Filters []Filter }

type OrFilter struct{ Filters []Filter }

type NotFilter struct{ Filters []Filter }

type ExistsFilter struct{ Key AttributeKey }

type ComparisonFilter struct {
	Key   AttributeKey
	Op    ComparisonOp
	Value Value
}

func (*AndFilter) filter()        {}
func (*OrFilter) filter()         {}
func (*NotFilter) filter()        {}
func (*ExistsFilter) filter()     {}
func (*ComparisonFilter) filter() {}

// --- Aggregation filters ---

// AggregationFilter is a predicate over aggregates (HAVING).
type AggregationFilter interface {
	aggregationFilter()
}

type AggregationAndFilter struct{ Filters []AggregationFilter }

type AggregationOrFilter struct{ Filters []AggregationFilter }

type AggregationComparisonFilter struct {
	Op          AggregationOp
	Val         float64
	Aggregation AggregationExpr
}

func (*AggregationAndFilter) aggregationFilter()        {}
func (*AggregationOrFilter) aggregationFilter()         {}
func (*AggregationComparisonFilter) aggregationFilter() {}

// --- Request ---

// RequestMeta identifies a request. The compiler leaves it empty.
type RequestMeta struct {
	RequestID string
}

type OrderBy struct {
	Column     Column
	Descending bool
}

type PageToken struct {
	Offset int
}

// Request is a complete table query for the engine.
type Request struct {
	Meta              RequestMeta
	Columns           []Column
	Filter            Filter
	AggregationFilter AggregationFilter
	GroupBy           []AttributeKey
	OrderBy           []OrderBy
	Limit             int
	PageToken         PageToken
}
