// Package explain renders a wire request as an approximate SQL statement so a
// human can read what the engine will be asked to do. The SQL is a preview;
// the engine never receives it.
package explain

import (
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/atlekbai/query_lowering/internal/schema"
	"github.com/atlekbai/query_lowering/internal/wire"
)

type aggFunc struct {
	name  string
	param string // parametric aggregates, e.g. quantile(0.5)
}

var aggFuncs = map[wire.Function]aggFunc{
	wire.FunctionSum:     {name: "sum"},
	wire.FunctionAverage: {name: "avg"},
	wire.FunctionCount:   {name: "count"},
	wire.FunctionP50:     {name: "quantile", param: "0.5"},
	wire.FunctionP75:     {name: "quantile", param: "0.75"},
	wire.FunctionP90:     {name: "quantile", param: "0.9"},
	wire.FunctionP95:     {name: "quantile", param: "0.95"},
	wire.FunctionP99:     {name: "quantile", param: "0.99"},
	wire.FunctionMax:     {name: "max"},
	wire.FunctionMin:     {name: "min"},
	wire.FunctionUniq:    {name: "uniq"},
}

var formulaOps = map[wire.FormulaOp]string{
	wire.FormulaOpDivide:   "/",
	wire.FormulaOpMultiply: "*",
	wire.FormulaOpAdd:      "+",
	wire.FormulaOpSubtract: "-",
}

var comparisonOps = map[wire.ComparisonOp]string{
	wire.OpLessThan:            "<",
	wire.OpGreaterThan:         ">",
	wire.OpLessThanOrEquals:    "<=",
	wire.OpGreaterThanOrEquals: ">=",
	wire.OpEquals:              "=",
	wire.OpNotEquals:           "!=",
	wire.OpLike:                "LIKE",
	wire.OpNotLike:             "NOT LIKE",
}

var aggregationOps = map[wire.AggregationOp]string{
	wire.AggOpLessThan:            "<",
	wire.AggOpGreaterThan:         ">",
	wire.AggOpLessThanOrEquals:    "<=",
	wire.AggOpGreaterThanOrEquals: ">=",
	wire.AggOpEquals:              "=",
	wire.AggOpNotEquals:           "!=",
}

// Build returns the SQL preview of req against table, with $n placeholders.
func Build(req *wire.Request, table string) (string, []any, error) {
	if req == nil {
		return "", nil, fmt.Errorf("explain: nil request")
	}
	if table == "" {
		return "", nil, fmt.Errorf("explain: empty table name")
	}

	qb := sq.Select().From(table).PlaceholderFormat(sq.Dollar)

	for i, col := range req.Columns {
		expr, err := selectColumn(col)
		if err != nil {
			return "", nil, fmt.Errorf("explain column %d: %w", i, err)
		}
		qb = qb.Column(expr)
	}
	if len(req.Columns) == 0 {
		qb = qb.Column("*")
	}

	where, err := topLevelFilters(req.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("explain filter: %w", err)
	}
	for _, cond := range where {
		qb = qb.Where(cond)
	}

	for _, key := range req.GroupBy {
		qb = qb.GroupBy(schema.QuoteIdent(key.Name))
	}

	having, err := topLevelAggregationFilters(req.AggregationFilter)
	if err != nil {
		return "", nil, fmt.Errorf("explain aggregation filter: %w", err)
	}
	for _, cond := range having {
		qb = qb.Having(cond)
	}

	for i, ob := range req.OrderBy {
		sql, args, err := columnExpr(ob.Column)
		if err != nil {
			return "", nil, fmt.Errorf("explain order by %d: %w", i, err)
		}
		dir := "ASC"
		if ob.Descending {
			dir = "DESC"
		}
		qb = qb.OrderByClause(sql+" "+dir, args...)
	}

	if req.Limit > 0 {
		qb = qb.Limit(uint64(req.Limit))
	}
	if req.PageToken.Offset > 0 {
		qb = qb.Offset(uint64(req.PageToken.Offset))
	}

	return qb.ToSql()
}

func selectColumn(col wire.Column) (sq.Sqlizer, error) {
	sql, args, err := columnExpr(col)
	if err != nil {
		return nil, err
	}
	if key, ok := col.Expr.(wire.AttributeKey); ok && col.Label == key.Name {
		return sq.Expr(sql, args...), nil
	}
	if col.Label != "" {
		sql += " AS " + schema.QuoteIdent(col.Label)
	}
	return sq.Expr(sql, args...), nil
}

// columnExpr renders a column without its alias.
func columnExpr(col wire.Column) (string, []any, error) {
	switch e := col.Expr.(type) {
	case wire.AttributeKey:
		return schema.QuoteIdent(e.Name), nil, nil

	case *wire.Aggregation:
		return aggregation(e.Aggregate, e.Key, nil)

	case *wire.ConditionalAggregation:
		return aggregation(e.Aggregate, e.Key, e.Filter)

	case *wire.BinaryFormula:
		op, ok := formulaOps[e.Op]
		if !ok {
			return "", nil, fmt.Errorf("unknown formula op %v", e.Op)
		}
		left, leftArgs, err := columnExpr(e.Left)
		if err != nil {
			return "", nil, err
		}
		right, rightArgs, err := columnExpr(e.Right)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(%s %s %s)", left, op, right), append(leftArgs, rightArgs...), nil

	case wire.Literal:
		return strconv.FormatFloat(e.ValDouble, 'g', -1, 64), nil, nil

	default:
		return "", nil, fmt.Errorf("unknown column expression %T", col.Expr)
	}
}

func aggregation(fn wire.Function, key wire.AttributeKey, filter wire.Filter) (string, []any, error) {
	af, ok := aggFuncs[fn]
	if !ok {
		return "", nil, fmt.Errorf("unknown aggregate %v", fn)
	}

	name := af.name
	if filter != nil {
		name += "If"
	}
	if af.param != "" {
		name += "(" + af.param + ")"
	}

	col := schema.QuoteIdent(key.Name)
	if filter == nil {
		return fmt.Sprintf("%s(%s)", name, col), nil, nil
	}

	cond, err := rowFilter(filter)
	if err != nil {
		return "", nil, err
	}
	condSQL, args, err := cond.ToSql()
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s(%s, %s)", name, col, condSQL), args, nil
}

// topLevelFilters splits the request's outer and filter so each item
// becomes its own WHERE term.
func topLevelFilters(f wire.Filter) ([]sq.Sqlizer, error) {
	if f == nil {
		return nil, nil
	}
	items := []wire.Filter{f}
	if and, ok := f.(*wire.AndFilter); ok {
		items = and.Filters
	}
	out := make([]sq.Sqlizer, 0, len(items))
	for _, item := range items {
		cond, err := rowFilter(item)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func rowFilter(f wire.Filter) (sq.Sqlizer, error) {
	switch f := f.(type) {
	case *wire.AndFilter:
		parts, err := rowFilters(f.Filters)
		if err != nil {
			return nil, err
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return sq.And(parts), nil

	case *wire.OrFilter:
		parts, err := rowFilters(f.Filters)
		if err != nil {
			return nil, err
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return sq.Or(parts), nil

	case *wire.NotFilter:
		inner, err := rowFilter(&wire.AndFilter{Filters: f.Filters})
		if err != nil {
			return nil, err
		}
		sql, args, err := inner.ToSql()
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT ("+sql+")", args...), nil

	case *wire.ExistsFilter:
		return sq.NotEq{schema.QuoteIdent(f.Key.Name): nil}, nil

	case *wire.ComparisonFilter:
		return comparison(f)

	default:
		return nil, fmt.Errorf("unknown filter %T", f)
	}
}

func rowFilters(filters []wire.Filter) ([]sq.Sqlizer, error) {
	out := make([]sq.Sqlizer, 0, len(filters))
	for _, f := range filters {
		cond, err := rowFilter(f)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func comparison(f *wire.ComparisonFilter) (sq.Sqlizer, error) {
	col := schema.QuoteIdent(f.Key.Name)
	val := valueArg(f.Value)

	switch f.Op {
	case wire.OpIn:
		return sq.Eq{col: val}, nil
	case wire.OpNotIn:
		return sq.NotEq{col: val}, nil
	case wire.OpEquals:
		if val == nil {
			return sq.Eq{col: nil}, nil
		}
	case wire.OpNotEquals:
		if val == nil {
			return sq.NotEq{col: nil}, nil
		}
	}

	op, ok := comparisonOps[f.Op]
	if !ok {
		return nil, fmt.Errorf("unknown comparison op %v", f.Op)
	}
	return sq.Expr(fmt.Sprintf("%s %s ?", col, op), val), nil
}

func topLevelAggregationFilters(f wire.AggregationFilter) ([]sq.Sqlizer, error) {
	if f == nil {
		return nil, nil
	}
	items := []wire.AggregationFilter{f}
	if and, ok := f.(*wire.AggregationAndFilter); ok {
		items = and.Filters
	}
	out := make([]sq.Sqlizer, 0, len(items))
	for _, item := range items {
		cond, err := aggregationFilter(item)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func aggregationFilter(f wire.AggregationFilter) (sq.Sqlizer, error) {
	switch f := f.(type) {
	case *wire.AggregationAndFilter, *wire.AggregationOrFilter:
		var (
			children []wire.AggregationFilter
			isAnd    bool
		)
		if and, ok := f.(*wire.AggregationAndFilter); ok {
			children, isAnd = and.Filters, true
		} else {
			children = f.(*wire.AggregationOrFilter).Filters
		}
		parts := make([]sq.Sqlizer, 0, len(children))
		for _, child := range children {
			cond, err := aggregationFilter(child)
			if err != nil {
				return nil, err
			}
			parts = append(parts, cond)
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		if isAnd {
			return sq.And(parts), nil
		}
		return sq.Or(parts), nil

	case *wire.AggregationComparisonFilter:
		op, ok := aggregationOps[f.Op]
		if !ok {
			return nil, fmt.Errorf("unknown aggregation op %v", f.Op)
		}
		var (
			sql  string
			args []any
			err  error
		)
		switch a := f.Aggregation.(type) {
		case *wire.Aggregation:
			sql, args, err = aggregation(a.Aggregate, a.Key, nil)
		case *wire.ConditionalAggregation:
			sql, args, err = aggregation(a.Aggregate, a.Key, a.Filter)
		default:
			err = fmt.Errorf("unknown aggregation %T", f.Aggregation)
		}
		if err != nil {
			return nil, err
		}
		return sq.Expr(fmt.Sprintf("%s %s ?", sql, op), append(args, f.Val)...), nil

	default:
		return nil, fmt.Errorf("unknown aggregation filter %T", f)
	}
}

func valueArg(v wire.Value) any {
	switch v := v.(type) {
	case wire.ValBool:
		return bool(v)
	case wire.ValInt:
		return int64(v)
	case wire.ValDouble:
		return float64(v)
	case wire.ValStr:
		return string(v)
	case wire.ValBoolArray:
		return []bool(v)
	case wire.ValIntArray:
		return []int64(v)
	case wire.ValDoubleArray:
		return []float64(v)
	case wire.ValStrArray:
		return []string(v)
	default:
		return nil
	}
}

// Describe returns a one-line summary of a column for tabular output.
func Describe(col wire.Column) string {
	sql, _, err := columnExpr(col)
	if err != nil {
		return "?"
	}
	return strings.ReplaceAll(sql, `"`, "")
}
