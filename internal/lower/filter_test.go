package lower

import (
	"reflect"
	"testing"

	"github.com/atlekbai/query_lowering/internal/ir"
	"github.com/atlekbai/query_lowering/internal/wire"
)

func TestFunctionToFilter(t *testing.T) {
	retriesKey := wire.AttributeKey{Type: wire.TypeInt, Name: "retries"}
	userKey := wire.AttributeKey{Type: wire.TypeString, Name: "user"}

	tests := []struct {
		name string
		fn   *ir.FunctionCall
		want wire.Filter
	}{
		{
			name: "exists",
			fn:   ir.Fn("exists", ir.Col("user")),
			want: &wire.ExistsFilter{Key: userKey},
		},
		{
			name: "not wraps an and filter",
			fn:   ir.Fn("not", ir.Fn("exists", ir.Col("user"))),
			want: &wire.NotFilter{Filters: []wire.Filter{
				&wire.AndFilter{Filters: []wire.Filter{&wire.ExistsFilter{Key: userKey}}},
			}},
		},
		{
			name: "in",
			fn:   ir.Fn("in", ir.Col("status"), ir.Lit([]any{"a", "b"})),
			want: &wire.ComparisonFilter{Key: statusKey, Op: wire.OpIn, Value: wire.ValStrArray{"a", "b"}},
		},
		{
			name: "greaterOrEquals",
			fn:   ir.Fn("greaterOrEquals", ir.Col("retries"), ir.Lit(3)),
			want: &wire.ComparisonFilter{Key: retriesKey, Op: wire.OpGreaterThanOrEquals, Value: wire.ValInt(3)},
		},
		{
			name: "notLike",
			fn:   ir.Fn("notLike", ir.Col("status"), ir.Lit("err%")),
			want: &wire.ComparisonFilter{Key: statusKey, Op: wire.OpNotLike, Value: wire.ValStr("err%")},
		},
		{
			name: "equals null",
			fn:   ir.Fn("equals", ir.Col("status"), ir.Lit(nil)),
			want: &wire.ComparisonFilter{Key: statusKey, Op: wire.OpEquals, Value: wire.ValNull{}},
		},
		{
			name: "or mixes calls and conditions",
			fn: ir.Fn("or",
				ir.Fn("exists", ir.Col("user")),
				ir.Cond(ir.Col("retries"), ir.OpLt, 1),
			),
			want: &wire.OrFilter{Filters: []wire.Filter{
				&wire.ExistsFilter{Key: userKey},
				&wire.ComparisonFilter{Key: retriesKey, Op: wire.OpLessThan, Value: wire.ValInt(1)},
			}},
		},
		{
			name: "nested and inside or",
			fn: ir.Fn("or",
				ir.Fn("and",
					ir.Fn("equals", ir.Col("status"), ir.Lit("ok")),
					ir.Fn("less", ir.Col("retries"), ir.Lit(2)),
				),
				ir.Fn("notEquals", ir.Col("status"), ir.Lit("ok")),
			),
			want: &wire.OrFilter{Filters: []wire.Filter{
				&wire.AndFilter{Filters: []wire.Filter{
					&wire.ComparisonFilter{Key: statusKey, Op: wire.OpEquals, Value: wire.ValStr("ok")},
					&wire.ComparisonFilter{Key: retriesKey, Op: wire.OpLessThan, Value: wire.ValInt(2)},
				}},
				&wire.ComparisonFilter{Key: statusKey, Op: wire.OpNotEquals, Value: wire.ValStr("ok")},
			}},
		},
	}

	c := NewCompiler(testSettings())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.FunctionToFilter(tt.fn)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestFunctionToFilterErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   *ir.FunctionCall
		code string
	}{
		{"exists without params", ir.Fn("exists"), "UNSUPPORTED_EXPRESSION"},
		{"exists over literal", ir.Fn("exists", ir.Lit("x")), "UNSUPPORTED_EXPRESSION"},
		{"exists unknown column", ir.Fn("exists", ir.Col("nope")), "UNKNOWN_ATTRIBUTE"},
		{"comparison arity", ir.Fn("equals", ir.Col("status")), "UNSUPPORTED_EXPRESSION"},
		{"comparison literal first", ir.Fn("equals", ir.Lit("ok"), ir.Col("status")), "UNSUPPORTED_EXPRESSION"},
		{"heterogeneous in", ir.Fn("in", ir.Col("status"), ir.Lit([]any{"a", int64(1)})), "INVALID_LITERAL"},
		{"unknown name", ir.Fn("between", ir.Col("retries"), ir.Lit(1)), "UNSUPPORTED_EXPRESSION"},
		{"bad nested", ir.Fn("and", ir.Fn("exists", ir.Col("user")), ir.Fn("foo")), "UNSUPPORTED_EXPRESSION"},
	}

	c := NewCompiler(testSettings())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.FunctionToFilter(tt.fn)
			if got := ErrorCode(err); got != tt.code {
				t.Fatalf("expected %s, got %s (%v)", tt.code, got, err)
			}
		})
	}
}

func TestConditionRejectsBareExpressions(t *testing.T) {
	c := NewCompiler(testSettings())
	for _, e := range []ir.Expr{ir.Col("status"), ir.Lit(1), ir.Fn("exists", ir.Col("user"))} {
		if _, err := c.Condition(e); ErrorCode(err) != "UNSUPPORTED_EXPRESSION" {
			t.Fatalf("%T: expected UNSUPPORTED_EXPRESSION, got %v", e, err)
		}
	}
}

func TestConditionUnknownBooleanOp(t *testing.T) {
	c := NewCompiler(testSettings())
	_, err := c.Condition(&ir.BooleanCondition{Op: "XOR"})
	if ErrorCode(err) != "INVALID_OPERATOR" {
		t.Fatalf("expected INVALID_OPERATOR, got %v", err)
	}
}

func TestAggCondition(t *testing.T) {
	countDuration := &wire.Aggregation{
		Aggregate:         wire.FunctionCount,
		Key:               durationKey,
		ExtrapolationMode: wire.ExtrapolationModeNone,
	}
	avgDuration := &wire.Aggregation{
		Aggregate:         wire.FunctionAverage,
		Key:               durationKey,
		ExtrapolationMode: wire.ExtrapolationModeNone,
	}

	tests := []struct {
		name string
		cond ir.Expr
		want wire.AggregationFilter
	}{
		{
			name: "plain aggregate",
			cond: ir.Cond(ir.Fn("avg", ir.Col("duration")), ir.OpLt, 0.25),
			want: &wire.AggregationComparisonFilter{Op: wire.AggOpLessThan, Val: 0.25, Aggregation: avgDuration},
		},
		{
			name: "boolean or",
			cond: ir.Or(
				ir.Cond(ir.Fn("count", ir.Col("duration")), ir.OpEq, 0),
				ir.Cond(ir.Fn("avg", ir.Col("duration")), ir.OpNeq, 1),
			),
			want: &wire.AggregationOrFilter{Filters: []wire.AggregationFilter{
				&wire.AggregationComparisonFilter{Op: wire.AggOpEquals, Val: 0, Aggregation: countDuration},
				&wire.AggregationComparisonFilter{Op: wire.AggOpNotEquals, Val: 1, Aggregation: avgDuration},
			}},
		},
		{
			name: "and function compared with 1",
			cond: ir.Cond(ir.Fn("and",
				ir.Fn("greater", ir.Fn("count", ir.Col("duration")), ir.Lit(10)),
				ir.Cond(ir.Fn("avg", ir.Col("duration")), ir.OpLte, 2.5),
			), ir.OpEq, 1),
			want: &wire.AggregationAndFilter{Filters: []wire.AggregationFilter{
				&wire.AggregationComparisonFilter{Op: wire.AggOpGreaterThan, Val: 10, Aggregation: countDuration},
				&wire.AggregationComparisonFilter{Op: wire.AggOpLessThanOrEquals, Val: 2.5, Aggregation: avgDuration},
			}},
		},
		{
			name: "comparison function compared with 1",
			cond: ir.Cond(ir.Fn("lessOrEquals", ir.Fn("avg", ir.Col("duration")), ir.Lit(3)), ir.OpEq, 1),
			want: &wire.AggregationComparisonFilter{Op: wire.AggOpLessThanOrEquals, Val: 3, Aggregation: avgDuration},
		},
	}

	c := NewCompiler(testSettings())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.AggCondition(tt.cond)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestAggConditionErrors(t *testing.T) {
	tests := []struct {
		name string
		cond ir.Expr
		code string
	}{
		{"column lhs", ir.Cond(ir.Col("duration"), ir.OpGt, 1), "UNSUPPORTED_EXPRESSION"},
		{"unknown function", ir.Cond(ir.Fn("median", ir.Col("duration")), ir.OpGt, 1), "UNSUPPORTED_EXPRESSION"},
		{"and compared with 0", ir.Cond(ir.Fn("and"), ir.OpEq, 0), "MALFORMED_FILTER_SHAPE"},
		{"conditional arity", ir.Cond(ir.Fn("countIf", ir.Col("duration")), ir.OpGt, 1), "UNSUPPORTED_EXPRESSION"},
		{"in has no aggregation operator", ir.Cond(ir.Fn("count", ir.Col("duration")), ir.OpIn, []any{int64(1)}), "INVALID_OPERATOR"},
		{"null threshold", ir.Cond(ir.Fn("count", ir.Col("duration")), ir.OpGt, nil), "INVALID_LITERAL"},
		{
			"comparison over column",
			ir.Cond(ir.Fn("greater", ir.Col("duration"), ir.Lit(1)), ir.OpEq, 1),
			"UNSUPPORTED_EXPRESSION",
		},
		{
			"like is not an aggregation comparison",
			ir.Cond(ir.Fn("like", ir.Fn("count", ir.Col("duration")), ir.Lit(1)), ir.OpEq, 1),
			"UNSUPPORTED_EXPRESSION",
		},
		{
			"string threshold in comparison function",
			ir.Cond(ir.Fn("greater", ir.Fn("count", ir.Col("duration")), ir.Lit("ten")), ir.OpEq, 1),
			"INVALID_LITERAL",
		},
	}

	c := NewCompiler(testSettings())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.AggCondition(tt.cond)
			if got := ErrorCode(err); got != tt.code {
				t.Fatalf("expected %s, got %s (%v)", tt.code, got, err)
			}
		})
	}
}
