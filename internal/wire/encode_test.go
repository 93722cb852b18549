package wire

import (
	"reflect"
	"testing"
)

func sampleRequest() *Request {
	status := AttributeKey{Type: TypeString, Name: "status"}
	duration := AttributeKey{Type: TypeDouble, Name: "duration"}

	return &Request{
		Columns: []Column{
			{Label: "duration", Expr: duration},
			{Expr: &BinaryFormula{
				Op:    FormulaOpDivide,
				Left:  Column{Expr: &Aggregation{Aggregate: FunctionSum, Key: duration, ExtrapolationMode: ExtrapolationModeNone}},
				Right: Column{Expr: Literal{ValDouble: 1000}},
			}},
		},
		Filter: &AndFilter{Filters: []Filter{
			&ComparisonFilter{Key: status, Op: OpIn, Value: ValStrArray{"ok", "cancelled"}},
			&NotFilter{Filters: []Filter{&AndFilter{Filters: []Filter{&ExistsFilter{Key: duration}}}}},
		}},
		AggregationFilter: &AggregationAndFilter{Filters: []AggregationFilter{
			&AggregationComparisonFilter{
				Op:  AggOpGreaterThan,
				Val: 5,
				Aggregation: &ConditionalAggregation{
					Aggregate:         FunctionCount,
					Key:               duration,
					ExtrapolationMode: ExtrapolationModeSampleWeighted,
					Filter:            &ComparisonFilter{Key: status, Op: OpEquals, Value: ValNull{}},
				},
			},
		}},
		GroupBy:   []AttributeKey{status},
		OrderBy:   []OrderBy{{Column: Column{Label: "duration", Expr: duration}, Descending: true}},
		Limit:     25,
		PageToken: PageToken{Offset: 50},
	}
}

func TestRequestAsMap(t *testing.T) {
	m := sampleRequest().AsMap()

	if _, ok := m["meta"]; ok {
		t.Fatal("expected meta to be omitted without a request id")
	}
	if m["limit"] != int64(25) {
		t.Fatalf("expected limit 25, got %v", m["limit"])
	}

	wantFilter := map[string]any{"and_filter": map[string]any{"filters": []any{
		map[string]any{"comparison_filter": map[string]any{
			"key":   map[string]any{"type": "TYPE_STRING", "name": "status"},
			"op":    "OP_IN",
			"value": map[string]any{"val_str_array": map[string]any{"values": []any{"ok", "cancelled"}}},
		}},
		map[string]any{"not_filter": map[string]any{"filters": []any{
			map[string]any{"and_filter": map[string]any{"filters": []any{
				map[string]any{"exists_filter": map[string]any{"key": map[string]any{"type": "TYPE_DOUBLE", "name": "duration"}}},
			}}},
		}}},
	}}}
	if !reflect.DeepEqual(m["filter"], wantFilter) {
		t.Fatalf("filter mismatch:\n got %#v\nwant %#v", m["filter"], wantFilter)
	}

	cols := m["columns"].([]any)
	formula := cols[1].(map[string]any)["formula"].(map[string]any)
	if formula["op"] != "OP_DIVIDE" {
		t.Fatalf("expected OP_DIVIDE, got %v", formula["op"])
	}
	right := formula["right"].(map[string]any)["literal"].(map[string]any)
	if right["val_double"] != float64(1000) {
		t.Fatalf("expected literal 1000, got %v", right["val_double"])
	}
}

func TestRequestToStruct(t *testing.T) {
	req := sampleRequest()
	req.Meta.RequestID = "abc"

	st, err := req.ToStruct()
	if err != nil {
		t.Fatal(err)
	}

	got := st.AsMap()
	if got["limit"] != float64(25) {
		t.Fatalf("expected limit 25, got %v", got["limit"])
	}
	meta := got["meta"].(map[string]any)
	if meta["request_id"] != "abc" {
		t.Fatalf("expected request id abc, got %v", meta["request_id"])
	}

	agg := got["aggregation_filter"].(map[string]any)["and_filter"].(map[string]any)["filters"].([]any)
	cmp := agg[0].(map[string]any)["comparison_filter"].(map[string]any)
	cond := cmp["conditional_aggregation"].(map[string]any)
	if cond["extrapolation_mode"] != "EXTRAPOLATION_MODE_SAMPLE_WEIGHTED" {
		t.Fatalf("unexpected extrapolation mode %v", cond["extrapolation_mode"])
	}
	nullVal := cond["filter"].(map[string]any)["comparison_filter"].(map[string]any)["value"]
	if !reflect.DeepEqual(nullVal, map[string]any{"val_null": true}) {
		t.Fatalf("expected null marker, got %#v", nullVal)
	}
}

func TestMarshalJSONDeterministic(t *testing.T) {
	a, err := sampleRequest().MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	b, err := sampleRequest().MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected identical encodings:\n%s\n%s", a, b)
	}
}

func TestEnumNames(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{TypeDouble.String(), "TYPE_DOUBLE"},
		{FunctionP95.String(), "FUNCTION_P95"},
		{ExtrapolationModeNone.String(), "EXTRAPOLATION_MODE_NONE"},
		{FormulaOpSubtract.String(), "OP_SUBTRACT"},
		{OpNotLike.String(), "OP_NOT_LIKE"},
		{AggOpLessThanOrEquals.String(), "OP_LESS_THAN_OR_EQUALS"},
		{Function(99).String(), "Function(99)"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, tt.got)
		}
	}
}
