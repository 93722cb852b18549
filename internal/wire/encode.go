package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// AsMap returns the request as nested maps using the engine's field and
// enum names. Nil unions are omitted. The result only holds types accepted
// by structpb.NewValue.
func (r *Request) AsMap() map[string]any {
	out := map[string]any{
		"columns":    columnList(r.Columns),
		"group_by":   keyList(r.GroupBy),
		"order_by":   orderByList(r.OrderBy),
		"limit":      int64(r.Limit),
		"page_token": map[string]any{"offset": int64(r.PageToken.Offset)},
	}
	if r.Meta.RequestID != "" {
		out["meta"] = map[string]any{"request_id": r.Meta.RequestID}
	}
	if f := FilterMap(r.Filter); f != nil {
		out["filter"] = f
	}
	if f := AggregationFilterMap(r.AggregationFilter); f != nil {
		out["aggregation_filter"] = f
	}
	return out
}

// ToStruct converts the request to a protobuf Struct for transport.
func (r *Request) ToStruct() (*structpb.Struct, error) {
	st, err := structpb.NewStruct(r.AsMap())
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return st, nil
}

// MarshalJSON encodes AsMap with sorted keys, so equal requests encode to
// equal bytes.
func (r *Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.AsMap())
}

// ColumnMap encodes a single column.
func ColumnMap(c Column) map[string]any {
	out := map[string]any{}
	if c.Label != "" {
		out["label"] = c.Label
	}

	switch e := c.Expr.(type) {
	case AttributeKey:
		out["key"] = keyMap(e)
	case *Aggregation:
		out["aggregation"] = aggregationMap(e)
	case *ConditionalAggregation:
		out["conditional_aggregation"] = conditionalAggregationMap(e)
	case *BinaryFormula:
		out["formula"] = map[string]any{
			"op":    e.Op.String(),
			"left":  ColumnMap(e.Left),
			"right": ColumnMap(e.Right),
		}
	case Literal:
		out["literal"] = map[string]any{"val_double": e.ValDouble}
	}
	return out
}

// FilterMap encodes a row filter; nil encodes to nil.
func FilterMap(f Filter) map[string]any {
	switch f := f.(type) {
	case *AndFilter:
		return map[string]any{"and_filter": map[string]any{"filters": filterList(f.Filters)}}
	case *OrFilter:
		return map[string]any{"or_filter": map[string]any{"filters": filterList(f.Filters)}}
	case *NotFilter:
		return map[string]any{"not_filter": map[string]any{"filters": filterList(f.Filters)}}
	case *ExistsFilter:
		return map[string]any{"exists_filter": map[string]any{"key": keyMap(f.Key)}}
	case *ComparisonFilter:
		return map[string]any{"comparison_filter": map[string]any{
			"key":   keyMap(f.Key),
			"op":    f.Op.String(),
			"value": valueMap(f.Value),
		}}
	default:
		return nil
	}
}

// AggregationFilterMap encodes an aggregation filter; nil encodes to nil.
func AggregationFilterMap(f AggregationFilter) map[string]any {
	switch f := f.(type) {
	case *AggregationAndFilter:
		return map[string]any{"and_filter": map[string]any{"filters": aggregationFilterList(f.Filters)}}
	case *AggregationOrFilter:
		return map[string]any{"or_filter": map[string]any{"filters": aggregationFilterList(f.Filters)}}
	case *AggregationComparisonFilter:
		cmp := map[string]any{
			"op":  f.Op.String(),
			"val": f.Val,
		}
		switch a := f.Aggregation.(type) {
		case *Aggregation:
			cmp["aggregation"] = aggregationMap(a)
		case *ConditionalAggregation:
			cmp["conditional_aggregation"] = conditionalAggregationMap(a)
		}
		return map[string]any{"comparison_filter": cmp}
	default:
		return nil
	}
}

func keyMap(k AttributeKey) map[string]any {
	return map[string]any{"type": k.Type.String(), "name": k.Name}
}

func aggregationMap(a *Aggregation) map[string]any {
	out := map[string]any{
		"aggregate":          a.Aggregate.String(),
		"key":                keyMap(a.Key),
		"extrapolation_mode": a.ExtrapolationMode.String(),
	}
	if a.Label != "" {
		out["label"] = a.Label
	}
	return out
}

func conditionalAggregationMap(a *ConditionalAggregation) map[string]any {
	out := map[string]any{
		"aggregate":          a.Aggregate.String(),
		"key":                keyMap(a.Key),
		"extrapolation_mode": a.ExtrapolationMode.String(),
	}
	if a.Label != "" {
		out["label"] = a.Label
	}
	if f := FilterMap(a.Filter); f != nil {
		out["filter"] = f
	}
	return out
}

func valueMap(v Value) map[string]any {
	switch v := v.(type) {
	case ValBool:
		return map[string]any{"val_bool": bool(v)}
	case ValInt:
		return map[string]any{"val_int": int64(v)}
	case ValDouble:
		return map[string]any{"val_double": float64(v)}
	case ValStr:
		return map[string]any{"val_str": string(v)}
	case ValNull:
		return map[string]any{"val_null": true}
	case ValBoolArray:
		return arrayMap("val_bool_array", v)
	case ValIntArray:
		return arrayMap("val_int_array", v)
	case ValDoubleArray:
		return arrayMap("val_double_array", v)
	case ValStrArray:
		return arrayMap("val_str_array", v)
	default:
		return nil
	}
}

func arrayMap[T bool | int64 | float64 | string](field string, vals []T) map[string]any {
	items := make([]any, len(vals))
	for i, v := range vals {
		items[i] = v
	}
	return map[string]any{field: map[string]any{"values": items}}
}

func columnList(cols []Column) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = ColumnMap(c)
	}
	return out
}

func keyList(keys []AttributeKey) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = keyMap(k)
	}
	return out
}

func orderByList(obs []OrderBy) []any {
	out := make([]any, len(obs))
	for i, ob := range obs {
		out[i] = map[string]any{"column": ColumnMap(ob.Column), "descending": ob.Descending}
	}
	return out
}

func filterList(filters []Filter) []any {
	out := make([]any, 0, len(filters))
	for _, f := range filters {
		if m := FilterMap(f); m != nil {
			out = append(out, m)
		}
	}
	return out
}

func aggregationFilterList(filters []AggregationFilter) []any {
	out := make([]any, 0, len(filters))
	for _, f := range filters {
		if m := AggregationFilterMap(f); m != nil {
			out = append(out, m)
		}
	}
	return out
}
