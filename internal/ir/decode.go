package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

var queryKeys = map[string]bool{
	"select":  true,
	"where":   true,
	"having":  true,
	"groupby": true,
	"orderby": true,
	"limit":   true,
	"offset":  true,
}

// exprKeys are the discriminating keys of an expression object.
var exprKeys = []string{"column", "function", "literal", "condition", "and", "or"}

// DecodeQuery parses the JSON form of a query. It yields the same Query as
// QueryFromMap over the structpb form of the same document.
func DecodeQuery(data []byte) (*Query, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode query: %w", err)
	}
	return QueryFromMap(m)
}

// QueryFromMap builds a Query from its generic map form, as produced by
// encoding/json or structpb.Struct.AsMap.
//
// Numbers decode as float64 since neither source keeps the int/float
// distinction. Two places need integers: limit/offset, and the rhs of a
// condition whose lhs is a function (fn(...) = 1), where a whole number
// becomes int64.
// Integer literals for INT attributes are restored during lowering.
func QueryFromMap(m map[string]any) (*Query, error) {
	for key := range m {
		if !queryKeys[key] {
			return nil, fmt.Errorf("unknown query key %q", key)
		}
	}

	q := &Query{}

	sel, err := listField(m, "select")
	if err != nil {
		return nil, err
	}
	for i, raw := range sel {
		e, err := decodeExpr(raw)
		if err != nil {
			return nil, fmt.Errorf("select[%d]: %w", i, err)
		}
		q.Select = append(q.Select, e)
	}

	if q.Where, err = boolList(m, "where"); err != nil {
		return nil, err
	}
	if q.Having, err = boolList(m, "having"); err != nil {
		return nil, err
	}

	groupBy, err := listField(m, "groupby")
	if err != nil {
		return nil, err
	}
	for i, raw := range groupBy {
		e, err := decodeExpr(raw)
		if err != nil {
			return nil, fmt.Errorf("groupby[%d]: %w", i, err)
		}
		col, ok := e.(*Column)
		if !ok {
			return nil, fmt.Errorf("groupby[%d]: expected column, got %T", i, e)
		}
		q.GroupBy = append(q.GroupBy, col)
	}

	orderBy, err := listField(m, "orderby")
	if err != nil {
		return nil, err
	}
	for i, raw := range orderBy {
		ob, err := decodeOrderBy(raw)
		if err != nil {
			return nil, fmt.Errorf("orderby[%d]: %w", i, err)
		}
		q.OrderBy = append(q.OrderBy, ob)
	}

	if q.Limit, err = intField(m, "limit"); err != nil {
		return nil, err
	}
	if q.Offset, err = intField(m, "offset"); err != nil {
		return nil, err
	}

	return q, nil
}

func decodeOrderBy(raw any) (OrderBy, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return OrderBy{}, fmt.Errorf("expected object, got %T", raw)
	}
	rawExpr, ok := m["expr"]
	if !ok {
		return OrderBy{}, fmt.Errorf("missing expr")
	}
	e, err := decodeExpr(rawExpr)
	if err != nil {
		return OrderBy{}, err
	}

	dir := Asc
	if d, ok := m["direction"]; ok {
		s, ok := d.(string)
		if !ok {
			return OrderBy{}, fmt.Errorf("direction: expected string, got %T", d)
		}
		switch Direction(strings.ToUpper(s)) {
		case Asc:
		case Desc:
			dir = Desc
		default:
			return OrderBy{}, fmt.Errorf("direction: expected ASC or DESC, got %q", s)
		}
	}
	return OrderBy{Expr: e, Direction: dir}, nil
}

// decodeExpr decodes an expression object. Anything that is not an object
// is a bare literal.
func decodeExpr(raw any) (Expr, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return decodeLiteral(raw)
	}

	kind := ""
	for _, k := range exprKeys {
		if _, ok := m[k]; ok {
			if kind != "" {
				return nil, fmt.Errorf("ambiguous expression: both %q and %q set", kind, k)
			}
			kind = k
		}
	}

	switch kind {
	case "column":
		name, ok := m["column"].(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("column: expected non-empty string")
		}
		return Col(name), nil

	case "function":
		return decodeFunction(m)

	case "literal":
		return decodeLiteral(m["literal"])

	case "condition":
		return decodeCondition(m["condition"])

	case "and", "or":
		items, ok := m[kind].([]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected list", kind)
		}
		conds := make([]BoolExpr, 0, len(items))
		for i, item := range items {
			c, err := decodeBoolExpr(item)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", kind, i, err)
			}
			conds = append(conds, c)
		}
		if kind == "and" {
			return And(conds...), nil
		}
		return Or(conds...), nil

	default:
		return nil, fmt.Errorf("expression object needs one of %s", strings.Join(exprKeys, ", "))
	}
}

func decodeFunction(m map[string]any) (Expr, error) {
	name, ok := m["function"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("function: expected non-empty string")
	}

	fn := &FunctionCall{Name: name}
	if alias, ok := m["alias"]; ok {
		s, ok := alias.(string)
		if !ok {
			return nil, fmt.Errorf("%s alias: expected string, got %T", name, alias)
		}
		fn.Alias = s
	}

	if rawParams, ok := m["parameters"]; ok {
		params, ok := rawParams.([]any)
		if !ok {
			return nil, fmt.Errorf("%s parameters: expected list, got %T", name, rawParams)
		}
		for i, p := range params {
			e, err := decodeExpr(p)
			if err != nil {
				return nil, fmt.Errorf("%s arg %d: %w", name, i+1, err)
			}
			fn.Parameters = append(fn.Parameters, e)
		}
	}
	return fn, nil
}

func decodeCondition(raw any) (Expr, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("condition: expected object, got %T", raw)
	}

	rawLHS, ok := m["lhs"]
	if !ok {
		return nil, fmt.Errorf("condition: missing lhs")
	}
	lhs, err := decodeExpr(rawLHS)
	if err != nil {
		return nil, fmt.Errorf("condition lhs: %w", err)
	}

	op, ok := m["op"].(string)
	if !ok || op == "" {
		return nil, fmt.Errorf("condition: expected op string")
	}

	rhs, err := decodeLiteral(m["rhs"])
	if err != nil {
		return nil, fmt.Errorf("condition rhs: %w", err)
	}
	if _, isCall := lhs.(*FunctionCall); isCall {
		if n, ok := wholeNumber(rhs.Value); ok {
			rhs = Lit(n)
		}
	}

	return &Condition{LHS: lhs, Op: Operator(strings.ToUpper(op)), RHS: rhs}, nil
}

func decodeBoolExpr(raw any) (BoolExpr, error) {
	e, err := decodeExpr(raw)
	if err != nil {
		return nil, err
	}
	b, ok := e.(BoolExpr)
	if !ok {
		return nil, fmt.Errorf("expected condition, got %T", e)
	}
	return b, nil
}

func decodeLiteral(raw any) (*Literal, error) {
	v, err := literalValue(raw)
	if err != nil {
		return nil, err
	}
	return Lit(v), nil
}

func literalValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil, bool, string:
		return v, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", v)
		}
		return f, nil
	case float64:
		return v, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			if _, isList := item.([]any); isList {
				return nil, fmt.Errorf("nested lists are not literals")
			}
			x, err := literalValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return widenNumbers(out), nil
	default:
		return nil, fmt.Errorf("%T is not a literal", raw)
	}
}

func listField(m map[string]any, key string) ([]any, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected list, got %T", key, raw)
	}
	return list, nil
}

func boolList(m map[string]any, key string) ([]BoolExpr, error) {
	items, err := listField(m, key)
	if err != nil {
		return nil, err
	}
	var out []BoolExpr
	for i, item := range items {
		b, err := decodeBoolExpr(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func intField(m map[string]any, key string) (*int, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	v, err := literalValue(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	n, ok := wholeNumber(v)
	if !ok || n > math.MaxInt32 {
		return nil, fmt.Errorf("%s: expected integer, got %v", key, raw)
	}
	if n < 0 {
		return nil, fmt.Errorf("%s: must be non-negative, got %d", key, n)
	}
	i := int(n)
	return &i, nil
}

// wholeNumber returns v as int64 when it is an integer or a float64 with no
// fractional part.
func wholeNumber(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n), true
		}
	}
	return 0, false
}

// widenNumbers turns a list mixing int64 and float64 into a float64 list.
// Other lists are returned unchanged.
func widenNumbers(items []any) []any {
	sawFloat := false
	for _, item := range items {
		switch item.(type) {
		case float64:
			sawFloat = true
		case int64:
		default:
			return items
		}
	}
	if !sawFloat {
		return items
	}
	for i, item := range items {
		if n, ok := item.(int64); ok {
			items[i] = float64(n)
		}
	}
	return items
}
