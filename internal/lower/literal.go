package lower

import (
	"math"
	"slices"

	"github.com/atlekbai/query_lowering/internal/ir"
	"github.com/atlekbai/query_lowering/internal/wire"
)

type literalKind int

const (
	kindInvalid literalKind = iota
	kindBool
	kindInt
	kindFloat
	kindStr
)

// EncodeLiteral converts a literal to its wire value. A nil literal and a
// nil Value both encode to the explicit null marker. NaN and infinities are
// rejected.
func EncodeLiteral(lit *ir.Literal) (wire.Value, error) {
	if lit == nil {
		return wire.ValNull{}, nil
	}

	switch v := lit.Value.(type) {
	case nil:
		return wire.ValNull{}, nil
	case bool:
		return wire.ValBool(v), nil
	case int, int32, int64:
		n, _ := asInt64(v)
		return wire.ValInt(n), nil
	case float32, float64:
		f, _ := asFloat64(v)
		if !finite(f) {
			return nil, &InvalidLiteralError{Reason: ReasonNonFinite}
		}
		return wire.ValDouble(f), nil
	case string:
		return wire.ValStr(v), nil
	case []any:
		return encodeList(v)
	case []bool:
		if len(v) == 0 {
			return nil, &InvalidLiteralError{Reason: ReasonEmptyList}
		}
		return wire.ValBoolArray(slices.Clone(v)), nil
	case []int64:
		if len(v) == 0 {
			return nil, &InvalidLiteralError{Reason: ReasonEmptyList}
		}
		return wire.ValIntArray(slices.Clone(v)), nil
	case []int:
		if len(v) == 0 {
			return nil, &InvalidLiteralError{Reason: ReasonEmptyList}
		}
		arr := make([]int64, len(v))
		for i, n := range v {
			arr[i] = int64(n)
		}
		return wire.ValIntArray(arr), nil
	case []float64:
		if len(v) == 0 {
			return nil, &InvalidLiteralError{Reason: ReasonEmptyList}
		}
		if slices.ContainsFunc(v, func(f float64) bool { return !finite(f) }) {
			return nil, &InvalidLiteralError{Reason: ReasonNonFinite}
		}
		return wire.ValDoubleArray(slices.Clone(v)), nil
	case []string:
		if len(v) == 0 {
			return nil, &InvalidLiteralError{Reason: ReasonEmptyList}
		}
		return wire.ValStrArray(slices.Clone(v)), nil
	default:
		return nil, &InvalidLiteralError{Reason: ReasonUnsupportedType}
	}
}

// encodeList encodes a generic list as the typed array of its first element.
func encodeList(items []any) (wire.Value, error) {
	if len(items) == 0 {
		return nil, &InvalidLiteralError{Reason: ReasonEmptyList}
	}

	first := kindOf(items[0])
	for _, item := range items {
		k := kindOf(item)
		if k == kindInvalid {
			return nil, &InvalidLiteralError{Reason: ReasonUnsupportedType}
		}
		if k != first {
			return nil, &InvalidLiteralError{Reason: ReasonHeterogeneous}
		}
	}

	switch first {
	case kindBool:
		arr := make([]bool, len(items))
		for i, item := range items {
			arr[i] = item.(bool)
		}
		return wire.ValBoolArray(arr), nil
	case kindInt:
		arr := make([]int64, len(items))
		for i, item := range items {
			arr[i], _ = asInt64(item)
		}
		return wire.ValIntArray(arr), nil
	case kindFloat:
		arr := make([]float64, len(items))
		for i, item := range items {
			arr[i], _ = asFloat64(item)
			if !finite(arr[i]) {
				return nil, &InvalidLiteralError{Reason: ReasonNonFinite}
			}
		}
		return wire.ValDoubleArray(arr), nil
	default:
		arr := make([]string, len(items))
		for i, item := range items {
			arr[i] = item.(string)
		}
		return wire.ValStrArray(arr), nil
	}
}

func kindOf(v any) literalKind {
	switch v.(type) {
	case bool:
		return kindBool
	case int, int32, int64:
		return kindInt
	case float32, float64:
		return kindFloat
	case string:
		return kindStr
	default:
		return kindInvalid
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch f := v.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	default:
		return 0, false
	}
}

// numeric returns an integer or float literal as float64.
func numeric(lit *ir.Literal) (float64, bool) {
	if lit == nil {
		return 0, false
	}
	if n, ok := asInt64(lit.Value); ok {
		return float64(n), true
	}
	return asFloat64(lit.Value)
}

// threshold returns the numeric value an aggregation result is compared with.
func threshold(lit *ir.Literal) (float64, error) {
	f, ok := numeric(lit)
	if !ok {
		return 0, &InvalidLiteralError{Reason: ReasonNonNumericTarget}
	}
	if !finite(f) {
		return 0, &InvalidLiteralError{Reason: ReasonNonFinite}
	}
	return f, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// forKey narrows whole float64 values compared with an INT attribute to
// int64, since decoded queries carry every number as float64. A list is
// narrowed only when every element is whole.
func forKey(lit *ir.Literal, typ wire.AttributeType) *ir.Literal {
	if lit == nil || typ != wire.TypeInt {
		return lit
	}
	switch v := lit.Value.(type) {
	case float64:
		if n, ok := wholeFloat(v); ok {
			return ir.Lit(n)
		}
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			f, ok := item.(float64)
			if !ok {
				return lit
			}
			n, ok := wholeFloat(f)
			if !ok {
				return lit
			}
			out[i] = n
		}
		return ir.Lit(out)
	}
	return lit
}

func wholeFloat(f float64) (int64, bool) {
	if f != math.Trunc(f) || math.Abs(f) >= 1<<53 {
		return 0, false
	}
	return int64(f), true
}

// isIntOne reports whether lit is the integer literal 1.
func isIntOne(lit *ir.Literal) bool {
	if lit == nil {
		return false
	}
	n, ok := asInt64(lit.Value)
	return ok && n == 1
}
