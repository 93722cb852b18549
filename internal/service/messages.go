package service

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atlekbai/query_lowering/internal/ir"
	"github.com/atlekbai/query_lowering/internal/lower"
)

func decodeQuery(v *structpb.Value) (*ir.Query, error) {
	st := v.GetStructValue()
	if st == nil {
		return nil, fmt.Errorf("expected object")
	}
	return ir.QueryFromMap(st.AsMap())
}

// applyOverrides reads {"default_limit", "default_offset", "extrapolation_mode"}.
// A missing or null value keeps the server default.
func applyOverrides(s *lower.Settings, raw *structpb.Value) error {
	if raw == nil {
		return nil
	}
	if _, isNull := raw.GetKind().(*structpb.Value_NullValue); isNull {
		return nil
	}
	st := raw.GetStructValue()
	if st == nil {
		return fmt.Errorf("expected object")
	}

	for key, v := range st.GetFields() {
		switch key {
		case "default_limit", "default_offset":
			n, err := nonNegativeInt(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if key == "default_limit" {
				s.DefaultLimit = n
			} else {
				s.DefaultOffset = n
			}
		case "extrapolation_mode":
			mode := lower.ExtrapolationMode(v.GetStringValue())
			if mode != lower.ExtrapolationWeighted && mode != lower.ExtrapolationNone {
				return fmt.Errorf("extrapolation_mode: expected weighted or none, got %q", v.GetStringValue())
			}
			s.ExtrapolationMode = mode
		default:
			return fmt.Errorf("unknown key %q", key)
		}
	}
	return nil
}

func nonNegativeInt(v *structpb.Value) (int, error) {
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("expected number")
	}
	f := num.NumberValue
	if f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return 0, fmt.Errorf("expected non-negative integer, got %v", f)
	}
	return int(f), nil
}

// normalizeArgs converts SQL arguments to types structpb accepts.
func normalizeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case []string:
			out[i] = toAny(v)
		case []int64:
			out[i] = toAny(v)
		case []float64:
			out[i] = toAny(v)
		case []bool:
			out[i] = toAny(v)
		default:
			out[i] = v
		}
	}
	return out
}

func toAny[T any](vals []T) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
