package lower

import (
	"errors"
	"fmt"
)

// Literal error reasons.
const (
	ReasonEmptyList        = "empty list"
	ReasonHeterogeneous    = "heterogeneous list"
	ReasonUnsupportedType  = "unsupported literal type"
	ReasonNonNumericTarget = "aggregation comparison value must be numeric"
	ReasonNonFinite        = "NaN and infinite numbers are not encodable"
)

// UnknownAttributeError: a column is missing from the attribute-type dictionary.
type UnknownAttributeError struct {
	Name string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown attribute %q", e.Name)
}

// UnsupportedExpressionError: no lowering rule exists for a function name or
// expression shape.
type UnsupportedExpressionError struct {
	Name   string
	Reason string // optional detail
}

func (e *UnsupportedExpressionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported expression %q: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("unsupported expression %q", e.Name)
}

// InvalidOperatorError: an operator is absent from the relevant operator table.
type InvalidOperatorError struct {
	Op string
}

func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("invalid operator %q", e.Op)
}

// InvalidLiteralError: a literal cannot be encoded.
type InvalidLiteralError struct {
	Reason string
}

func (e *InvalidLiteralError) Error() string {
	return "invalid literal: " + e.Reason
}

// MalformedFilterShapeError: a function used as a filter is not compared with = 1.
type MalformedFilterShapeError struct {
	Function string
	Op       string
	RHS      any
}

func (e *MalformedFilterShapeError) Error() string {
	return fmt.Sprintf("malformed filter shape: %s() must be compared with integer = 1, got %s %v (%T)", e.Function, e.Op, e.RHS, e.RHS)
}

// InvalidSettingsError: the lowering settings themselves are unusable.
type InvalidSettingsError struct {
	Field string
	Value string
}

func (e *InvalidSettingsError) Error() string {
	return fmt.Sprintf("invalid settings: %s %q", e.Field, e.Value)
}

// IsInputError reports whether err was caused by the query rather than by
// the settings or the environment. Uses errors.As to handle wrapped errors.
func IsInputError(err error) bool {
	var (
		unknownAttr *UnknownAttributeError
		unsupported *UnsupportedExpressionError
		invalidOp   *InvalidOperatorError
		invalidLit  *InvalidLiteralError
		malformed   *MalformedFilterShapeError
	)
	return errors.As(err, &unknownAttr) ||
		errors.As(err, &unsupported) ||
		errors.As(err, &invalidOp) ||
		errors.As(err, &invalidLit) ||
		errors.As(err, &malformed)
}

// ErrorCode returns a stable code for err, or "" when err is not a lowering error.
func ErrorCode(err error) string {
	var (
		unknownAttr *UnknownAttributeError
		unsupported *UnsupportedExpressionError
		invalidOp   *InvalidOperatorError
		invalidLit  *InvalidLiteralError
		malformed   *MalformedFilterShapeError
		settings    *InvalidSettingsError
	)
	switch {
	case errors.As(err, &unknownAttr):
		return "UNKNOWN_ATTRIBUTE"
	case errors.As(err, &unsupported):
		return "UNSUPPORTED_EXPRESSION"
	case errors.As(err, &invalidOp):
		return "INVALID_OPERATOR"
	case errors.As(err, &invalidLit):
		return "INVALID_LITERAL"
	case errors.As(err, &malformed):
		return "MALFORMED_FILTER_SHAPE"
	case errors.As(err, &settings):
		return "INVALID_SETTINGS"
	default:
		return ""
	}
}
