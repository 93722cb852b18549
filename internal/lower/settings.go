package lower

import (
	"strconv"

	"github.com/atlekbai/query_lowering/internal/ir"
)

// ExtrapolationMode is the request-wide extrapolation setting.
type ExtrapolationMode string

const (
	ExtrapolationWeighted ExtrapolationMode = "weighted"
	ExtrapolationNone     ExtrapolationMode = "none"
)

// Settings are the per-call inputs besides the query itself.
// AttributeTypes is a read-only lookup table; lowering never writes to it.
type Settings struct {
	AttributeTypes    map[string]ir.PrimitiveType
	DefaultLimit      int
	DefaultOffset     int
	ExtrapolationMode ExtrapolationMode
}

// Validate checks the settings before any lowering happens.
func (s *Settings) Validate() error {
	if _, ok := extrapolationModes[s.ExtrapolationMode]; !ok {
		return &InvalidSettingsError{Field: "extrapolation_mode", Value: string(s.ExtrapolationMode)}
	}
	if s.DefaultLimit < 0 {
		return &InvalidSettingsError{Field: "default_limit", Value: strconv.Itoa(s.DefaultLimit)}
	}
	if s.DefaultOffset < 0 {
		return &InvalidSettingsError{Field: "default_offset", Value: strconv.Itoa(s.DefaultOffset)}
	}
	for name, typ := range s.AttributeTypes {
		if _, ok := attributeTypes[typ]; !ok {
			return &InvalidSettingsError{Field: "attribute_types[" + name + "]", Value: string(typ)}
		}
	}
	return nil
}
