package fieldtype

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

type numberHandler struct{}

func (numberHandler) Type() types.FieldType { return types.FieldTypeNumber }

func (numberHandler) DefaultConfig(f *types.Field) types.FieldConfig {
	return &types.NumberConfig{
		ConfigBase:    types.ConfigBase{FieldID: f.FieldID},
		DisplayFormat: types.NumberDecimal,
	}
}

func (numberHandler) CleanConfig(cfg types.FieldConfig) error {
	c, err := configAs[*types.NumberConfig](cfg)
	if err != nil {
		return err
	}
	if ve := checkFormat("display_format", &c.DisplayFormat, types.NumberDecimal,
		types.NumberDecimal, types.NumberInteger, types.NumberPercentage,
		types.NumberCurrency); ve != nil {
		return ve
	}
	return nil
}

// Deserialize coerces raw according to the display format. Integers are
// truncated toward zero. Percentages given as strings drop a trailing "%"
// and are divided by 100.
func (numberHandler) Deserialize(cfg types.FieldConfig, raw any) (any, error) {
	c, err := configAs[*types.NumberConfig](cfg)
	if err != nil {
		return nil, err
	}
	if s, ok := raw.(string); ok && c.DisplayFormat == types.NumberPercentage {
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		f, err := parseNumber(s)
		if err != nil {
			return nil, err
		}
		return f / 100, nil
	}
	f, err := parseNumber(raw)
	if err != nil {
		return nil, err
	}
	if c.DisplayFormat == types.NumberInteger {
		f = math.Trunc(f)
	}
	return f, nil
}

func parseNumber(raw any) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, errData("a number is required")
	case bool:
		return 0, errData("expected a number, got a boolean")
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, errData("a number is required")
		}
		raw = v
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, errData("%v is not a number", raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errData("%v is not a finite number", raw)
	}
	return f, nil
}

func (numberHandler) Validate(_ context.Context, _ types.FieldConfig, value any, _ Lookup) error {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case json.Number:
		var err error
		if f, err = v.Float64(); err != nil {
			return errData("%q is not a number", v)
		}
	default:
		return errData("number value must be numeric, got %T", value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errData("number value must be finite")
	}
	return nil
}

func (numberHandler) Serialize(_ types.FieldConfig, value any) (any, error) {
	return value, nil
}
