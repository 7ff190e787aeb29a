package fieldtype

import (
	"context"
	"encoding/json"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

type textHandler struct{}

func (textHandler) Type() types.FieldType { return types.FieldTypeText }

func (textHandler) DefaultConfig(f *types.Field) types.FieldConfig {
	return &types.TextConfig{
		ConfigBase:    types.ConfigBase{FieldID: f.FieldID},
		DisplayFormat: types.TextSingleLine,
	}
}

func (textHandler) CleanConfig(cfg types.FieldConfig) error {
	c, err := configAs[*types.TextConfig](cfg)
	if err != nil {
		return err
	}
	if ve := checkFormat("display_format", &c.DisplayFormat, types.TextSingleLine,
		types.TextSingleLine, types.TextMultiLine, types.TextEmail,
		types.TextURL, types.TextPhone, types.TextRichText); ve != nil {
		return ve
	}
	return nil
}

// Deserialize stringifies anything. Values cast cannot render (lists,
// objects) are rendered as JSON.
func (textHandler) Deserialize(_ types.FieldConfig, raw any) (any, error) {
	if raw == nil {
		return "", nil
	}
	if s, err := cast.ToStringE(raw); err == nil {
		return s, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, errData("cannot convert %T to text", raw)
	}
	return string(b), nil
}

func (textHandler) Validate(_ context.Context, _ types.FieldConfig, value any, _ Lookup) error {
	if _, ok := value.(string); !ok {
		return errData("text value must be a string, got %T", value)
	}
	return nil
}

func (textHandler) Serialize(_ types.FieldConfig, value any) (any, error) {
	return value, nil
}
