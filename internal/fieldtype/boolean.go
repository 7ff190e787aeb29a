package fieldtype

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

type booleanHandler struct{}

func (booleanHandler) Type() types.FieldType { return types.FieldTypeBoolean }

func (booleanHandler) DefaultConfig(f *types.Field) types.FieldConfig {
	return &types.BooleanConfig{
		ConfigBase:    types.ConfigBase{FieldID: f.FieldID},
		DisplayFormat: types.BooleanCheckbox,
	}
}

func (booleanHandler) CleanConfig(cfg types.FieldConfig) error {
	c, err := configAs[*types.BooleanConfig](cfg)
	if err != nil {
		return err
	}
	if ve := checkFormat("display_format", &c.DisplayFormat, types.BooleanCheckbox,
		types.BooleanCheckbox, types.BooleanToggle); ve != nil {
		return ve
	}
	return nil
}

func (booleanHandler) Deserialize(_ types.FieldConfig, raw any) (any, error) {
	return truthy(raw), nil
}

// truthy maps true, "true", "1" and "yes" (any case, surrounding space
// ignored) to true and everything else to false.
func truthy(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	}
	switch strings.ToLower(strings.TrimSpace(fmt.Sprint(raw))) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func (booleanHandler) Validate(_ context.Context, _ types.FieldConfig, value any, _ Lookup) error {
	if _, ok := value.(bool); !ok {
		return errData("boolean value must be true or false, got %T", value)
	}
	return nil
}

func (booleanHandler) Serialize(_ types.FieldConfig, value any) (any, error) {
	return value, nil
}
