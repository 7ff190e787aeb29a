package fieldtype

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

type choiceHandler struct{}

func (choiceHandler) Type() types.FieldType { return types.FieldTypeChoice }

func (choiceHandler) DefaultConfig(f *types.Field) types.FieldConfig {
	return &types.ChoiceConfig{
		ConfigBase:    types.ConfigBase{FieldID: f.FieldID},
		DisplayFormat: types.ChoiceDropdown,
		Options:       []types.ChoiceOption{},
	}
}

// CleanConfig defaults option values to their labels, renumbers ordinals
// and rejects the radio format on multi-select fields.
func (choiceHandler) CleanConfig(cfg types.FieldConfig) error {
	c, err := configAs[*types.ChoiceConfig](cfg)
	if err != nil {
		return err
	}
	ve := &types.ValidationError{}
	if e := checkFormat("display_format", &c.DisplayFormat, types.ChoiceDropdown,
		types.ChoiceDropdown, types.ChoiceRadio, types.ChoiceCheckbox, types.ChoiceTags); e != nil {
		ve.Add("display_format", e.Fields["display_format"])
	}
	if c.IsMultiSelect && c.DisplayFormat == types.ChoiceRadio {
		ve.Add("display_format", "radio display format cannot be used with multi select")
	}
	if c.Options == nil {
		c.Options = []types.ChoiceOption{}
	}
	values := make(map[string]int, len(c.Options))
	for i := range c.Options {
		o := &c.Options[i]
		path := fmt.Sprintf("options[%d]", i)
		o.Label = strings.TrimSpace(o.Label)
		if o.Label == "" {
			ve.Add(path+".label", "label is required")
		}
		if strings.TrimSpace(o.Value) == "" {
			o.Value = o.Label
		}
		if j, dup := values[o.Value]; dup && o.Value != "" {
			ve.Add(path+".value", fmt.Sprintf("duplicates options[%d]", j))
		} else {
			values[o.Value] = i
		}
		o.Ordinal = i
	}
	return ve.OrNil()
}

func (choiceHandler) Deserialize(_ types.FieldConfig, raw any) (any, error) {
	return deserializeIDs(raw)
}

// Validate resolves every option id and checks that it belongs to cfg.
func (choiceHandler) Validate(ctx context.Context, cfg types.FieldConfig, value any, lookup Lookup) error {
	c, err := configAs[*types.ChoiceConfig](cfg)
	if err != nil {
		return err
	}
	ids, err := idList(value)
	if err != nil {
		return err
	}
	if !c.IsMultiSelect && len(ids) > 1 {
		return errData("multi select disabled: at most one option may be chosen, got %d", len(ids))
	}
	for _, id := range ids {
		opt, err := lookup.Option(ctx, id)
		if errors.Is(err, types.ErrNotFound) {
			return errData("option %s does not exist", id)
		}
		if err != nil {
			return fmt.Errorf("resolving option %s: %w", id, err)
		}
		if opt.ConfigID != c.ConfigID {
			return errData("option %s does not belong to this field", id)
		}
	}
	return nil
}

func (choiceHandler) Serialize(_ types.FieldConfig, value any) (any, error) {
	return copyList(value)
}
