package fieldtype

import (
	"context"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// Keys of a checklist item.
const (
	ChecklistValueKey   = "value"
	ChecklistCheckedKey = "is_checked"
)

type checklistHandler struct{}

func (checklistHandler) Type() types.FieldType { return types.FieldTypeChecklist }

func (checklistHandler) DefaultConfig(f *types.Field) types.FieldConfig {
	return &types.ChecklistConfig{
		ConfigBase:    types.ConfigBase{FieldID: f.FieldID},
		DisplayFormat: types.ChecklistList,
		StatusFormat:  types.ChecklistStatusProgress,
	}
}

func (checklistHandler) CleanConfig(cfg types.FieldConfig) error {
	c, err := configAs[*types.ChecklistConfig](cfg)
	if err != nil {
		return err
	}
	ve := &types.ValidationError{}
	if e := checkFormat("display_format", &c.DisplayFormat, types.ChecklistList,
		types.ChecklistList, types.ChecklistInline); e != nil {
		ve.Add("display_format", e.Fields["display_format"])
	}
	if e := checkFormat("status_format", &c.StatusFormat, types.ChecklistStatusProgress,
		types.ChecklistStatusProgress, types.ChecklistStatusPercentage); e != nil {
		ve.Add("status_format", e.Fields["status_format"])
	}
	return ve.OrNil()
}

// Deserialize produces a list of {"value": string, "is_checked": bool}
// items. A lone item (object, string or bool) is wrapped in a list and
// two-element [value, checked] pairs are accepted.
func (checklistHandler) Deserialize(_ types.FieldConfig, raw any) (any, error) {
	if raw == nil {
		return []any{}, nil
	}
	items, ok := toList(raw)
	if !ok {
		items = []any{raw}
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, checklistItem(item))
	}
	return out, nil
}

func checklistItem(item any) map[string]any {
	switch v := item.(type) {
	case map[string]any:
		return map[string]any{
			ChecklistValueKey:   cast.ToString(v[ChecklistValueKey]),
			ChecklistCheckedKey: truthy(v[ChecklistCheckedKey]),
		}
	case bool:
		return map[string]any{ChecklistValueKey: "", ChecklistCheckedKey: v}
	}
	if pair, ok := toList(item); ok && len(pair) == 2 {
		return map[string]any{
			ChecklistValueKey:   cast.ToString(pair[0]),
			ChecklistCheckedKey: truthy(pair[1]),
		}
	}
	return map[string]any{ChecklistValueKey: cast.ToString(item), ChecklistCheckedKey: false}
}

func (checklistHandler) Validate(_ context.Context, _ types.FieldConfig, value any, _ Lookup) error {
	items, ok := toList(value)
	if !ok {
		return errData("checklist value must be a list, got %T", value)
	}
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return errData("item %d must be an object", i)
		}
		if _, ok := m[ChecklistValueKey].(string); !ok {
			return errData("item %d: %q must be a string", i, ChecklistValueKey)
		}
		if _, ok := m[ChecklistCheckedKey].(bool); !ok {
			return errData("item %d: %q must be a boolean", i, ChecklistCheckedKey)
		}
	}
	return nil
}

func (checklistHandler) Serialize(_ types.FieldConfig, value any) (any, error) {
	return copyList(value)
}
