package fieldtype

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

var fileKinds = []string{
	types.FileKindAll,
	types.FileKindImage,
	types.FileKindVideo,
	types.FileKindAudio,
	types.FileKindDocument,
}

type fileHandler struct{}

func (fileHandler) Type() types.FieldType { return types.FieldTypeFile }

func (fileHandler) DefaultConfig(f *types.Field) types.FieldConfig {
	return &types.FileConfig{
		ConfigBase:         types.ConfigBase{FieldID: f.FieldID},
		SupportedFileTypes: []string{types.FileKindAll},
	}
}

// CleanConfig defaults an empty kind list to ["all"]. "all" cannot be
// combined with specific kinds.
func (fileHandler) CleanConfig(cfg types.FieldConfig) error {
	c, err := configAs[*types.FileConfig](cfg)
	if err != nil {
		return err
	}
	if len(c.SupportedFileTypes) == 0 {
		c.SupportedFileTypes = []string{types.FileKindAll}
		return nil
	}
	ve := &types.ValidationError{}
	for i, k := range c.SupportedFileTypes {
		if !slices.Contains(fileKinds, k) {
			ve.Add(fmt.Sprintf("supported_file_types[%d]", i), fmt.Sprintf("%q is not a valid choice", k))
		}
	}
	if len(c.SupportedFileTypes) > 1 && slices.Contains(c.SupportedFileTypes, types.FileKindAll) {
		ve.Add("supported_file_types", `"all" cannot be combined with other file types`)
	}
	return ve.OrNil()
}

func (fileHandler) Deserialize(_ types.FieldConfig, raw any) (any, error) {
	return deserializeIDs(raw)
}

// Validate resolves every attachment id and checks its kind.
func (fileHandler) Validate(ctx context.Context, cfg types.FieldConfig, value any, lookup Lookup) error {
	c, err := configAs[*types.FileConfig](cfg)
	if err != nil {
		return err
	}
	ids, err := idList(value)
	if err != nil {
		return err
	}
	if !c.IsMultiple && len(ids) > 1 {
		return errData("multiple files disabled: at most one file may be attached, got %d", len(ids))
	}
	anyKind := len(c.SupportedFileTypes) == 0 || slices.Contains(c.SupportedFileTypes, types.FileKindAll)
	for _, id := range ids {
		a, err := lookup.Attachment(ctx, id)
		if errors.Is(err, types.ErrNotFound) {
			return errData("attachment %s does not exist", id)
		}
		if err != nil {
			return fmt.Errorf("resolving attachment %s: %w", id, err)
		}
		if !anyKind && !slices.Contains(c.SupportedFileTypes, a.Kind) {
			return errData("attachment %s is a %s file, allowed: %v", id, a.Kind, c.SupportedFileTypes)
		}
	}
	return nil
}

func (fileHandler) Serialize(_ types.FieldConfig, value any) (any, error) {
	return copyList(value)
}
