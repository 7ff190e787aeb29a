package fieldtype

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

type relationHandler struct{}

func (relationHandler) Type() types.FieldType { return types.FieldTypeRelation }

// DefaultConfig is an unpaired relation of field onto its own table.
func (relationHandler) DefaultConfig(f *types.Field) types.FieldConfig {
	return &types.RelationConfig{
		ConfigBase:     types.ConfigBase{FieldID: f.FieldID},
		SourceFieldID:  f.FieldID,
		RelatedFieldID: f.FieldID,
		RelatedTableID: f.TableID,
	}
}

// CleanConfig has nothing to default; pairing is resolved by the catalog.
func (relationHandler) CleanConfig(cfg types.FieldConfig) error {
	_, err := configAs[*types.RelationConfig](cfg)
	return err
}

func (relationHandler) Deserialize(_ types.FieldConfig, raw any) (any, error) {
	return deserializeIDs(raw)
}

// Validate checks that every referenced page exists and lives in the
// related table.
func (relationHandler) Validate(ctx context.Context, cfg types.FieldConfig, value any, lookup Lookup) error {
	c, err := configAs[*types.RelationConfig](cfg)
	if err != nil {
		return err
	}
	ids, err := idList(value)
	if err != nil {
		return err
	}
	for _, id := range ids {
		p, err := lookup.Page(ctx, id)
		if errors.Is(err, types.ErrNotFound) {
			return errData("page %s does not exist", id)
		}
		if err != nil {
			return fmt.Errorf("resolving page %s: %w", id, err)
		}
		if p.TableID != c.RelatedTableID {
			return errData("page %s is not in the related table", id)
		}
	}
	return nil
}

func (relationHandler) Serialize(_ types.FieldConfig, value any) (any, error) {
	return copyList(value)
}
