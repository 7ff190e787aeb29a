package fieldbase

import (
	"context"

	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// CreateField adds a field to a table. A nil cfg provisions the type's
// default config. A relation config naming a related table gets a mirror
// field on that table; one naming a related field pairs with it.
func (e *Engine) CreateField(ctx context.Context, tableID, label string, ft types.FieldType, cfg types.FieldConfig) (*types.Field, error) {
	var f *types.Field
	err := e.update(ctx, "create_field", func(tx *sqlite.Tx) error {
		c, err := types.CloneConfig(cfg)
		if err != nil {
			return err
		}
		f, err = e.catalog.CreateField(tx, tableID, label, ft, c)
		return err
	})
	if err != nil {
		return nil, e.rejected("create_field", err)
	}
	return f, nil
}

// UpdateField applies patch to a field.
func (e *Engine) UpdateField(ctx context.Context, fieldID string, patch FieldPatch) (*types.Field, error) {
	var f *types.Field
	err := e.update(ctx, "update_field", func(tx *sqlite.Tx) error {
		p := patch
		var err error
		if p.Config, err = types.CloneConfig(patch.Config); err != nil {
			return err
		}
		f, err = e.catalog.UpdateField(tx, fieldID, p)
		return err
	})
	if err != nil {
		return nil, e.rejected("update_field", err)
	}
	return f, nil
}

// DeleteField removes a field with its config and responses. Deleting a
// relation field deletes its mirror.
func (e *Engine) DeleteField(ctx context.Context, fieldID string) error {
	return e.update(ctx, "delete_field", func(tx *sqlite.Tx) error {
		return e.catalog.DeleteField(tx, fieldID)
	})
}

// GetField returns one field.
func (e *Engine) GetField(ctx context.Context, fieldID string) (*types.Field, error) {
	var f *types.Field
	err := e.view(ctx, func(tx *sqlite.Tx) error {
		var err error
		f, err = tx.GetField(fieldID)
		return err
	})
	return f, err
}

// ListFields returns the fields of a table in creation order.
func (e *Engine) ListFields(ctx context.Context, tableID string) ([]*types.Field, error) {
	var out []*types.Field
	err := e.view(ctx, func(tx *sqlite.Tx) error {
		if _, err := tx.GetTable(tableID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListFields(tableID)
		return err
	})
	return out, err
}

// GetConfig returns the active config of a field. A field whose config is
// missing gets the type's default provisioned.
func (e *Engine) GetConfig(ctx context.Context, fieldID string) (types.FieldConfig, error) {
	var cfg types.FieldConfig
	err := e.update(ctx, "get_config", func(tx *sqlite.Tx) error {
		f, err := tx.GetField(fieldID)
		if err != nil {
			return err
		}
		cfg, err = e.catalog.GetConfig(tx, f)
		return err
	})
	return cfg, err
}

// SyncRelation re-runs mirror maintenance for a relation field. Running it
// any number of times leaves exactly one mirror.
func (e *Engine) SyncRelation(ctx context.Context, fieldID string) (*types.RelationConfig, error) {
	var rc *types.RelationConfig
	err := e.update(ctx, "sync_relation", func(tx *sqlite.Tx) error {
		var err error
		rc, err = e.catalog.SyncRelation(tx, fieldID)
		return err
	})
	return rc, err
}
