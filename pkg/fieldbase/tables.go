package fieldbase

import (
	"context"

	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// CreateTable creates a table with its default "Table" view and a "Page"
// view.
func (e *Engine) CreateTable(ctx context.Context, workspaceID, name, description string) (*types.Table, error) {
	var tb *types.Table
	err := e.update(ctx, "create_table", func(tx *sqlite.Tx) error {
		tb = &types.Table{WorkspaceID: workspaceID, Name: name, Description: description}
		return e.catalog.CreateTable(tx, tb)
	})
	if err != nil {
		return nil, err
	}
	return tb, nil
}

// GetTable returns one table.
func (e *Engine) GetTable(ctx context.Context, tableID string) (*types.Table, error) {
	var tb *types.Table
	err := e.view(ctx, func(tx *sqlite.Tx) error {
		var err error
		tb, err = tx.GetTable(tableID)
		return err
	})
	return tb, err
}

// UpdateTable applies patch to a table.
func (e *Engine) UpdateTable(ctx context.Context, tableID string, patch TablePatch) (*types.Table, error) {
	var tb *types.Table
	err := e.update(ctx, "update_table", func(tx *sqlite.Tx) error {
		var err error
		tb, err = e.catalog.UpdateTable(tx, tableID, patch)
		return err
	})
	if err != nil {
		return nil, e.rejected("update_table", err)
	}
	return tb, nil
}

// ListTables returns the tables matching f in creation order. The zero
// filter lists every table.
func (e *Engine) ListTables(ctx context.Context, f types.TableFilter) ([]*types.Table, error) {
	var out []*types.Table
	err := e.view(ctx, func(tx *sqlite.Tx) error {
		var err error
		out, err = tx.ListTables(f)
		return err
	})
	return out, err
}

// DeleteTable removes a table with its fields, views, pages and responses.
// Relation fields on other tables paired with this table's fields go too.
func (e *Engine) DeleteTable(ctx context.Context, tableID string) error {
	return e.update(ctx, "delete_table", func(tx *sqlite.Tx) error {
		return e.catalog.DeleteTable(tx, tableID)
	})
}
