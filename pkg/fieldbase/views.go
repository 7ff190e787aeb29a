package fieldbase

import (
	"context"

	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// CreateView stores a new view. A view created as default demotes the
// table's previous default.
func (e *Engine) CreateView(ctx context.Context, v *types.View) (*types.View, error) {
	err := e.update(ctx, "create_view", func(tx *sqlite.Tx) error {
		v.ViewID = ""
		return e.projector.CreateView(tx, v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateView rewrites a view after checking its sort and ordering lists.
func (e *Engine) UpdateView(ctx context.Context, v *types.View) (*types.View, error) {
	err := e.update(ctx, "update_view", func(tx *sqlite.Tx) error {
		return e.projector.UpdateView(tx, v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// SetDefaultView makes viewID the only default view of its table.
func (e *Engine) SetDefaultView(ctx context.Context, viewID string) (*types.View, error) {
	var v *types.View
	err := e.update(ctx, "set_default_view", func(tx *sqlite.Tx) error {
		var err error
		v, err = e.projector.SetDefault(tx, viewID)
		return err
	})
	return v, err
}

// DeleteView removes a view. The last view of a table cannot be removed.
func (e *Engine) DeleteView(ctx context.Context, viewID string) error {
	return e.update(ctx, "delete_view", func(tx *sqlite.Tx) error {
		return e.projector.DeleteView(tx, viewID)
	})
}

// ListViews returns the views of a table in creation order.
func (e *Engine) ListViews(ctx context.Context, tableID string) ([]*types.View, error) {
	var out []*types.View
	err := e.view(ctx, func(tx *sqlite.Tx) error {
		var err error
		out, err = tx.ListViews(tableID)
		return err
	})
	return out, err
}

// GetView returns a view with its fields in display order.
func (e *Engine) GetView(ctx context.Context, viewID string) (*ViewDocument, error) {
	var doc *ViewDocument
	err := e.view(ctx, func(tx *sqlite.Tx) error {
		var err error
		doc, err = e.projector.GetView(tx, viewID)
		return err
	})
	return doc, err
}

// ListPages returns one row of serialized values per page of the view's
// table, sorted by the view's sort_by.
func (e *Engine) ListPages(ctx context.Context, viewID string) ([]PageRow, error) {
	var rows []PageRow
	err := e.view(ctx, func(tx *sqlite.Tx) error {
		var err error
		rows, err = e.projector.ListPages(tx, viewID)
		return err
	})
	return rows, err
}
