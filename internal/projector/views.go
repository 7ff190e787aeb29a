package projector

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/fieldbase/internal/metrics"
	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// ValidateView checks a view before it is stored. Sort directions must be
// asc or desc, sort fields and ordering entries must belong to the view's
// field set, and every listed field must exist on the view's table.
func (p *Projector) ValidateView(tx *sqlite.Tx, v *types.View) error {
	ve := &types.ValidationError{}
	if strings.TrimSpace(v.Label) == "" {
		ve.Add("label", "label is required")
	}
	if !v.ViewType.Valid() {
		ve.Add("view_type", fmt.Sprintf("%d is not a valid choice", v.ViewType))
	}

	fields, err := tx.ListFields(v.TableID)
	if err != nil {
		return err
	}
	onTable := make(map[string]bool, len(fields))
	for _, f := range fields {
		onTable[f.FieldID] = true
	}
	inSet := onTable
	if len(v.FieldIDs) > 0 {
		inSet = make(map[string]bool, len(v.FieldIDs))
		for i, id := range v.FieldIDs {
			switch {
			case !onTable[id]:
				ve.Add(fmt.Sprintf("fields[%d]", i), fmt.Sprintf("field %s is not a field of this table", id))
			case inSet[id]:
				ve.Add(fmt.Sprintf("fields[%d]", i), fmt.Sprintf("field %s is listed more than once", id))
			}
			inSet[id] = true
		}
	}

	seen := make(map[string]bool, len(v.FieldsOrder))
	for i, id := range v.FieldsOrder {
		switch {
		case !inSet[id] || !onTable[id]:
			ve.Add(fmt.Sprintf("fields_order[%d]", i), fmt.Sprintf("field %s is not part of the view", id))
		case seen[id]:
			ve.Add(fmt.Sprintf("fields_order[%d]", i), fmt.Sprintf("field %s is ordered more than once", id))
		}
		seen[id] = true
	}

	for i, s := range v.SortBy {
		if s.Direction != types.SortAsc && s.Direction != types.SortDesc {
			ve.Add(fmt.Sprintf("sort_by[%d].direction", i),
				fmt.Sprintf("%q is not a valid direction, use %q or %q", s.Direction, types.SortAsc, types.SortDesc))
		}
		if !inSet[s.FieldID] || !onTable[s.FieldID] {
			ve.Add(fmt.Sprintf("sort_by[%d].field", i), fmt.Sprintf("field %s is not part of the view", s.FieldID))
		}
	}

	if err := ve.OrNil(); err != nil {
		metrics.ValidationFailures.WithLabelValues("save_view").Inc()
		return err
	}
	return nil
}

// CreateView validates and stores a new view. A default view demotes the
// table's previous default.
func (p *Projector) CreateView(tx *sqlite.Tx, v *types.View) error {
	if _, err := tx.GetTable(v.TableID); err != nil {
		return err
	}
	v.Label = strings.TrimSpace(v.Label)
	if err := p.ValidateView(tx, v); err != nil {
		return err
	}
	if v.IsDefault {
		if err := tx.ClearDefault(v.TableID, ""); err != nil {
			return err
		}
	}
	if err := tx.InsertView(v); err != nil {
		return err
	}
	p.log.Debugw("created view", "view", v.ViewID, "table", v.TableID, "default", v.IsDefault)
	return nil
}

// UpdateView validates and rewrites v. The stored table of the view wins
// over v.TableID. Clearing IsDefault on the default view is ignored; use
// SetDefault on another view instead.
func (p *Projector) UpdateView(tx *sqlite.Tx, v *types.View) error {
	cur, err := tx.GetView(v.ViewID)
	if err != nil {
		return err
	}
	v.TableID = cur.TableID
	v.Label = strings.TrimSpace(v.Label)
	if cur.IsDefault {
		v.IsDefault = true
	}
	if err := p.ValidateView(tx, v); err != nil {
		return err
	}
	if v.IsDefault && !cur.IsDefault {
		if err := tx.ClearDefault(v.TableID, v.ViewID); err != nil {
			return err
		}
		p.log.Infow("default view changed", "table", v.TableID, "view", v.ViewID)
	}
	v.CreatedAt, v.CreatedBy = cur.CreatedAt, cur.CreatedBy
	return tx.UpdateView(v)
}

// SetDefault makes viewID the default view of its table, demoting the
// previous default.
func (p *Projector) SetDefault(tx *sqlite.Tx, viewID string) (*types.View, error) {
	v, err := tx.GetView(viewID)
	if err != nil {
		return nil, err
	}
	if v.IsDefault {
		return v, nil
	}
	if err := tx.ClearDefault(v.TableID, v.ViewID); err != nil {
		return nil, err
	}
	v.IsDefault = true
	if err := tx.UpdateView(v); err != nil {
		return nil, err
	}
	p.log.Infow("default view changed", "table", v.TableID, "view", v.ViewID)
	return v, nil
}

// DeleteView removes a view. Deleting the default view promotes the oldest
// remaining view; the last view of a table cannot be deleted.
func (p *Projector) DeleteView(tx *sqlite.Tx, viewID string) error {
	v, err := tx.GetView(viewID)
	if err != nil {
		return err
	}
	views, err := tx.ListViews(v.TableID)
	if err != nil {
		return err
	}
	if len(views) == 1 {
		return types.Validationf("view", "view %s is the last view of its table", viewID)
	}
	if err := tx.DeleteView(viewID); err != nil {
		return err
	}
	if !v.IsDefault {
		return nil
	}
	for _, next := range views {
		if next.ViewID != viewID {
			_, err := p.SetDefault(tx, next.ViewID)
			return err
		}
	}
	return nil
}
