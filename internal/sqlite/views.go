package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

const viewCols = "view_id, table_id, label, description, view_type, is_default, field_ids, fields_order, sort_by, filter_by, " + auditCols

// InsertView creates a view row, assigning an id when ViewID is empty.
func (t *Tx) InsertView(v *types.View) error {
	if v.ViewID == "" {
		v.ViewID = newID()
	}
	t.stamp(&v.Audit, true)
	cols, err := viewJSONColumns(v)
	if err != nil {
		return err
	}
	args := append([]any{v.ViewID, v.TableID, v.Label, v.Description, int(v.ViewType), boolInt(v.IsDefault)}, cols...)
	args = append(args, v.FilterBy)
	args = append(args, auditArgs(v.Audit)...)
	_, err = t.exec("inserting view",
		"INSERT INTO views ("+viewCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
	return err
}

// UpdateView rewrites every mutable column of the view.
func (t *Tx) UpdateView(v *types.View) error {
	t.stamp(&v.Audit, false)
	cols, err := viewJSONColumns(v)
	if err != nil {
		return err
	}
	args := append([]any{v.Label, v.Description, int(v.ViewType), boolInt(v.IsDefault)}, cols...)
	args = append(args, v.FilterBy, formatTime(v.UpdatedAt), v.UpdatedBy, v.ViewID)
	return t.execOne("updating view", "view", v.ViewID,
		`UPDATE views SET label = ?, description = ?, view_type = ?, is_default = ?,
		 field_ids = ?, fields_order = ?, sort_by = ?, filter_by = ?, updated_at = ?, updated_by = ?
		 WHERE view_id = ?`, args...)
}

// ClearDefault demotes every default view of tableID except keepID.
func (t *Tx) ClearDefault(tableID, keepID string) error {
	_, err := t.exec("clearing default view",
		"UPDATE views SET is_default = 0, updated_at = ?, updated_by = ? WHERE table_id = ? AND is_default = 1 AND view_id != ?",
		formatTime(t.now), t.actor, tableID, keepID)
	return err
}

// GetView returns the view or a *types.NotFoundError.
func (t *Tx) GetView(id string) (*types.View, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	v, err := hydrateView(t.queryRow("SELECT "+viewCols+" FROM views WHERE view_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("view", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting view %s: %w", id, err)
	}
	return v, nil
}

// DefaultView returns the default view of a table.
func (t *Tx) DefaultView(tableID string) (*types.View, error) {
	v, err := hydrateView(t.queryRow(
		"SELECT "+viewCols+" FROM views WHERE table_id = ? AND is_default = 1", tableID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("default view of table", tableID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting default view of %s: %w", tableID, err)
	}
	return v, nil
}

// ListViews returns the views of a table in creation order.
func (t *Tx) ListViews(tableID string) ([]*types.View, error) {
	rows, err := t.query("SELECT "+viewCols+" FROM views WHERE table_id = ? ORDER BY rowid", tableID)
	if err != nil {
		return nil, fmt.Errorf("listing views: %w", err)
	}
	defer rows.Close()

	var out []*types.View
	for rows.Next() {
		v, err := hydrateView(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning view: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteView removes a view and takes it out of every folder.
func (t *Tx) DeleteView(id string) error {
	if err := t.execOne("deleting view", "view", id, "DELETE FROM views WHERE view_id = ?", id); err != nil {
		return err
	}
	return t.dropFolderViews([]string{id})
}

func viewJSONColumns(v *types.View) ([]any, error) {
	out := make([]any, 0, 3)
	for _, x := range []any{nonNil(v.FieldIDs), nonNil(v.FieldsOrder), nonNil(v.SortBy)} {
		b, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("encoding view: %w", err)
		}
		out = append(out, string(b))
	}
	return out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func hydrateView(row scanner) (*types.View, error) {
	v := &types.View{}
	var (
		viewType                      int
		isDefault                     int
		fieldIDs, fieldsOrder, sortBy string
	)
	audit := scanAuditInto(&v.Audit)
	dest := append([]any{&v.ViewID, &v.TableID, &v.Label, &v.Description, &viewType, &isDefault,
		&fieldIDs, &fieldsOrder, &sortBy, &v.FilterBy}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	v.ViewType = types.ViewType(viewType)
	v.IsDefault = isDefault != 0
	if err := json.Unmarshal([]byte(fieldIDs), &v.FieldIDs); err != nil {
		return nil, fmt.Errorf("decoding field_ids: %w", err)
	}
	if err := json.Unmarshal([]byte(fieldsOrder), &v.FieldsOrder); err != nil {
		return nil, fmt.Errorf("decoding fields_order: %w", err)
	}
	if err := json.Unmarshal([]byte(sortBy), &v.SortBy); err != nil {
		return nil, fmt.Errorf("decoding sort_by: %w", err)
	}
	return v, audit.finish()
}
