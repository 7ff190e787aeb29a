package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

const fieldCols = "field_id, table_id, label, field_type, config_id, " + auditCols

// InsertField creates a field row, assigning an id when FieldID is empty.
// The config is written separately with InsertConfig.
func (t *Tx) InsertField(f *types.Field) error {
	if f.FieldID == "" {
		f.FieldID = newID()
	}
	t.stamp(&f.Audit, true)
	args := append([]any{f.FieldID, f.TableID, f.Label, string(f.FieldType), nullString(f.ConfigID)},
		auditArgs(f.Audit)...)
	_, err := t.exec("inserting field",
		"INSERT INTO fields ("+fieldCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
	return err
}

// UpdateField rewrites label, type and config pointer.
func (t *Tx) UpdateField(f *types.Field) error {
	t.stamp(&f.Audit, false)
	return t.execOne("updating field", "field", f.FieldID,
		"UPDATE fields SET label = ?, field_type = ?, config_id = ?, updated_at = ?, updated_by = ? WHERE field_id = ?",
		f.Label, string(f.FieldType), nullString(f.ConfigID), formatTime(f.UpdatedAt), f.UpdatedBy, f.FieldID)
}

// GetField returns the field or a *types.NotFoundError.
func (t *Tx) GetField(id string) (*types.Field, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	f, err := hydrateField(t.queryRow("SELECT "+fieldCols+" FROM fields WHERE field_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("field", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting field %s: %w", id, err)
	}
	return f, nil
}

// ListFields returns the fields of a table in creation order.
func (t *Tx) ListFields(tableID string) ([]*types.Field, error) {
	rows, err := t.query("SELECT "+fieldCols+" FROM fields WHERE table_id = ? ORDER BY rowid", tableID)
	if err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}
	defer rows.Close()

	var out []*types.Field
	for rows.Next() {
		f, err := hydrateField(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning field: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteField removes the field together with its config, options and
// responses.
func (t *Tx) DeleteField(id string) error {
	return t.execOne("deleting field", "field", id, "DELETE FROM fields WHERE field_id = ?", id)
}

func hydrateField(row scanner) (*types.Field, error) {
	f := &types.Field{}
	var fieldType string
	var configID sql.NullString
	audit := scanAuditInto(&f.Audit)
	dest := append([]any{&f.FieldID, &f.TableID, &f.Label, &fieldType, &configID}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	f.FieldType = types.FieldType(fieldType)
	f.ConfigID = configID.String
	return f, audit.finish()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
