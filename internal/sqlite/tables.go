package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

const tableCols = "table_id, workspace_id, name, description, " + auditCols

// InsertTable creates a table row, assigning an id when TableID is empty.
func (t *Tx) InsertTable(tb *types.Table) error {
	if tb.TableID == "" {
		tb.TableID = newID()
	}
	t.stamp(&tb.Audit, true)
	args := append([]any{tb.TableID, tb.WorkspaceID, tb.Name, tb.Description}, auditArgs(tb.Audit)...)
	_, err := t.exec("inserting table",
		"INSERT INTO tables ("+tableCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)", args...)
	return err
}

// UpdateTable rewrites name and description.
func (t *Tx) UpdateTable(tb *types.Table) error {
	t.stamp(&tb.Audit, false)
	return t.execOne("updating table", "table", tb.TableID,
		"UPDATE tables SET name = ?, description = ?, updated_at = ?, updated_by = ? WHERE table_id = ?",
		tb.Name, tb.Description, formatTime(tb.UpdatedAt), tb.UpdatedBy, tb.TableID)
}

// GetTable returns the table or a *types.NotFoundError.
func (t *Tx) GetTable(id string) (*types.Table, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	tb, err := hydrateTable(t.queryRow("SELECT "+tableCols+" FROM tables WHERE table_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("table", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting table %s: %w", id, err)
	}
	return tb, nil
}

// ListTables returns the tables matching f in creation order.
func (t *Tx) ListTables(f types.TableFilter) ([]*types.Table, error) {
	var (
		where []string
		args  []any
	)
	if f.WorkspaceID != "" {
		where = append(where, "workspace_id = ?")
		args = append(args, f.WorkspaceID)
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		where = append(where, "instr(lower(name), lower(?)) > 0")
		args = append(args, name)
	}
	q := "SELECT " + tableCols + " FROM tables"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := t.query(q+" ORDER BY rowid", args...)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var out []*types.Table
	for rows.Next() {
		tb, err := hydrateTable(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning table: %w", err)
		}
		out = append(out, tb)
	}
	return out, rows.Err()
}

// DeleteTable removes the table. Fields, configs, views, pages and
// responses go with it through ON DELETE CASCADE. Its views are taken out
// of every folder.
func (t *Tx) DeleteTable(id string) error {
	views, err := t.ListViews(id)
	if err != nil {
		return err
	}
	if err := t.execOne("deleting table", "table", id, "DELETE FROM tables WHERE table_id = ?", id); err != nil {
		return err
	}
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ViewID
	}
	return t.dropFolderViews(ids)
}

func hydrateTable(row scanner) (*types.Table, error) {
	tb := &types.Table{}
	audit := scanAuditInto(&tb.Audit)
	dest := append([]any{&tb.TableID, &tb.WorkspaceID, &tb.Name, &tb.Description}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return tb, audit.finish()
}
