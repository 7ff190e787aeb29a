package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

const folderCols = "folder_id, workspace_id, parent_id, label, view_ids, view_order, " + auditCols

// InsertFolder creates a folder row, assigning an id when FolderID is empty.
func (t *Tx) InsertFolder(f *types.Folder) error {
	if f.FolderID == "" {
		f.FolderID = newID()
	}
	t.stamp(&f.Audit, true)
	views, order, err := folderJSONColumns(f)
	if err != nil {
		return err
	}
	args := append([]any{f.FolderID, f.WorkspaceID, nullString(f.ParentID), f.Label, views, order}, auditArgs(f.Audit)...)
	_, err = t.exec("inserting folder",
		"INSERT INTO folders ("+folderCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
	return err
}

// UpdateFolder rewrites the parent, label and views of the folder.
func (t *Tx) UpdateFolder(f *types.Folder) error {
	t.stamp(&f.Audit, false)
	views, order, err := folderJSONColumns(f)
	if err != nil {
		return err
	}
	return t.execOne("updating folder", "folder", f.FolderID,
		`UPDATE folders SET parent_id = ?, label = ?, view_ids = ?, view_order = ?, updated_at = ?, updated_by = ?
		 WHERE folder_id = ?`,
		nullString(f.ParentID), f.Label, views, order, formatTime(f.UpdatedAt), f.UpdatedBy, f.FolderID)
}

// GetFolder returns the folder or a *types.NotFoundError.
func (t *Tx) GetFolder(id string) (*types.Folder, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	f, err := hydrateFolder(t.queryRow("SELECT "+folderCols+" FROM folders WHERE folder_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("folder", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting folder %s: %w", id, err)
	}
	return f, nil
}

// ListFolders returns the folders of a workspace in creation order. An
// empty workspaceID lists every folder.
func (t *Tx) ListFolders(workspaceID string) ([]*types.Folder, error) {
	q, args := "SELECT "+folderCols+" FROM folders", []any(nil)
	if workspaceID != "" {
		q += " WHERE workspace_id = ?"
		args = append(args, workspaceID)
	}
	rows, err := t.query(q+" ORDER BY rowid", args...)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	defer rows.Close()

	var out []*types.Folder
	for rows.Next() {
		f, err := hydrateFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning folder: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFolder removes a folder. Child folders go with it through ON
// DELETE CASCADE.
func (t *Tx) DeleteFolder(id string) error {
	return t.execOne("deleting folder", "folder", id, "DELETE FROM folders WHERE folder_id = ?", id)
}

// dropFolderViews removes viewIDs from the views and view order of every
// folder listing them.
func (t *Tx) dropFolderViews(viewIDs []string) error {
	if len(viewIDs) == 0 {
		return nil
	}
	folders, err := t.ListFolders("")
	if err != nil {
		return err
	}
	gone := func(id string) bool { return slices.Contains(viewIDs, id) }
	for _, f := range folders {
		if !slices.ContainsFunc(f.ViewIDs, gone) && !slices.ContainsFunc(f.ViewOrder, gone) {
			continue
		}
		f.ViewIDs = slices.DeleteFunc(f.ViewIDs, gone)
		f.ViewOrder = slices.DeleteFunc(f.ViewOrder, gone)
		if err := t.UpdateFolder(f); err != nil {
			return err
		}
	}
	return nil
}

func folderJSONColumns(f *types.Folder) (string, string, error) {
	views, err := json.Marshal(nonNil(f.ViewIDs))
	if err != nil {
		return "", "", fmt.Errorf("encoding folder views: %w", err)
	}
	order, err := json.Marshal(nonNil(f.ViewOrder))
	if err != nil {
		return "", "", fmt.Errorf("encoding folder view order: %w", err)
	}
	return string(views), string(order), nil
}

func hydrateFolder(row scanner) (*types.Folder, error) {
	f := &types.Folder{}
	var (
		parent       sql.NullString
		views, order string
	)
	audit := scanAuditInto(&f.Audit)
	dest := append([]any{&f.FolderID, &f.WorkspaceID, &parent, &f.Label, &views, &order}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	f.ParentID = parent.String
	if err := json.Unmarshal([]byte(views), &f.ViewIDs); err != nil {
		return nil, fmt.Errorf("decoding view_ids: %w", err)
	}
	if err := json.Unmarshal([]byte(order), &f.ViewOrder); err != nil {
		return nil, fmt.Errorf("decoding view_order: %w", err)
	}
	return f, audit.finish()
}
