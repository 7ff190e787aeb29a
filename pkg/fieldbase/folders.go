package fieldbase

import (
	"context"

	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// CreateFolder stores a new folder of views. A nil ViewOrder takes the
// order of ViewIDs.
func (e *Engine) CreateFolder(ctx context.Context, f *types.Folder) (*types.Folder, error) {
	err := e.update(ctx, "create_folder", func(tx *sqlite.Tx) error {
		f.FolderID = ""
		return e.projector.CreateFolder(tx, f)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// UpdateFolder rewrites the parent, label, views and view order of a
// folder.
func (e *Engine) UpdateFolder(ctx context.Context, f *types.Folder) (*types.Folder, error) {
	err := e.update(ctx, "update_folder", func(tx *sqlite.Tx) error {
		return e.projector.UpdateFolder(tx, f)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// GetFolder returns one folder.
func (e *Engine) GetFolder(ctx context.Context, folderID string) (*types.Folder, error) {
	var f *types.Folder
	err := e.view(ctx, func(tx *sqlite.Tx) error {
		var err error
		f, err = tx.GetFolder(folderID)
		return err
	})
	return f, err
}

// ListFolders returns the folders of a workspace in creation order. An
// empty workspaceID lists every folder.
func (e *Engine) ListFolders(ctx context.Context, workspaceID string) ([]*types.Folder, error) {
	var out []*types.Folder
	err := e.view(ctx, func(tx *sqlite.Tx) error {
		var err error
		out, err = tx.ListFolders(workspaceID)
		return err
	})
	return out, err
}

// DeleteFolder removes a folder and the folders nested inside it.
func (e *Engine) DeleteFolder(ctx context.Context, folderID string) error {
	return e.update(ctx, "delete_folder", func(tx *sqlite.Tx) error {
		return e.projector.DeleteFolder(tx, folderID)
	})
}
