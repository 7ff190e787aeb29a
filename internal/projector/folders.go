package projector

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/fieldbase/internal/metrics"
	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// ValidateFolder checks a folder before it is stored. The parent must be a
// folder of the same workspace that is not the folder itself or one of its
// descendants. Listed views must exist, and view_order must list exactly
// the folder's views.
func (p *Projector) ValidateFolder(tx *sqlite.Tx, f *types.Folder) error {
	ve := &types.ValidationError{}
	if f.Label == "" {
		ve.Add("label", "label is required")
	}
	if f.ParentID != "" {
		if err := checkParent(tx, f, ve); err != nil {
			return err
		}
	}

	inSet := make(map[string]bool, len(f.ViewIDs))
	for i, id := range f.ViewIDs {
		path := fmt.Sprintf("views[%d]", i)
		if inSet[id] {
			ve.Add(path, fmt.Sprintf("view %s is listed more than once", id))
			continue
		}
		inSet[id] = true
		if _, err := tx.GetView(id); err != nil {
			if !errors.Is(err, types.ErrNotFound) && !errors.Is(err, types.ErrInvalidID) {
				return err
			}
			ve.Add(path, fmt.Sprintf("view %q does not exist", id))
		}
	}

	ordered := make(map[string]bool, len(f.ViewOrder))
	for i, id := range f.ViewOrder {
		path := fmt.Sprintf("view_order[%d]", i)
		switch {
		case ordered[id]:
			ve.Add(path, fmt.Sprintf("view %s is ordered more than once", id))
		case !inSet[id]:
			ve.Add(path, fmt.Sprintf("view %s is not one of the folder's views", id))
		}
		ordered[id] = true
	}
	for _, id := range f.ViewIDs {
		if !ordered[id] {
			ve.Add("view_order", "views and view_order must list the same views")
			break
		}
	}

	if err := ve.OrNil(); err != nil {
		metrics.ValidationFailures.WithLabelValues("save_folder").Inc()
		return err
	}
	return nil
}

// checkParent walks up from f's parent, recording a problem in ve when the
// parent is missing, lives in another workspace, or is f or a descendant.
func checkParent(tx *sqlite.Tx, f *types.Folder, ve *types.ValidationError) error {
	parent, err := tx.GetFolder(f.ParentID)
	if errors.Is(err, types.ErrNotFound) {
		ve.Add("parent", fmt.Sprintf("folder %s does not exist", f.ParentID))
		return nil
	}
	if err != nil {
		return err
	}
	if parent.WorkspaceID != f.WorkspaceID {
		ve.Add("parent", fmt.Sprintf("folder %s belongs to another workspace", f.ParentID))
		return nil
	}
	seen := map[string]bool{}
	for cur := parent; ; {
		if f.FolderID != "" && cur.FolderID == f.FolderID {
			ve.Add("parent", "a folder cannot be nested inside itself")
			return nil
		}
		if cur.ParentID == "" || seen[cur.FolderID] {
			return nil
		}
		seen[cur.FolderID] = true
		if cur, err = tx.GetFolder(cur.ParentID); err != nil {
			return err
		}
	}
}

// CreateFolder validates and stores a new folder. A nil ViewOrder takes
// the order of ViewIDs.
func (p *Projector) CreateFolder(tx *sqlite.Tx, f *types.Folder) error {
	f.Label = strings.TrimSpace(f.Label)
	if f.ViewOrder == nil {
		f.ViewOrder = slices.Clone(f.ViewIDs)
	}
	if err := p.ValidateFolder(tx, f); err != nil {
		return err
	}
	if err := tx.InsertFolder(f); err != nil {
		return err
	}
	p.log.Debugw("created folder", "folder", f.FolderID, "workspace", f.WorkspaceID, "parent", f.ParentID)
	return nil
}

// UpdateFolder validates and rewrites f. The workspace of a folder never
// changes; the stored one wins over f.WorkspaceID.
func (p *Projector) UpdateFolder(tx *sqlite.Tx, f *types.Folder) error {
	cur, err := tx.GetFolder(f.FolderID)
	if err != nil {
		return err
	}
	f.WorkspaceID = cur.WorkspaceID
	f.Label = strings.TrimSpace(f.Label)
	if err := p.ValidateFolder(tx, f); err != nil {
		return err
	}
	f.CreatedAt, f.CreatedBy = cur.CreatedAt, cur.CreatedBy
	if err := tx.UpdateFolder(f); err != nil {
		return err
	}
	p.log.Debugw("updated folder", "folder", f.FolderID, "parent", f.ParentID)
	return nil
}

// DeleteFolder removes a folder with every folder nested inside it. The
// views it lists are left alone.
func (p *Projector) DeleteFolder(tx *sqlite.Tx, folderID string) error {
	if err := tx.DeleteFolder(folderID); err != nil {
		return err
	}
	p.log.Debugw("deleted folder", "folder", folderID)
	return nil
}
