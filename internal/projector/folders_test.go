package projector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

func (fx *fixture) folder(f *types.Folder) *types.Folder {
	fx.t.Helper()
	require.NoError(fx.t, fx.update(func(tx *sqlite.Tx) error { return fx.proj.CreateFolder(tx, f) }))
	return f
}

func TestValidateFolderRejects(t *testing.T) {
	fx := newFixture(t)
	tb := fx.table("Tasks")
	v1 := fx.defaultView(tb).ViewID
	v2 := &types.View{TableID: tb, Label: "Board", ViewType: types.ViewTypeKanban}
	require.NoError(t, fx.update(func(tx *sqlite.Tx) error { return fx.proj.CreateView(tx, v2) }))
	other := fx.folder(&types.Folder{WorkspaceID: "other", Label: "Elsewhere"})

	tests := []struct {
		name   string
		folder types.Folder
		path   string
	}{
		{"label", types.Folder{Label: " "}, "label"},
		{"missing view", types.Folder{ViewIDs: []string{"nope"}}, "views[0]"},
		{"duplicate view", types.Folder{ViewIDs: []string{v1, v1}, ViewOrder: []string{v1}}, "views[1]"},
		{"order misses a view", types.Folder{ViewIDs: []string{v1, v2.ViewID}, ViewOrder: []string{v1}}, "view_order"},
		{"order has extra view", types.Folder{ViewIDs: []string{v1}, ViewOrder: []string{v1, v2.ViewID}}, "view_order[1]"},
		{"order repeats", types.Folder{ViewIDs: []string{v1}, ViewOrder: []string{v1, v1}}, "view_order[1]"},
		{"missing parent", types.Folder{ParentID: "nope"}, "parent"},
		{"foreign parent", types.Folder{ParentID: other.FolderID}, "parent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.folder
			f.WorkspaceID = "ws"
			if f.Label == "" {
				f.Label = "Work"
			}
			err := fx.update(func(tx *sqlite.Tx) error { return fx.proj.CreateFolder(tx, &f) })
			require.ErrorIs(t, err, types.ErrValidation)
			var ve *types.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.path)
		})
	}
}

func TestFolderViewOrder(t *testing.T) {
	fx := newFixture(t)
	tb := fx.table("Tasks")
	v1 := fx.defaultView(tb).ViewID
	v2 := &types.View{TableID: tb, Label: "Board", ViewType: types.ViewTypeKanban}
	require.NoError(t, fx.update(func(tx *sqlite.Tx) error { return fx.proj.CreateView(tx, v2) }))

	f := fx.folder(&types.Folder{WorkspaceID: "ws", Label: " Work ", ViewIDs: []string{v1, v2.ViewID}})
	assert.Equal(t, "Work", f.Label)
	assert.Equal(t, []string{v1, v2.ViewID}, f.ViewOrder, "order defaults to the views")

	f.ViewOrder = []string{v2.ViewID, v1}
	require.NoError(t, fx.update(func(tx *sqlite.Tx) error { return fx.proj.UpdateFolder(tx, f) }))
	fx.view(func(tx *sqlite.Tx) error {
		got, err := tx.GetFolder(f.FolderID)
		require.NoError(t, err)
		assert.Equal(t, []string{v2.ViewID, v1}, got.ViewOrder)
		assert.Equal(t, []string{v1, v2.ViewID}, got.ViewIDs)
		return nil
	})
}

func TestFolderNesting(t *testing.T) {
	fx := newFixture(t)
	root := fx.folder(&types.Folder{WorkspaceID: "ws", Label: "Root"})
	child := fx.folder(&types.Folder{WorkspaceID: "ws", Label: "Child", ParentID: root.FolderID})
	grandchild := fx.folder(&types.Folder{WorkspaceID: "ws", Label: "Grandchild", ParentID: child.FolderID})

	for name, parent := range map[string]string{"itself": root.FolderID, "descendant": grandchild.FolderID} {
		t.Run(name, func(t *testing.T) {
			f := *root
			f.ParentID = parent
			err := fx.update(func(tx *sqlite.Tx) error { return fx.proj.UpdateFolder(tx, &f) })
			var ve *types.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, "parent")
		})
	}

	// Moving the grandchild to the top level is fine; the workspace sticks.
	moved := *grandchild
	moved.ParentID, moved.WorkspaceID = "", "elsewhere"
	require.NoError(t, fx.update(func(tx *sqlite.Tx) error { return fx.proj.UpdateFolder(tx, &moved) }))
	assert.Equal(t, "ws", moved.WorkspaceID)

	require.NoError(t, fx.update(func(tx *sqlite.Tx) error { return fx.proj.DeleteFolder(tx, root.FolderID) }))
	fx.view(func(tx *sqlite.Tx) error {
		folders, err := tx.ListFolders("ws")
		require.NoError(t, err)
		require.Len(t, folders, 1, "deleting a folder deletes the folders inside it")
		assert.Equal(t, grandchild.FolderID, folders[0].FolderID)
		return nil
	})
}
