package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// seed creates a table with one field of type ft and its config.
func seed(t *testing.T, b *Backend, ft types.FieldType, cfg types.FieldConfig) (*types.Table, *types.Field) {
	t.Helper()
	tb := &types.Table{Name: "Tasks"}
	f := &types.Field{Label: "F", FieldType: ft}
	require.NoError(t, b.Update(context.Background(), func(tx *Tx) error {
		if err := tx.InsertTable(tb); err != nil {
			return err
		}
		f.TableID = tb.TableID
		if err := tx.InsertField(f); err != nil {
			return err
		}
		cfg.Base().FieldID = f.FieldID
		if err := tx.InsertConfig(cfg); err != nil {
			return err
		}
		f.ConfigID = cfg.Base().ConfigID
		return tx.UpdateField(f)
	}))
	return tb, f
}

func TestFields_CreationOrderAndNotFound(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	tb, first := seed(t, b, types.FieldTypeText, &types.TextConfig{DisplayFormat: types.TextEmail})

	require.NoError(t, b.Update(ctx, func(tx *Tx) error {
		for _, label := range []string{"B", "A"} {
			if err := tx.InsertField(&types.Field{TableID: tb.TableID, Label: label, FieldType: types.FieldTypeNumber}); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, b.View(ctx, func(tx *Tx) error {
		fields, err := tx.ListFields(tb.TableID)
		require.NoError(t, err)
		require.Len(t, fields, 3)
		assert.Equal(t, []string{"F", "B", "A"}, []string{fields[0].Label, fields[1].Label, fields[2].Label})
		assert.Equal(t, first.ConfigID, fields[0].ConfigID)

		cfg, err := tx.GetConfig(first.FieldID)
		require.NoError(t, err)
		tc, ok := cfg.(*types.TextConfig)
		require.True(t, ok)
		assert.Equal(t, types.TextEmail, tc.DisplayFormat)
		assert.Equal(t, first.FieldID, tc.FieldID)

		_, err = tx.GetField("missing")
		assert.ErrorIs(t, err, types.ErrNotFound)
		_, err = tx.GetConfig("missing")
		assert.ErrorIs(t, err, types.ErrNotFound)
		return nil
	}))
}

func TestConfigs_ChoiceOptionsSync(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	cfg := &types.ChoiceConfig{
		DisplayFormat: types.ChoiceDropdown,
		Options: []types.ChoiceOption{
			{Label: "Open", Value: "open"},
			{Label: "Closed", Value: "closed"},
		},
	}
	_, f := seed(t, b, types.FieldTypeChoice, cfg)
	openID, closedID := cfg.Options[0].OptionID, cfg.Options[1].OptionID
	require.NotEmpty(t, openID)

	// Keep "Open" (renamed), drop "Closed", add "Blocked".
	update := &types.ChoiceConfig{
		ConfigBase:    cfg.ConfigBase,
		DisplayFormat: types.ChoiceTags,
		Options: []types.ChoiceOption{
			{Label: "Blocked", Value: "blocked"},
			{OptionID: openID, Label: "Opened", Value: "open"},
		},
	}
	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.UpdateConfig(update) }))

	require.NoError(t, b.View(ctx, func(tx *Tx) error {
		got, err := tx.GetConfig(f.FieldID)
		require.NoError(t, err)
		cc := got.(*types.ChoiceConfig)
		assert.Equal(t, types.ChoiceTags, cc.DisplayFormat)
		require.Len(t, cc.Options, 2)
		assert.Equal(t, "Blocked", cc.Options[0].Label)
		assert.Equal(t, openID, cc.Options[1].OptionID)
		assert.Equal(t, "Opened", cc.Options[1].Label)
		assert.Equal(t, 1, cc.Options[1].Ordinal)

		_, err = tx.GetOption(closedID)
		assert.ErrorIs(t, err, types.ErrNotFound)
		o, err := tx.GetOption(openID)
		require.NoError(t, err)
		assert.Equal(t, cc.ConfigID, o.ConfigID)
		return nil
	}))

	// Options go with their field.
	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.DeleteField(f.FieldID) }))
	require.NoError(t, b.View(ctx, func(tx *Tx) error {
		_, err := tx.GetOption(openID)
		assert.ErrorIs(t, err, types.ErrNotFound)
		return nil
	}))
}

func TestConfigs_MirrorUniqueness(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	tb, target := seed(t, b, types.FieldTypeRelation, &types.RelationConfig{})

	insertPointingAt := func(tx *Tx, label string) error {
		f := &types.Field{TableID: tb.TableID, Label: label, FieldType: types.FieldTypeRelation}
		if err := tx.InsertField(f); err != nil {
			return err
		}
		return tx.InsertConfig(&types.RelationConfig{
			ConfigBase:     types.ConfigBase{FieldID: f.FieldID},
			SourceFieldID:  f.FieldID,
			RelatedFieldID: target.FieldID,
			RelatedTableID: tb.TableID,
		})
	}

	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return insertPointingAt(tx, "M1") }))
	err := b.Update(ctx, func(tx *Tx) error { return insertPointingAt(tx, "M2") })
	assert.ErrorIs(t, err, types.ErrIntegrity)

	require.NoError(t, b.View(ctx, func(tx *Tx) error {
		rels, err := tx.RelationsPointingAt(target.FieldID)
		require.NoError(t, err)
		require.Len(t, rels, 1)
		assert.Equal(t, target.FieldID, rels[0].RelatedFieldID)

		fields, err := tx.ListFields(tb.TableID)
		require.NoError(t, err)
		assert.Len(t, fields, 2, "the losing insert must roll back")
		return nil
	}))
}

func TestViews_SingleDefaultPerTable(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	tb, f := seed(t, b, types.FieldTypeText, &types.TextConfig{})

	v1 := &types.View{TableID: tb.TableID, Label: "Table", IsDefault: true, SortBy: []types.SortSpec{{FieldID: f.FieldID, Direction: types.SortDesc}}}
	v2 := &types.View{TableID: tb.TableID, Label: "Board", ViewType: types.ViewTypeKanban, IsDefault: true}
	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.InsertView(v1) }))

	err := b.Update(ctx, func(tx *Tx) error { return tx.InsertView(v2) })
	assert.ErrorIs(t, err, types.ErrIntegrity)

	v2.ViewID = ""
	require.NoError(t, b.Update(ctx, func(tx *Tx) error {
		if err := tx.ClearDefault(tb.TableID, ""); err != nil {
			return err
		}
		return tx.InsertView(v2)
	}))

	require.NoError(t, b.View(ctx, func(tx *Tx) error {
		def, err := tx.DefaultView(tb.TableID)
		require.NoError(t, err)
		assert.Equal(t, v2.ViewID, def.ViewID)
		assert.Equal(t, types.ViewTypeKanban, def.ViewType)

		got, err := tx.GetView(v1.ViewID)
		require.NoError(t, err)
		assert.False(t, got.IsDefault)
		assert.Equal(t, v1.SortBy, got.SortBy)
		assert.Equal(t, []string{}, got.FieldIDs)

		views, err := tx.ListViews(tb.TableID)
		require.NoError(t, err)
		assert.Len(t, views, 2)
		return nil
	}))
}

func TestResponses_UpsertLastWriteWins(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	tb, f := seed(t, b, types.FieldTypeNumber, &types.NumberConfig{})

	p := &types.Page{TableID: tb.TableID, Title: "P", Attachments: []string{"a2", "a1"}}
	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.InsertPage(p) }))

	first := &types.FieldResponse{PageID: p.PageID, FieldID: f.FieldID, Data: map[string]any{"value": 1.0}}
	second := &types.FieldResponse{PageID: p.PageID, FieldID: f.FieldID, Data: map[string]any{"value": 2.5}}
	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.UpsertResponse(first) }))
	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.UpsertResponse(second) }))
	assert.Equal(t, first.ResponseID, second.ResponseID)

	require.NoError(t, b.View(ctx, func(tx *Tx) error {
		got, err := tx.GetResponse(p.PageID, f.FieldID)
		require.NoError(t, err)
		assert.Equal(t, 2.5, got.Value())

		byPage, err := tx.TableResponses(tb.TableID)
		require.NoError(t, err)
		assert.Len(t, byPage[p.PageID], 1)

		page, err := tx.GetPage(p.PageID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a2", "a1"}, page.Attachments)
		return nil
	}))

	// Deleting the page cascades to its responses.
	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.DeletePage(p.PageID) }))
	require.NoError(t, b.View(ctx, func(tx *Tx) error {
		_, err := tx.GetResponse(p.PageID, f.FieldID)
		assert.ErrorIs(t, err, types.ErrNotFound)
		return nil
	}))
}

func TestTables_DeleteCascades(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	tb, f := seed(t, b, types.FieldTypeBoolean, &types.BooleanConfig{})

	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.DeleteTable(tb.TableID) }))
	require.NoError(t, b.View(ctx, func(tx *Tx) error {
		_, err := tx.GetField(f.FieldID)
		assert.ErrorIs(t, err, types.ErrNotFound)
		_, err = tx.GetConfig(f.FieldID)
		assert.ErrorIs(t, err, types.ErrNotFound)
		return nil
	}))

	err := b.Update(ctx, func(tx *Tx) error { return tx.DeleteTable(tb.TableID) })
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAttachments_Metadata(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	a := &types.Attachment{Name: "logo.png", ContentType: "image/png", Kind: types.FileKindImage, Size: 1024}
	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.InsertAttachment(a) }))
	require.NoError(t, b.View(ctx, func(tx *Tx) error {
		got, err := tx.GetAttachment(a.AttachmentID)
		require.NoError(t, err)
		assert.Equal(t, int64(1024), got.Size)
		assert.Equal(t, types.FileKindImage, got.Kind)
		return nil
	}))
	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.DeleteAttachment(a.AttachmentID) }))
}

func TestAttachments_DeleteDropsReferences(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	tb, f := seed(t, b, types.FieldTypeFile, &types.FileConfig{IsMultiple: true})
	gone := &types.Attachment{Name: "old.png", Kind: types.FileKindImage}
	kept := &types.Attachment{Name: "new.png", Kind: types.FileKindImage}
	p := &types.Page{TableID: tb.TableID, Title: "P"}

	require.NoError(t, b.Update(ctx, func(tx *Tx) error {
		for _, a := range []*types.Attachment{gone, kept} {
			if err := tx.InsertAttachment(a); err != nil {
				return err
			}
		}
		p.Attachments = []string{gone.AttachmentID, kept.AttachmentID}
		if err := tx.InsertPage(p); err != nil {
			return err
		}
		return tx.UpsertResponse(&types.FieldResponse{PageID: p.PageID, FieldID: f.FieldID,
			Data: map[string]any{"value": []any{gone.AttachmentID, kept.AttachmentID}}})
	}))
	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.DeleteAttachment(gone.AttachmentID) }))

	require.NoError(t, b.View(ctx, func(tx *Tx) error {
		got, err := tx.GetPage(p.PageID)
		require.NoError(t, err)
		assert.Equal(t, []string{kept.AttachmentID}, got.Attachments)
		r, err := tx.GetResponse(p.PageID, f.FieldID)
		require.NoError(t, err)
		assert.Equal(t, []any{kept.AttachmentID}, r.Value())
		return nil
	}))
}

func TestOptions_RemovalDropsSelections(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	cfg := &types.ChoiceConfig{IsMultiSelect: true, Options: []types.ChoiceOption{
		{Label: "Open", Value: "open"}, {Label: "Closed", Value: "closed"},
	}}
	tb, f := seed(t, b, types.FieldTypeChoice, cfg)
	open, closed := cfg.Options[0].OptionID, cfg.Options[1].OptionID
	p := &types.Page{TableID: tb.TableID, Title: "P"}

	require.NoError(t, b.Update(ctx, func(tx *Tx) error {
		if err := tx.InsertPage(p); err != nil {
			return err
		}
		return tx.UpsertResponse(&types.FieldResponse{PageID: p.PageID, FieldID: f.FieldID,
			Data: map[string]any{"value": []any{open, closed}}})
	}))

	cfg.Options = cfg.Options[1:]
	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.UpdateConfig(cfg) }))

	require.NoError(t, b.View(ctx, func(tx *Tx) error {
		r, err := tx.GetResponse(p.PageID, f.FieldID)
		require.NoError(t, err)
		assert.Equal(t, []any{closed}, r.Value())
		_, err = tx.GetOption(open)
		assert.ErrorIs(t, err, types.ErrNotFound)
		return nil
	}))
}

func TestTables_ListFilter(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	require.NoError(t, b.Update(ctx, func(tx *Tx) error {
		for _, tb := range []*types.Table{
			{WorkspaceID: "ws1", Name: "Tasks"},
			{WorkspaceID: "ws1", Name: "People"},
			{WorkspaceID: "ws2", Name: "Old tasks"},
		} {
			if err := tx.InsertTable(tb); err != nil {
				return err
			}
		}
		return nil
	}))

	names := func(f types.TableFilter) []string {
		var out []string
		require.NoError(t, b.View(ctx, func(tx *Tx) error {
			tables, err := tx.ListTables(f)
			for _, tb := range tables {
				out = append(out, tb.Name)
			}
			return err
		}))
		return out
	}

	assert.Equal(t, []string{"Tasks", "People", "Old tasks"}, names(types.TableFilter{}))
	assert.Equal(t, []string{"Tasks", "People"}, names(types.TableFilter{WorkspaceID: "ws1"}))
	assert.Equal(t, []string{"Tasks", "Old tasks"}, names(types.TableFilter{Name: "TASK"}))
	assert.Equal(t, []string{"Old tasks"}, names(types.TableFilter{WorkspaceID: "ws2", Name: "task"}))
	assert.Empty(t, names(types.TableFilter{WorkspaceID: "ws3"}))
}

func TestTables_Update(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	tb := &types.Table{Name: "Tasks"}
	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.InsertTable(tb) }))

	tb.Name, tb.Description = "Todo", "things to do"
	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.UpdateTable(tb) }))
	require.NoError(t, b.View(ctx, func(tx *Tx) error {
		got, err := tx.GetTable(tb.TableID)
		require.NoError(t, err)
		assert.Equal(t, "Todo", got.Name)
		assert.Equal(t, "things to do", got.Description)
		return nil
	}))

	err := b.Update(ctx, func(tx *Tx) error { return tx.UpdateTable(&types.Table{TableID: "missing", Name: "X"}) })
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestFolders_ViewRemovalAndCascade(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	tasks := &types.Table{Name: "Tasks"}
	people := &types.Table{Name: "People"}
	v1 := &types.View{Label: "Table", IsDefault: true}
	v2 := &types.View{Label: "Board"}
	v3 := &types.View{Label: "People", IsDefault: true}
	parent := &types.Folder{WorkspaceID: "ws", Label: "Work"}
	child := &types.Folder{WorkspaceID: "ws", Label: "Sub"}
	require.NoError(t, b.Update(ctx, func(tx *Tx) error {
		for _, tb := range []*types.Table{tasks, people} {
			if err := tx.InsertTable(tb); err != nil {
				return err
			}
		}
		v1.TableID, v2.TableID, v3.TableID = tasks.TableID, tasks.TableID, people.TableID
		for _, v := range []*types.View{v1, v2, v3} {
			if err := tx.InsertView(v); err != nil {
				return err
			}
		}
		parent.ViewIDs = []string{v1.ViewID, v2.ViewID, v3.ViewID}
		parent.ViewOrder = []string{v3.ViewID, v2.ViewID, v1.ViewID}
		if err := tx.InsertFolder(parent); err != nil {
			return err
		}
		child.ParentID = parent.FolderID
		return tx.InsertFolder(child)
	}))

	get := func(id string) *types.Folder {
		var f *types.Folder
		require.NoError(t, b.View(ctx, func(tx *Tx) error {
			var err error
			f, err = tx.GetFolder(id)
			return err
		}))
		return f
	}
	assert.Equal(t, parent.FolderID, get(child.FolderID).ParentID)

	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.DeleteView(v2.ViewID) }))
	got := get(parent.FolderID)
	assert.Equal(t, []string{v1.ViewID, v3.ViewID}, got.ViewIDs)
	assert.Equal(t, []string{v3.ViewID, v1.ViewID}, got.ViewOrder)

	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.DeleteTable(people.TableID) }))
	got = get(parent.FolderID)
	assert.Equal(t, []string{v1.ViewID}, got.ViewIDs)
	assert.Equal(t, []string{v1.ViewID}, got.ViewOrder)

	require.NoError(t, b.Update(ctx, func(tx *Tx) error { return tx.DeleteFolder(parent.FolderID) }))
	err := b.View(ctx, func(tx *Tx) error {
		_, err := tx.GetFolder(child.FolderID)
		return err
	})
	assert.ErrorIs(t, err, types.ErrNotFound)
}
