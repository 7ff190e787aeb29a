package fieldbase

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/fieldbase/internal/schemafile"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

const schemaDoc = `
tables:
  - name: Tasks
    workspace: ws
    fields:
      - label: Status
        type: choice
        settings:
          options:
            - {label: Open, value: open}
            - {label: Closed, value: closed}
      - label: Assignee
        type: relation
        related_table: People
        related_field: Tasks
      - label: Owner
        type: relation
        related_table: People
  - name: People
    workspace: ws
    fields:
      - label: Name
        type: text
      - label: Tasks
        type: relation
        related_table: Tasks
        related_field: Assignee
`

func applyDoc(t *testing.T, e *Engine, doc string) *ApplyReport {
	t.Helper()
	f, err := schemafile.Decode([]byte(doc))
	require.NoError(t, err)
	rep, err := e.ApplySchema(context.Background(), f)
	require.NoError(t, err)
	return rep
}

func labels(t *testing.T, e *Engine, tableID string) []string {
	t.Helper()
	fields, err := e.ListFields(context.Background(), tableID)
	require.NoError(t, err)
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Label
	}
	return out
}

func TestApplySchema(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t)

	rep := applyDoc(t, e, schemaDoc)
	assert.Equal(t, &ApplyReport{TablesCreated: 2, FieldsCreated: 5}, rep)

	tables, err := e.ListTables(ctx, types.TableFilter{})
	require.NoError(t, err)
	require.Len(t, tables, 2)
	tasks, people := tables[0], tables[1]
	assert.Equal(t, []string{"Status", "Assignee", "Owner"}, labels(t, e, tasks.TableID))
	assert.Equal(t, []string{"Name", "Owner (Reverse)", "Tasks"}, labels(t, e, people.TableID))

	fields, err := e.ListFields(ctx, tasks.TableID)
	require.NoError(t, err)
	assignee := fields[1]
	cfg, err := e.GetConfig(ctx, assignee.FieldID)
	require.NoError(t, err)
	partner, err := e.GetField(ctx, cfg.(*types.RelationConfig).RelatedFieldID)
	require.NoError(t, err)
	assert.Equal(t, "Tasks", partner.Label)

	statusCfg, err := e.GetConfig(ctx, fields[0].FieldID)
	require.NoError(t, err)
	openID := statusCfg.(*types.ChoiceConfig).Options[0].OptionID

	// Re-applying changes nothing structural and keeps option ids.
	rep = applyDoc(t, e, schemaDoc)
	assert.Equal(t, &ApplyReport{FieldsUpdated: 5}, rep)
	assert.Equal(t, []string{"Name", "Owner (Reverse)", "Tasks"}, labels(t, e, people.TableID))
	statusCfg, err = e.GetConfig(ctx, fields[0].FieldID)
	require.NoError(t, err)
	assert.Equal(t, openID, statusCfg.(*types.ChoiceConfig).Options[0].OptionID)
}

func TestApplySchemaUnknownTarget(t *testing.T) {
	e := openEngine(t)
	f, err := schemafile.Decode([]byte("tables:\n  - name: A\n    fields:\n      - {label: R, type: relation, related_table: Nowhere}\n"))
	require.NoError(t, err)
	_, err = e.ApplySchema(context.Background(), f)
	require.ErrorIs(t, err, types.ErrValidation)
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "tables[0].fields[0].related_table")

	tables, err := e.ListTables(context.Background(), types.TableFilter{})
	require.NoError(t, err)
	assert.Empty(t, tables, "a failed apply leaves nothing behind")
}

func TestExportSchemaRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openEngine(t)
	applyDoc(t, src, schemaDoc)

	exported, err := src.ExportSchema(ctx)
	require.NoError(t, err)
	b, err := schemafile.Encode(exported)
	require.NoError(t, err)

	dst := openEngine(t)
	applyDoc(t, dst, string(b))
	again, err := dst.ExportSchema(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(exported, again); diff != "" {
		t.Errorf("exported schema changed after re-apply (-want +got):\n%s", diff)
	}

	people := exported.Tables[1]
	mirror := people.Fields[1]
	assert.Equal(t, "Owner (Reverse)", mirror.Label)
	assert.Equal(t, "Tasks", mirror.RelatedTable)
	assert.Equal(t, "Owner", mirror.RelatedField)
}

func TestBackupRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openEngine(t)
	applyDoc(t, src, schemaDoc)
	tables, err := src.ListTables(ctx, types.TableFilter{})
	require.NoError(t, err)
	fields, err := src.ListFields(ctx, tables[1].TableID)
	require.NoError(t, err)
	page, err := src.CreatePage(ctx, tables[1].TableID, PageInput{Title: "Ada"})
	require.NoError(t, err)
	_, err = src.UpsertResponse(ctx, page.PageID, fields[0].FieldID, "Lovelace")
	require.NoError(t, err)
	views, err := src.ListViews(ctx, tables[1].TableID)
	require.NoError(t, err)
	folder, err := src.CreateFolder(ctx, &types.Folder{WorkspaceID: "ws", Label: "People", ViewIDs: []string{views[0].ViewID}})
	require.NoError(t, err)
	nested, err := src.CreateFolder(ctx, &types.Folder{WorkspaceID: "ws", Label: "Archive", ParentID: folder.FolderID})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, src.ExportJSONL(ctx, dir))

	dst := openEngine(t)
	stats, err := dst.ImportJSONL(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Loaded["field_responses"])

	v, err := dst.GetResponse(ctx, page.PageID, fields[0].FieldID)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", v)

	gotFolder, err := dst.GetFolder(ctx, folder.FolderID)
	require.NoError(t, err)
	assert.Equal(t, []string{views[0].ViewID}, gotFolder.ViewOrder)
	gotNested, err := dst.GetFolder(ctx, nested.FolderID)
	require.NoError(t, err)
	assert.Equal(t, folder.FolderID, gotNested.ParentID)

	want, err := src.ExportSchema(ctx)
	require.NoError(t, err)
	got, err := dst.ExportSchema(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, got))
}
