package responses

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/fieldbase/internal/attachments"
	"github.com/mesh-intelligence/fieldbase/internal/catalog"
	"github.com/mesh-intelligence/fieldbase/internal/fieldtype"
	"github.com/mesh-intelligence/fieldbase/internal/metrics"
	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

type fixture struct {
	t     *testing.T
	b     *sqlite.Backend
	cat   *catalog.Catalog
	files *attachments.MemoryStore
	store *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	cat := catalog.New(fieldtype.NewRegistry(), nil)
	files := attachments.NewMemoryStore()
	return &fixture{t: t, b: b, cat: cat, files: files, store: New(cat, files, nil)}
}

func (fx *fixture) update(fn func(tx *sqlite.Tx) error) error {
	return fx.b.Update(context.Background(), fn)
}

func (fx *fixture) table(name string) string {
	fx.t.Helper()
	tb := &types.Table{Name: name}
	require.NoError(fx.t, fx.update(func(tx *sqlite.Tx) error { return fx.cat.CreateTable(tx, tb) }))
	return tb.TableID
}

func (fx *fixture) page(tableID, title string) string {
	fx.t.Helper()
	p := &types.Page{TableID: tableID, Title: title}
	require.NoError(fx.t, fx.update(func(tx *sqlite.Tx) error { return tx.InsertPage(p) }))
	return p.PageID
}

func (fx *fixture) field(tableID, label string, ft types.FieldType, cfg types.FieldConfig) *types.Field {
	fx.t.Helper()
	var f *types.Field
	require.NoError(fx.t, fx.update(func(tx *sqlite.Tx) error {
		var err error
		f, err = fx.cat.CreateField(tx, tableID, label, ft, cfg)
		return err
	}))
	return f
}

func (fx *fixture) upsert(pageID, fieldID string, raw any) (*types.FieldResponse, error) {
	var r *types.FieldResponse
	err := fx.update(func(tx *sqlite.Tx) error {
		var err error
		r, err = fx.store.Upsert(tx, pageID, fieldID, raw)
		return err
	})
	return r, err
}

func (fx *fixture) options(fieldID string) []types.ChoiceOption {
	fx.t.Helper()
	var opts []types.ChoiceOption
	require.NoError(fx.t, fx.b.View(context.Background(), func(tx *sqlite.Tx) error {
		cfg, err := tx.GetConfig(fieldID)
		if err != nil {
			return err
		}
		opts = cfg.(*types.ChoiceConfig).Options
		return nil
	}))
	return opts
}

func TestUpsertChoiceSingleSelect(t *testing.T) {
	fx := newFixture(t)
	tb := fx.table("Tasks")
	status := fx.field(tb, "Status", types.FieldTypeChoice, &types.ChoiceConfig{
		Options: []types.ChoiceOption{{Label: "Open", Value: "open"}, {Label: "Closed", Value: "closed"}},
	})
	p := fx.page(tb, "First")
	opts := fx.options(status.FieldID)
	require.Len(t, opts, 2)

	r, err := fx.upsert(p, status.FieldID, []any{opts[0].OptionID})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"value": []any{opts[0].OptionID}}, r.Data)

	_, err = fx.upsert(p, status.FieldID, []any{opts[0].OptionID, opts[1].OptionID})
	require.ErrorIs(t, err, types.ErrValidation)
	assert.Contains(t, err.Error(), "multi select disabled")

	// A bare id is wrapped into a list.
	r, err = fx.upsert(p, status.FieldID, opts[1].OptionID)
	require.NoError(t, err)
	assert.Equal(t, []any{opts[1].OptionID}, r.Value())
}

func TestUpsertChoiceRejectsForeignOption(t *testing.T) {
	fx := newFixture(t)
	tb := fx.table("Tasks")
	a := fx.field(tb, "Status", types.FieldTypeChoice, &types.ChoiceConfig{Options: []types.ChoiceOption{{Label: "Open"}}})
	b := fx.field(tb, "Priority", types.FieldTypeChoice, &types.ChoiceConfig{Options: []types.ChoiceOption{{Label: "High"}}})
	p := fx.page(tb, "First")

	_, err := fx.upsert(p, a.FieldID, []any{fx.options(b.FieldID)[0].OptionID})
	require.ErrorIs(t, err, types.ErrValidation)
	assert.Contains(t, err.Error(), "does not belong to this field")

	_, err = fx.upsert(p, a.FieldID, []any{"nope"})
	require.ErrorIs(t, err, types.ErrValidation)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestUpsertPercentage(t *testing.T) {
	fx := newFixture(t)
	tb := fx.table("Tasks")
	done := fx.field(tb, "Done", types.FieldTypeNumber, &types.NumberConfig{DisplayFormat: types.NumberPercentage})
	p := fx.page(tb, "First")

	r, err := fx.upsert(p, done.FieldID, "45%")
	require.NoError(t, err)
	assert.InDelta(t, 0.45, r.Value(), 1e-9)

	require.NoError(t, fx.b.View(context.Background(), func(tx *sqlite.Tx) error {
		v, err := fx.store.Get(tx, p, done.FieldID)
		require.NoError(t, err)
		assert.InDelta(t, 0.45, v, 1e-9, "serialize passes the stored value through")
		return nil
	}))
}

func TestUpsertLastWriteWins(t *testing.T) {
	fx := newFixture(t)
	tb := fx.table("Tasks")
	flag := fx.field(tb, "Flag", types.FieldTypeBoolean, nil)
	p := fx.page(tb, "First")

	first, err := fx.upsert(p, flag.FieldID, "yes")
	require.NoError(t, err)
	assert.Equal(t, true, first.Value())
	second, err := fx.upsert(p, flag.FieldID, "no")
	require.NoError(t, err)
	assert.Equal(t, false, second.Value())
	assert.Equal(t, first.ResponseID, second.ResponseID)
}

func TestUpsertData(t *testing.T) {
	fx := newFixture(t)
	tb := fx.table("Tasks")
	name := fx.field(tb, "Name", types.FieldTypeText, nil)
	p := fx.page(tb, "First")

	before := testutil.ToFloat64(metrics.ValidationFailures.WithLabelValues("upsert_response"))
	err := fx.update(func(tx *sqlite.Tx) error {
		_, err := fx.store.UpsertData(tx, p, name.FieldID, map[string]any{"value": "x", "extra": 1})
		return err
	})
	require.ErrorIs(t, err, types.ErrValidation)
	assert.Contains(t, err.Error(), `unexpected keys "extra"`)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ValidationFailures.WithLabelValues("upsert_response")))

	require.NoError(t, fx.update(func(tx *sqlite.Tx) error {
		r, err := fx.store.UpsertData(tx, p, name.FieldID, map[string]any{"value": 12})
		if err != nil {
			return err
		}
		assert.Equal(t, "12", r.Value())
		return nil
	}))
}

func TestUpsertErrors(t *testing.T) {
	fx := newFixture(t)
	a := fx.table("Tasks")
	b := fx.table("People")
	name := fx.field(a, "Name", types.FieldTypeText, nil)
	pa := fx.page(a, "Task")
	pb := fx.page(b, "Person")

	_, err := fx.upsert("missing", name.FieldID, "x")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = fx.upsert(pa, "missing", "x")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = fx.upsert(pb, name.FieldID, "x")
	require.ErrorIs(t, err, types.ErrValidation)
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "field")
}

func TestUpsertRelation(t *testing.T) {
	fx := newFixture(t)
	a := fx.table("Tasks")
	b := fx.table("People")
	owner := fx.field(a, "Owner", types.FieldTypeRelation, &types.RelationConfig{RelatedTableID: b})
	task := fx.page(a, "Task")
	person := fx.page(b, "Ada")

	r, err := fx.upsert(task, owner.FieldID, person)
	require.NoError(t, err)
	assert.Equal(t, []any{person}, r.Value())

	_, err = fx.upsert(task, owner.FieldID, []any{task})
	require.ErrorIs(t, err, types.ErrValidation)
	assert.Contains(t, err.Error(), "not in the related table")
}

func TestUpsertFileUsesExternalStore(t *testing.T) {
	fx := newFixture(t)
	tb := fx.table("Tasks")
	photos := fx.field(tb, "Photos", types.FieldTypeFile, &types.FileConfig{
		SupportedFileTypes: []string{types.FileKindImage},
		IsMultiple:         true,
	})
	p := fx.page(tb, "First")

	img := &types.Attachment{Name: "a.png", ContentType: "image/png"}
	require.NoError(t, fx.files.Put(context.Background(), img))
	doc := &types.Attachment{Name: "a.pdf", Kind: types.FileKindDocument}
	require.NoError(t, fx.update(func(tx *sqlite.Tx) error { return tx.InsertAttachment(doc) }))

	r, err := fx.upsert(p, photos.FieldID, []any{img.AttachmentID})
	require.NoError(t, err)
	assert.Equal(t, []any{img.AttachmentID}, r.Value())

	_, err = fx.upsert(p, photos.FieldID, []any{doc.AttachmentID})
	require.ErrorIs(t, err, types.ErrValidation)
	assert.Contains(t, err.Error(), "is a document file")

	_, err = fx.upsert(p, photos.FieldID, []any{"missing"})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestSerializeForReadNil(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.b.View(context.Background(), func(tx *sqlite.Tx) error {
		v, err := fx.store.SerializeForRead(tx, &types.Field{}, nil)
		assert.NoError(t, err)
		assert.Nil(t, v)
		return nil
	}))
}
