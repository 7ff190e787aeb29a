package projector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

func TestValidateViewRejects(t *testing.T) {
	fx := newFixture(t)
	tb := fx.table("Tasks")
	a := fx.field(tb, "A", types.FieldTypeText)
	b := fx.field(tb, "B", types.FieldTypeText)
	other := fx.field(fx.table("People"), "X", types.FieldTypeText)

	tests := []struct {
		name string
		view types.View
		path string
	}{
		{"bad direction", types.View{SortBy: []types.SortSpec{{FieldID: a, Direction: "up"}}}, "sort_by[0].direction"},
		{"sort outside set", types.View{FieldIDs: []string{a}, SortBy: []types.SortSpec{{FieldID: b, Direction: "asc"}}}, "sort_by[0].field"},
		{"order outside set", types.View{FieldIDs: []string{a}, FieldsOrder: []string{a, b}}, "fields_order[1]"},
		{"duplicate order", types.View{FieldsOrder: []string{a, a}}, "fields_order[1]"},
		{"foreign field", types.View{FieldIDs: []string{other}}, "fields[0]"},
		{"view type", types.View{ViewType: 7}, "view_type"},
		{"label", types.View{Label: " "}, "label"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.view
			v.TableID = tb
			if v.Label == "" {
				v.Label = "Board"
			}
			err := fx.update(func(tx *sqlite.Tx) error { return fx.proj.CreateView(tx, &v) })
			require.ErrorIs(t, err, types.ErrValidation)
			var ve *types.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.path)
		})
	}
}

func countDefaults(t *testing.T, fx *fixture, tableID string) (int, string) {
	t.Helper()
	n, id := 0, ""
	fx.view(func(tx *sqlite.Tx) error {
		views, err := tx.ListViews(tableID)
		require.NoError(t, err)
		for _, v := range views {
			if v.IsDefault {
				n++
				id = v.ViewID
			}
		}
		return nil
	})
	return n, id
}

func TestDefaultViewDemotion(t *testing.T) {
	fx := newFixture(t)
	tb := fx.table("Tasks")
	v1 := fx.defaultView(tb)

	v2 := &types.View{TableID: tb, Label: "Board", ViewType: types.ViewTypeKanban, IsDefault: true}
	require.NoError(t, fx.update(func(tx *sqlite.Tx) error { return fx.proj.CreateView(tx, v2) }))
	n, id := countDefaults(t, fx, tb)
	assert.Equal(t, 1, n)
	assert.Equal(t, v2.ViewID, id)

	require.NoError(t, fx.update(func(tx *sqlite.Tx) error {
		_, err := fx.proj.SetDefault(tx, v1.ViewID)
		return err
	}))
	n, id = countDefaults(t, fx, tb)
	assert.Equal(t, 1, n)
	assert.Equal(t, v1.ViewID, id)

	// Updating the old default with is_default set flips it back.
	v2.IsDefault = true
	require.NoError(t, fx.update(func(tx *sqlite.Tx) error { return fx.proj.UpdateView(tx, v2) }))
	n, id = countDefaults(t, fx, tb)
	assert.Equal(t, 1, n)
	assert.Equal(t, v2.ViewID, id)
}

func TestDeleteView(t *testing.T) {
	fx := newFixture(t)
	tb := fx.table("Tasks")
	def := fx.defaultView(tb)

	require.NoError(t, fx.update(func(tx *sqlite.Tx) error { return fx.proj.DeleteView(tx, def.ViewID) }))
	n, id := countDefaults(t, fx, tb)
	assert.Equal(t, 1, n, "the remaining view is promoted")

	err := fx.update(func(tx *sqlite.Tx) error { return fx.proj.DeleteView(tx, id) })
	assert.ErrorIs(t, err, types.ErrValidation)

	err = fx.update(func(tx *sqlite.Tx) error { return fx.proj.DeleteView(tx, "missing") })
	assert.ErrorIs(t, err, types.ErrNotFound)
}
