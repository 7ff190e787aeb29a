// Package projector assembles what clients read: the ordered fields of a
// view, page documents and sorted page rows with serialized responses. It
// also owns view writes, where sort and ordering lists are checked.
package projector

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/fieldbase/internal/catalog"
	"github.com/mesh-intelligence/fieldbase/internal/fieldtype"
	"github.com/mesh-intelligence/fieldbase/internal/metrics"
	"github.com/mesh-intelligence/fieldbase/internal/responses"
	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// Projector builds read models over views.
type Projector struct {
	catalog   *catalog.Catalog
	responses *responses.Store
	log       *zap.SugaredLogger
}

// New returns a projector.
func New(cat *catalog.Catalog, store *responses.Store, log *zap.SugaredLogger) *Projector {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Projector{catalog: cat, responses: store, log: log}
}

// FieldValue is one field of a page with its serialized response. Value
// is nil when the page has no response for the field.
type FieldValue struct {
	Field *types.Field `json:"field"`
	Value any          `json:"value"`
}

// PageDocument is a page rendered through a view.
type PageDocument struct {
	PageID  string       `json:"id"`
	TableID string       `json:"database"`
	ViewID  string       `json:"view"`
	Title   string       `json:"title"`
	Content string       `json:"content,omitempty"`
	Fields  []FieldValue `json:"fields"`
}

// ViewDocument is a view with its fields resolved in display order.
type ViewDocument struct {
	View     *types.View      `json:"view"`
	Fields   []*types.Field   `json:"fields"`
	SortBy   []types.SortSpec `json:"sort_by"`
	FilterBy string           `json:"filter_by,omitempty"`
}

// PageRow is one page of a view listing: serialized values keyed by field
// id.
type PageRow struct {
	PageID string         `json:"id"`
	Title  string         `json:"title"`
	Values map[string]any `json:"values"`
}

// OrderedFields returns the fields of v in display order. Fields listed in
// FieldsOrder come first in that order; the rest of the view's field set
// follows in creation order. Ids of deleted fields are skipped.
func (p *Projector) OrderedFields(tx *sqlite.Tx, v *types.View) ([]*types.Field, error) {
	all, err := tx.ListFields(v.TableID)
	if err != nil {
		return nil, err
	}
	set := all
	if len(v.FieldIDs) > 0 {
		set = make([]*types.Field, 0, len(v.FieldIDs))
		for _, f := range all {
			if slices.Contains(v.FieldIDs, f.FieldID) {
				set = append(set, f)
			}
		}
	}

	byID := make(map[string]*types.Field, len(set))
	for _, f := range set {
		byID[f.FieldID] = f
	}
	out := make([]*types.Field, 0, len(set))
	placed := make(map[string]bool, len(set))
	for _, id := range v.FieldsOrder {
		if f, ok := byID[id]; ok && !placed[id] {
			out = append(out, f)
			placed[id] = true
		}
	}
	for _, f := range set {
		if !placed[f.FieldID] {
			out = append(out, f)
		}
	}
	return out, nil
}

// resolveView returns the view with id viewID, or the default view of
// tableID when viewID is empty.
func resolveView(tx *sqlite.Tx, viewID, tableID string) (*types.View, error) {
	if viewID == "" {
		return tx.DefaultView(tableID)
	}
	v, err := tx.GetView(viewID)
	if err != nil {
		return nil, err
	}
	if v.TableID != tableID {
		return nil, types.Validationf("view", "view %s does not belong to table %s", viewID, tableID)
	}
	return v, nil
}

// GetPage renders a page through viewID, or through the default view of
// the page's table when viewID is empty.
func (p *Projector) GetPage(tx *sqlite.Tx, pageID, viewID string) (*PageDocument, error) {
	defer metrics.ObserveSince("get_page", time.Now())

	page, err := tx.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	v, err := resolveView(tx, viewID, page.TableID)
	if err != nil {
		return nil, err
	}
	fields, err := p.OrderedFields(tx, v)
	if err != nil {
		return nil, err
	}
	resp, err := tx.PageResponses(pageID)
	if err != nil {
		return nil, err
	}

	doc := &PageDocument{
		PageID:  page.PageID,
		TableID: page.TableID,
		ViewID:  v.ViewID,
		Title:   page.Title,
		Content: page.Content,
		Fields:  make([]FieldValue, 0, len(fields)),
	}
	for _, f := range fields {
		val, err := p.responses.SerializeForRead(tx, f, resp[f.FieldID])
		if err != nil {
			return nil, fmt.Errorf("serializing %s of page %s: %w", f.FieldID, pageID, err)
		}
		doc.Fields = append(doc.Fields, FieldValue{Field: f, Value: val})
	}
	return doc, nil
}

// GetView returns the view with its ordered fields.
func (p *Projector) GetView(tx *sqlite.Tx, viewID string) (*ViewDocument, error) {
	defer metrics.ObserveSince("get_view", time.Now())

	v, err := tx.GetView(viewID)
	if err != nil {
		return nil, err
	}
	fields, err := p.OrderedFields(tx, v)
	if err != nil {
		return nil, err
	}
	return &ViewDocument{View: v, Fields: fields, SortBy: v.SortBy, FilterBy: v.FilterBy}, nil
}

// ListPages returns one row per page of the view's table, sorted by the
// view's sort_by and otherwise in creation order. filter_by is not
// evaluated.
func (p *Projector) ListPages(tx *sqlite.Tx, viewID string) ([]PageRow, error) {
	defer metrics.ObserveSince("list_pages", time.Now())

	v, err := tx.GetView(viewID)
	if err != nil {
		return nil, err
	}
	fields, err := p.OrderedFields(tx, v)
	if err != nil {
		return nil, err
	}
	pages, err := tx.ListPages(v.TableID)
	if err != nil {
		return nil, err
	}
	resp, err := tx.TableResponses(v.TableID)
	if err != nil {
		return nil, err
	}

	rows := make([]PageRow, 0, len(pages))
	for _, page := range pages {
		row := PageRow{PageID: page.PageID, Title: page.Title, Values: make(map[string]any, len(fields))}
		for _, f := range fields {
			val, err := p.responses.SerializeForRead(tx, f, resp[page.PageID][f.FieldID])
			if err != nil {
				return nil, fmt.Errorf("serializing %s of page %s: %w", f.FieldID, page.PageID, err)
			}
			row.Values[f.FieldID] = val
		}
		rows = append(rows, row)
	}

	sortRows(rows, v.SortBy, fields)
	return rows, nil
}

// sortRows orders rows by specs. Specs naming fields outside the view are
// ignored. The sort is stable so ties keep creation order.
func sortRows(rows []PageRow, specs []types.SortSpec, fields []*types.Field) {
	active := make([]types.SortSpec, 0, len(specs))
	for _, s := range specs {
		if slices.ContainsFunc(fields, func(f *types.Field) bool { return f.FieldID == s.FieldID }) {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return
	}
	slices.SortStableFunc(rows, func(a, b PageRow) int {
		for _, s := range active {
			c := compareValues(a.Values[s.FieldID], b.Values[s.FieldID])
			if s.Direction == types.SortDesc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

// compareValues orders serialized values. Missing values sort first, and
// values of different kinds order by kind. Lists compare element by element.
func compareValues(a, b any) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case float64:
		return cmp.Compare(x, b.(float64))
	case string:
		return cmp.Compare(x, b.(string))
	case []any:
		y := b.([]any)
		for i := 0; i < len(x) && i < len(y); i++ {
			if c := compareValues(x[i], y[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(x), len(y))
	case map[string]any:
		return compareObjects(x, b.(map[string]any))
	}
	return 0
}

// compareObjects orders checklist items by text, then unchecked before
// checked. Other keys break remaining ties in key order.
func compareObjects(a, b map[string]any) int {
	keys := []string{fieldtype.ChecklistValueKey, fieldtype.ChecklistCheckedKey}
	var rest []string
	for k := range a {
		if k != fieldtype.ChecklistValueKey && k != fieldtype.ChecklistCheckedKey {
			rest = append(rest, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok && k != fieldtype.ChecklistValueKey && k != fieldtype.ChecklistCheckedKey {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	for _, k := range append(keys, rest...) {
		if c := compareValues(a[k], b[k]); c != 0 {
			return c
		}
	}
	return 0
}

func kindRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	case []any:
		return 4
	case map[string]any:
		return 5
	}
	return 6
}
