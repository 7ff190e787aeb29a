// Package catalog owns tables and fields: it provisions configs, keeps the
// field type and its config in step, and maintains relation mirrors.
//
// All methods run inside a caller-supplied *sqlite.Tx, so a field, its
// config and any mirror become visible together or not at all.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/fieldbase/internal/fieldtype"
	"github.com/mesh-intelligence/fieldbase/internal/metrics"
	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// Labels of the views provisioned with every table.
const (
	DefaultViewLabel = "Table"
	PageViewLabel    = "Page"
)

// Catalog is the field catalog.
type Catalog struct {
	registry *fieldtype.Registry
	log      *zap.SugaredLogger
}

// New returns a catalog dispatching to registry.
func New(registry *fieldtype.Registry, log *zap.SugaredLogger) *Catalog {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Catalog{registry: registry, log: log}
}

// Registry returns the field type registry the catalog dispatches to.
func (c *Catalog) Registry() *fieldtype.Registry { return c.registry }

// FieldPatch lists the changes of UpdateField. Nil members are left alone.
type FieldPatch struct {
	Label     *string
	FieldType *types.FieldType
	Config    types.FieldConfig
}

// TablePatch lists the changes of UpdateTable. Nil members are left alone.
type TablePatch struct {
	Name        *string
	Description *string
}

// CreateTable inserts tb with its default "Table" view and a "Page" view.
func (c *Catalog) CreateTable(tx *sqlite.Tx, tb *types.Table) error {
	tb.Name = strings.TrimSpace(tb.Name)
	if tb.Name == "" {
		return types.NewValidationError("name", "name is required")
	}
	if err := tx.InsertTable(tb); err != nil {
		return err
	}
	for _, v := range []*types.View{
		{TableID: tb.TableID, Label: DefaultViewLabel, ViewType: types.ViewTypeTable, IsDefault: true},
		{TableID: tb.TableID, Label: PageViewLabel, ViewType: types.ViewTypePage},
	} {
		if err := tx.InsertView(v); err != nil {
			return err
		}
	}
	c.log.Debugw("created table", "table", tb.TableID, "name", tb.Name)
	return nil
}

// UpdateTable renames a table or rewrites its description.
func (c *Catalog) UpdateTable(tx *sqlite.Tx, tableID string, patch TablePatch) (*types.Table, error) {
	tb, err := tx.GetTable(tableID)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		tb.Name = strings.TrimSpace(*patch.Name)
		if tb.Name == "" {
			return nil, types.NewValidationError("name", "name is required")
		}
	}
	if patch.Description != nil {
		tb.Description = *patch.Description
	}
	if err := tx.UpdateTable(tb); err != nil {
		return nil, err
	}
	c.log.Debugw("updated table", "table", tb.TableID, "name", tb.Name)
	return tb, nil
}

// DeleteTable removes a table. Relation partners living on other tables
// are removed with it.
func (c *Catalog) DeleteTable(tx *sqlite.Tx, tableID string) error {
	fields, err := tx.ListFields(tableID)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		if _, err := tx.GetTable(tableID); err != nil {
			return err
		}
	}
	for _, f := range fields {
		if f.FieldType != types.FieldTypeRelation {
			continue
		}
		partners, err := c.partnersOf(tx, f)
		if err != nil {
			return err
		}
		for _, p := range partners {
			if p.TableID != tableID {
				if err := c.removeField(tx, p); err != nil {
					return err
				}
			}
		}
	}
	if err := tx.DeleteTable(tableID); err != nil {
		return err
	}
	c.log.Debugw("deleted table", "table", tableID)
	return nil
}

// CreateField adds a field to a table. A nil cfg is replaced by the type's
// default config. Relation fields are paired according to their config.
func (c *Catalog) CreateField(tx *sqlite.Tx, tableID, label string, ft types.FieldType, cfg types.FieldConfig) (*types.Field, error) {
	label = strings.TrimSpace(label)
	ve := &types.ValidationError{}
	if label == "" {
		ve.Add("label", "label is required")
	}
	if !ft.Valid() {
		ve.Add("field_type", fmt.Sprintf("%q is not a valid choice", ft))
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	if _, err := tx.GetTable(tableID); err != nil {
		return nil, err
	}

	f := &types.Field{TableID: tableID, Label: label, FieldType: ft}
	if err := tx.InsertField(f); err != nil {
		return nil, err
	}

	cfg, req, err := c.prepareConfig(f, cfg)
	if err != nil {
		return nil, err
	}
	if err := c.provisionConfig(tx, f, cfg); err != nil {
		return nil, err
	}
	if rc, ok := cfg.(*types.RelationConfig); ok {
		if err := c.ensureRelation(tx, f, rc, req); err != nil {
			return nil, err
		}
	}

	metrics.FieldsCreated.WithLabelValues(string(ft)).Inc()
	c.log.Debugw("created field", "field", f.FieldID, "table", tableID, "field_type", ft)
	return f, nil
}

// prepareConfig substitutes the default config when cfg is nil and
// captures the relation target requested by a caller supplied config.
func (c *Catalog) prepareConfig(f *types.Field, cfg types.FieldConfig) (types.FieldConfig, relationRequest, error) {
	if cfg == nil {
		def, err := c.registry.DefaultConfig(f)
		return def, relationRequest{}, err
	}
	if rc, ok := cfg.(*types.RelationConfig); ok {
		return cfg, requestedTarget(f, rc), nil
	}
	return cfg, relationRequest{}, nil
}

// provisionConfig validates cfg for f, stores it and points f at it. A
// relation config is stored as an unpaired placeholder; ensureRelation
// pairs it afterwards.
func (c *Catalog) provisionConfig(tx *sqlite.Tx, f *types.Field, cfg types.FieldConfig) error {
	base := cfg.Base()
	base.FieldID = f.FieldID
	base.ConfigID = ""
	if err := c.registry.CleanConfig(f.FieldType, cfg); err != nil {
		return err
	}
	if rc, ok := cfg.(*types.RelationConfig); ok {
		rc.SourceFieldID = f.FieldID
		rc.RelatedFieldID = f.FieldID
		rc.RelatedTableID = f.TableID
	}
	if err := tx.InsertConfig(cfg); err != nil {
		return err
	}
	f.ConfigID = base.ConfigID
	return tx.UpdateField(f)
}

// UpdateField applies patch to a field. Changing the type replaces the
// config (the patch config, or the new type's default) and drops the
// responses recorded under the old type.
func (c *Catalog) UpdateField(tx *sqlite.Tx, fieldID string, patch FieldPatch) (*types.Field, error) {
	f, err := tx.GetField(fieldID)
	if err != nil {
		return nil, err
	}
	if patch.Label != nil {
		label := strings.TrimSpace(*patch.Label)
		if label == "" {
			return nil, types.NewValidationError("label", "label is required")
		}
		f.Label = label
	}

	if patch.FieldType != nil && *patch.FieldType != f.FieldType {
		if err := c.changeType(tx, f, *patch.FieldType, patch.Config); err != nil {
			return nil, err
		}
	} else if patch.Config != nil {
		if err := c.updateConfig(tx, f, patch.Config); err != nil {
			return nil, err
		}
	}

	if err := tx.UpdateField(f); err != nil {
		return nil, err
	}
	c.log.Debugw("updated field", "field", f.FieldID, "field_type", f.FieldType)
	return f, nil
}

func (c *Catalog) changeType(tx *sqlite.Tx, f *types.Field, to types.FieldType, cfg types.FieldConfig) error {
	if !to.Valid() {
		return types.Validationf("field_type", "%q is not a valid choice", to)
	}
	if f.FieldType == types.FieldTypeRelation {
		if err := c.removePartners(tx, f); err != nil {
			return err
		}
	}
	if err := tx.DeleteFieldResponses(f.FieldID); err != nil {
		return err
	}
	if err := tx.DeleteConfig(f.FieldID); err != nil {
		return err
	}

	from := f.FieldType
	f.FieldType = to
	cfg, req, err := c.prepareConfig(f, cfg)
	if err != nil {
		return err
	}
	if err := c.provisionConfig(tx, f, cfg); err != nil {
		return err
	}
	if rc, ok := cfg.(*types.RelationConfig); ok {
		if err := c.ensureRelation(tx, f, rc, req); err != nil {
			return err
		}
	}
	c.log.Infow("changed field type", "field", f.FieldID, "from", from, "to", to)
	return nil
}

func (c *Catalog) updateConfig(tx *sqlite.Tx, f *types.Field, cfg types.FieldConfig) error {
	if err := c.registry.CleanConfig(f.FieldType, cfg); err != nil {
		return err
	}
	cur, err := c.GetConfig(tx, f)
	if err != nil {
		return err
	}
	base := cfg.Base()
	base.FieldID = f.FieldID
	base.ConfigID = cur.Base().ConfigID

	rc, ok := cfg.(*types.RelationConfig)
	if !ok {
		return tx.UpdateConfig(cfg)
	}
	// Pairing is driven by the requested target; an empty request keeps
	// the current pairing.
	stored := cur.(*types.RelationConfig)
	req := requestedTarget(f, rc)
	if rc.RelatedFieldID == "" && rc.RelatedTableID == "" {
		req = currentTarget(f, stored)
	}
	return c.ensureRelation(tx, f, stored, req)
}

// GetConfig returns the active config of f, provisioning the type's
// default when none is stored.
func (c *Catalog) GetConfig(tx *sqlite.Tx, f *types.Field) (types.FieldConfig, error) {
	cfg, err := tx.GetConfig(f.FieldID)
	if errors.Is(err, types.ErrNotFound) {
		if cfg, err = c.registry.DefaultConfig(f); err != nil {
			return nil, err
		}
		if err := c.provisionConfig(tx, f, cfg); err != nil {
			return nil, err
		}
		c.log.Infow("provisioned default config", "field", f.FieldID, "field_type", f.FieldType)
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if cfg.FieldType() != f.FieldType {
		return nil, fmt.Errorf("field %s is %s but its config is %s: %w",
			f.FieldID, f.FieldType, cfg.FieldType(), types.ErrInvalidFieldType)
	}
	return cfg, nil
}

// DeleteField removes a field with its config, options and responses. The
// relation partner of a relation field is removed too.
func (c *Catalog) DeleteField(tx *sqlite.Tx, fieldID string) error {
	f, err := tx.GetField(fieldID)
	if err != nil {
		return err
	}
	if f.FieldType == types.FieldTypeRelation {
		if err := c.removePartners(tx, f); err != nil {
			return err
		}
	}
	if err := c.removeField(tx, f); err != nil {
		return err
	}
	c.log.Debugw("deleted field", "field", fieldID)
	return nil
}

// removeField deletes f and strips it from the views of its table.
func (c *Catalog) removeField(tx *sqlite.Tx, f *types.Field) error {
	views, err := tx.ListViews(f.TableID)
	if err != nil {
		return err
	}
	for _, v := range views {
		if pruneView(v, f.FieldID) {
			if err := tx.UpdateView(v); err != nil {
				return err
			}
		}
	}
	if err := tx.DeleteField(f.FieldID); err != nil {
		return err
	}
	metrics.FieldsDeleted.WithLabelValues(string(f.FieldType)).Inc()
	return nil
}

// pruneView drops fieldID from every list of v and reports whether v
// changed.
func pruneView(v *types.View, fieldID string) bool {
	n := len(v.FieldIDs) + len(v.FieldsOrder) + len(v.SortBy)
	v.FieldIDs = slices.DeleteFunc(v.FieldIDs, func(id string) bool { return id == fieldID })
	v.FieldsOrder = slices.DeleteFunc(v.FieldsOrder, func(id string) bool { return id == fieldID })
	v.SortBy = slices.DeleteFunc(v.SortBy, func(s types.SortSpec) bool { return s.FieldID == fieldID })
	return n != len(v.FieldIDs)+len(v.FieldsOrder)+len(v.SortBy)
}
