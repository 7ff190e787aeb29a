package fieldbase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/fieldbase/internal/catalog"
	"github.com/mesh-intelligence/fieldbase/internal/schemafile"
	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// ApplyReport counts what ApplySchema changed.
type ApplyReport struct {
	TablesCreated int `json:"tables_created"`
	FieldsCreated int `json:"fields_created"`
	FieldsUpdated int `json:"fields_updated"`
}

// ApplySchema creates the tables and fields declared in f and updates the
// existing ones, matching tables by name and fields by label. Nothing is
// deleted. The whole file applies in one transaction.
func (e *Engine) ApplySchema(ctx context.Context, f *schemafile.File) (*ApplyReport, error) {
	if err := f.Check(); err != nil {
		return nil, err
	}
	var rep *ApplyReport
	err := e.update(ctx, "apply_schema", func(tx *sqlite.Tx) error {
		rep = &ApplyReport{}
		return e.applySchema(tx, f, rep)
	})
	if err != nil {
		return nil, e.rejected("apply_schema", err)
	}
	e.log.Infow("applied schema", "tables_created", rep.TablesCreated,
		"fields_created", rep.FieldsCreated, "fields_updated", rep.FieldsUpdated)
	return rep, nil
}

func (e *Engine) applySchema(tx *sqlite.Tx, f *schemafile.File, rep *ApplyReport) error {
	existing, err := tx.ListTables(types.TableFilter{})
	if err != nil {
		return err
	}
	byName := make(map[string]*types.Table, len(existing))
	for _, tb := range existing {
		byName[tb.Name] = tb
	}
	for _, st := range f.Tables {
		name := strings.TrimSpace(st.Name)
		if _, ok := byName[name]; ok {
			continue
		}
		tb := &types.Table{WorkspaceID: st.Workspace, Name: name, Description: st.Description}
		if err := e.catalog.CreateTable(tx, tb); err != nil {
			return err
		}
		byName[name] = tb
		rep.TablesCreated++
	}

	// Relation fields go last so the fields they pair with already exist.
	for _, relations := range []bool{false, true} {
		for ti, st := range f.Tables {
			tb := byName[strings.TrimSpace(st.Name)]
			for fi, sf := range st.Fields {
				if (sf.Type == types.FieldTypeRelation) != relations {
					continue
				}
				if err := e.applyField(tx, f, tb, sf, byName, rep); err != nil {
					var ve *types.ValidationError
					if errors.As(err, &ve) {
						return ve.Prefix(fmt.Sprintf("tables[%d].fields[%d]", ti, fi))
					}
					return fmt.Errorf("applying %s.%s: %w", st.Name, sf.Label, err)
				}
			}
		}
	}
	return nil
}

func (e *Engine) applyField(tx *sqlite.Tx, f *schemafile.File, tb *types.Table, sf schemafile.Field,
	byName map[string]*types.Table, rep *ApplyReport) error {
	cfg, err := sf.Config()
	if err != nil {
		return err
	}
	if rc, ok := cfg.(*types.RelationConfig); ok {
		if err := resolveRelation(tx, f, sf, rc, byName); err != nil {
			return err
		}
	}

	label := strings.TrimSpace(sf.Label)
	fields, err := tx.ListFields(tb.TableID)
	if err != nil {
		return err
	}
	for _, cur := range fields {
		if cur.Label != label {
			continue
		}
		if cur.FieldType == sf.Type {
			if err := keepOptionIDs(tx, cur, cfg); err != nil {
				return err
			}
		}
		ft := sf.Type
		if _, err := e.catalog.UpdateField(tx, cur.FieldID, catalog.FieldPatch{FieldType: &ft, Config: cfg}); err != nil {
			return err
		}
		rep.FieldsUpdated++
		return nil
	}
	if _, err := e.catalog.CreateField(tx, tb.TableID, label, sf.Type, cfg); err != nil {
		return err
	}
	rep.FieldsCreated++
	return nil
}

// resolveRelation turns the table name and field label of a relation into
// ids. A named partner that the file declares but that does not exist yet
// is left for the partner's own entry to pair with.
func resolveRelation(tx *sqlite.Tx, f *schemafile.File, sf schemafile.Field, rc *types.RelationConfig,
	byName map[string]*types.Table) error {
	if sf.RelatedTable == "" {
		return nil
	}
	target, ok := byName[sf.RelatedTable]
	if !ok {
		return types.Validationf("related_table", "table %q does not exist", sf.RelatedTable)
	}
	rc.RelatedTableID = target.TableID
	if sf.RelatedField == "" {
		return nil
	}
	fields, err := tx.ListFields(target.TableID)
	if err != nil {
		return err
	}
	for _, p := range fields {
		if p.Label == sf.RelatedField {
			rc.RelatedFieldID = p.FieldID
			return nil
		}
	}
	if declared(f, sf.RelatedTable, sf.RelatedField) {
		rc.RelatedTableID = ""
	}
	return nil
}

func declared(f *schemafile.File, table, label string) bool {
	for _, st := range f.Tables {
		if strings.TrimSpace(st.Name) != table {
			continue
		}
		for _, sf := range st.Fields {
			if strings.TrimSpace(sf.Label) == label {
				return true
			}
		}
	}
	return false
}

// keepOptionIDs gives options in next the ids of stored options with the
// same value, so responses referencing them survive a re-apply.
func keepOptionIDs(tx *sqlite.Tx, cur *types.Field, next types.FieldConfig) error {
	nc, ok := next.(*types.ChoiceConfig)
	if !ok {
		return nil
	}
	stored, err := tx.GetConfig(cur.FieldID)
	if err != nil {
		return err
	}
	sc, ok := stored.(*types.ChoiceConfig)
	if !ok {
		return nil
	}
	for i := range nc.Options {
		o := &nc.Options[i]
		value := strings.TrimSpace(o.Value)
		if value == "" {
			value = strings.TrimSpace(o.Label)
		}
		for _, s := range sc.Options {
			if s.Value == value {
				o.OptionID = s.OptionID
				break
			}
		}
	}
	return nil
}

// ExportSchema describes every table and field as a schema file.
func (e *Engine) ExportSchema(ctx context.Context) (*schemafile.File, error) {
	out := &schemafile.File{Version: schemafile.CurrentVersion}
	err := e.view(ctx, func(tx *sqlite.Tx) error {
		tables, err := tx.ListTables(types.TableFilter{})
		if err != nil {
			return err
		}
		names := make(map[string]string, len(tables))
		for _, tb := range tables {
			names[tb.TableID] = tb.Name
		}
		for _, tb := range tables {
			st := schemafile.Table{Name: tb.Name, Workspace: tb.WorkspaceID, Description: tb.Description}
			fields, err := tx.ListFields(tb.TableID)
			if err != nil {
				return err
			}
			for _, f := range fields {
				sf, err := e.exportField(tx, f, names)
				if err != nil {
					return err
				}
				st.Fields = append(st.Fields, sf)
			}
			out.Tables = append(out.Tables, st)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) exportField(tx *sqlite.Tx, f *types.Field, tableNames map[string]string) (schemafile.Field, error) {
	sf := schemafile.Field{Label: f.Label, Type: f.FieldType}
	cfg, err := e.catalog.GetConfig(tx, f)
	if err != nil {
		return sf, err
	}
	if sf.Settings, err = schemafile.Settings(cfg); err != nil {
		return sf, err
	}
	rc, ok := cfg.(*types.RelationConfig)
	if !ok || rc.Unpaired() {
		return sf, nil
	}
	sf.RelatedTable = tableNames[rc.RelatedTableID]
	p, err := tx.GetField(rc.RelatedFieldID)
	if err != nil {
		return sf, err
	}
	sf.RelatedField = p.Label
	return sf, nil
}
