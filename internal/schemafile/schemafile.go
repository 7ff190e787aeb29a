// Package schemafile reads and writes declarative table schemas as YAML.
// Relation targets are named by table name and field label so a file can
// be applied to an empty data directory.
package schemafile

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// CurrentVersion is written into every encoded file.
const CurrentVersion = "1"

// File is a schema document.
type File struct {
	Version string  `yaml:"version"`
	Tables  []Table `yaml:"tables"`
}

// Table declares a table and its fields in display order.
type Table struct {
	Name        string  `yaml:"name"`
	Workspace   string  `yaml:"workspace,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Fields      []Field `yaml:"fields"`
}

// Field declares one field. Settings holds the type specific config keys
// (display_format, options, ...). Relation fields name their target with
// RelatedTable and optionally pair with the field labelled RelatedField.
type Field struct {
	Label        string          `yaml:"label"`
	Type         types.FieldType `yaml:"type"`
	Settings     map[string]any  `yaml:"settings,omitempty"`
	RelatedTable string          `yaml:"related_table,omitempty"`
	RelatedField string          `yaml:"related_field,omitempty"`
}

// Encode renders f as YAML, stamping the current version.
func Encode(f *File) ([]byte, error) {
	out := *f
	out.Version = CurrentVersion
	return yaml.Marshal(&out)
}

// Decode parses and checks a schema document. A missing version is read as
// the current one.
func Decode(b []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, types.Validationf("schema", "malformed schema: %v", err)
	}
	if f.Version == "" {
		f.Version = CurrentVersion
	}
	if f.Version != CurrentVersion {
		return nil, types.Validationf("version", "unsupported schema version %q", f.Version)
	}
	if err := f.Check(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Check validates names, types and relation targets without touching
// storage.
func (f *File) Check() error {
	ve := &types.ValidationError{}
	tables := make(map[string]bool, len(f.Tables))
	for i, t := range f.Tables {
		name := strings.TrimSpace(t.Name)
		switch {
		case name == "":
			ve.Add(fmt.Sprintf("tables[%d].name", i), "name is required")
		case tables[name]:
			ve.Add(fmt.Sprintf("tables[%d].name", i), fmt.Sprintf("table %q is declared twice", name))
		}
		tables[name] = true
	}
	for i, t := range f.Tables {
		labels := make(map[string]bool, len(t.Fields))
		for j, fd := range t.Fields {
			path := fmt.Sprintf("tables[%d].fields[%d]", i, j)
			label := strings.TrimSpace(fd.Label)
			switch {
			case label == "":
				ve.Add(path+".label", "label is required")
			case labels[label]:
				ve.Add(path+".label", fmt.Sprintf("field %q is declared twice", label))
			}
			labels[label] = true
			if !fd.Type.Valid() {
				ve.Add(path+".type", fmt.Sprintf("%q is not a valid choice", fd.Type))
				continue
			}
			if fd.Type != types.FieldTypeRelation && (fd.RelatedTable != "" || fd.RelatedField != "") {
				ve.Add(path+".related_table", "only relation fields have a related table")
			}
			if fd.RelatedField != "" && fd.RelatedTable == "" {
				ve.Add(path+".related_field", "related_field requires related_table")
			}
			if _, err := fd.Config(); err != nil {
				ve.Add(path+".settings", err.Error())
			}
		}
	}
	return ve.OrNil()
}

// Config decodes Settings into the config variant of the field's type.
// Relation targets are not resolved.
func (fd Field) Config() (types.FieldConfig, error) {
	data, err := json.Marshal(fd.Settings)
	if err != nil {
		return nil, fmt.Errorf("encoding settings of %s: %w", fd.Label, err)
	}
	if fd.Settings == nil {
		data = nil
	}
	return types.DecodeConfig(fd.Type, data)
}

// identityKeys are config keys that hold ids and never appear in a file.
var identityKeys = []string{"id", "field", "source_field", "related_field", "related_database"}

// Settings renders cfg as a settings map without ids. Choice options keep
// only their label and value.
func Settings(cfg types.FieldConfig) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	for _, k := range identityKeys {
		delete(m, k)
	}
	if opts, ok := m["options"].([]any); ok {
		for i, o := range opts {
			om, _ := o.(map[string]any)
			opts[i] = map[string]any{"label": om["label"], "value": om["value"]}
		}
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}
