package types

// FieldType tags the closed set of field kinds.
type FieldType string

const (
	FieldTypeText      FieldType = "text"
	FieldTypeNumber    FieldType = "number"
	FieldTypeBoolean   FieldType = "boolean"
	FieldTypeDate      FieldType = "date"
	FieldTypeChecklist FieldType = "checklist"
	FieldTypeChoice    FieldType = "choice"
	FieldTypeFile      FieldType = "file"
	FieldTypeRelation  FieldType = "relation"
)

// FieldTypes lists every field type in declaration order.
var FieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeNumber,
	FieldTypeBoolean,
	FieldTypeDate,
	FieldTypeChecklist,
	FieldTypeChoice,
	FieldTypeFile,
	FieldTypeRelation,
}

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	for _, ft := range FieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// Field is a named, typed column definition on a table. ConfigID points at
// the single active configuration, whose variant matches FieldType.
type Field struct {
	FieldID   string    `json:"id"`
	TableID   string    `json:"database"`
	Label     string    `json:"label"`
	FieldType FieldType `json:"field_type"`
	ConfigID  string    `json:"config_id"`
	Audit
}
