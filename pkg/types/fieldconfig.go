package types

import (
	"encoding/json"
	"fmt"
)

// FieldConfig is the tagged variant over the per-type configuration shapes.
// Exactly one concrete variant is active per field and its FieldType must
// equal the field's type.
type FieldConfig interface {
	FieldType() FieldType
	Base() *ConfigBase
}

// ConfigBase holds the identity shared by every configuration variant.
type ConfigBase struct {
	ConfigID string `json:"id,omitempty"`
	FieldID  string `json:"field,omitempty"`
}

// Base returns the shared identity so stores can set ids without a type switch.
func (b *ConfigBase) Base() *ConfigBase { return b }

// Display formats, one set per field type.
const (
	TextSingleLine = "single_line"
	TextMultiLine  = "multi_line"
	TextEmail      = "email"
	TextURL        = "url"
	TextPhone      = "phone"
	TextRichText   = "rich_text"

	NumberDecimal    = "decimal"
	NumberInteger    = "integer"
	NumberPercentage = "percentage"
	NumberCurrency   = "currency"

	BooleanCheckbox = "checkbox"
	BooleanToggle   = "toggle"

	DateDate     = "date"
	DateDateTime = "datetime"
	DateTime     = "time"

	ChecklistList   = "list"
	ChecklistInline = "inline"

	ChecklistStatusProgress   = "progress"
	ChecklistStatusPercentage = "percentage"

	ChoiceDropdown = "dropdown"
	ChoiceRadio    = "radio"
	ChoiceCheckbox = "checkbox"
	ChoiceTags     = "tags"
)

// File kinds accepted by FileConfig.SupportedFileTypes.
const (
	FileKindAll      = "all"
	FileKindImage    = "image"
	FileKindVideo    = "video"
	FileKindAudio    = "audio"
	FileKindDocument = "document"
)

// TextConfig configures a text field.
type TextConfig struct {
	ConfigBase
	DisplayFormat string `json:"display_format"`
}

// NumberConfig configures a number field. DisplayFormat also drives how raw
// input is coerced.
type NumberConfig struct {
	ConfigBase
	DisplayFormat string `json:"display_format"`
}

// BooleanConfig configures a boolean field.
type BooleanConfig struct {
	ConfigBase
	DisplayFormat string `json:"display_format"`
}

// DateConfig configures a date field.
type DateConfig struct {
	ConfigBase
	DisplayFormat string `json:"display_format"`
}

// ChecklistConfig configures a checklist field.
type ChecklistConfig struct {
	ConfigBase
	DisplayFormat string `json:"display_format"`
	StatusFormat  string `json:"status_format"`
}

// ChoiceConfig configures a choice field and owns its options.
type ChoiceConfig struct {
	ConfigBase
	IsMultiSelect bool           `json:"is_multi_select"`
	DisplayFormat string         `json:"display_format"`
	Options       []ChoiceOption `json:"options"`
}

// ChoiceOption is one selectable value of a ChoiceConfig. Options are
// deleted together with their config.
type ChoiceOption struct {
	OptionID string `json:"id,omitempty"`
	ConfigID string `json:"config,omitempty"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	Ordinal  int    `json:"ordinal"`
}

// FileConfig configures a file field.
type FileConfig struct {
	ConfigBase
	SupportedFileTypes []string `json:"supported_file_types"`
	IsMultiple         bool     `json:"is_multiple"`
}

// RelationConfig configures a relation field. SourceFieldID is the owning
// field and RelatedFieldID its mirror on the other side of the pair; a
// config whose RelatedFieldID equals SourceFieldID is an unpaired (self)
// relation. RelatedTableID is the table whose pages responses may reference.
type RelationConfig struct {
	ConfigBase
	SourceFieldID  string `json:"source_field"`
	RelatedFieldID string `json:"related_field"`
	RelatedTableID string `json:"related_database"`
}

// Unpaired reports whether the config still points at its own field.
func (c *RelationConfig) Unpaired() bool {
	return c.RelatedFieldID == "" || c.RelatedFieldID == c.SourceFieldID
}

func (*TextConfig) FieldType() FieldType      { return FieldTypeText }
func (*NumberConfig) FieldType() FieldType    { return FieldTypeNumber }
func (*BooleanConfig) FieldType() FieldType   { return FieldTypeBoolean }
func (*DateConfig) FieldType() FieldType      { return FieldTypeDate }
func (*ChecklistConfig) FieldType() FieldType { return FieldTypeChecklist }
func (*ChoiceConfig) FieldType() FieldType    { return FieldTypeChoice }
func (*FileConfig) FieldType() FieldType      { return FieldTypeFile }
func (*RelationConfig) FieldType() FieldType  { return FieldTypeRelation }

// NewConfig returns an empty configuration variant for t.
func NewConfig(t FieldType) (FieldConfig, error) {
	switch t {
	case FieldTypeText:
		return &TextConfig{}, nil
	case FieldTypeNumber:
		return &NumberConfig{}, nil
	case FieldTypeBoolean:
		return &BooleanConfig{}, nil
	case FieldTypeDate:
		return &DateConfig{}, nil
	case FieldTypeChecklist:
		return &ChecklistConfig{}, nil
	case FieldTypeChoice:
		return &ChoiceConfig{}, nil
	case FieldTypeFile:
		return &FileConfig{}, nil
	case FieldTypeRelation:
		return &RelationConfig{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFieldType, t)
	}
}

// DecodeConfig unmarshals JSON settings into the variant for t. Unknown keys
// are ignored; a malformed document is a ValidationError on "config".
func DecodeConfig(t FieldType, data []byte) (FieldConfig, error) {
	cfg, err := NewConfig(t)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, Validationf("config", "malformed %s config: %v", t, err)
	}
	return cfg, nil
}

// CloneConfig returns a deep copy of cfg. A nil cfg clones to nil.
func CloneConfig(cfg FieldConfig) (FieldConfig, error) {
	if cfg == nil {
		return nil, nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("cloning %s config: %w", cfg.FieldType(), err)
	}
	return DecodeConfig(cfg.FieldType(), data)
}
