package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// The config store keeps one row per field in field_configs. Type specific
// settings are a JSON document; relation pointers are also lifted into
// columns so the mirror uniqueness index can see them. Choice options live
// in their own table.

const configCols = "config_id, field_id, field_type, settings, related_field_id, related_table_id, " + auditCols

// InsertConfig writes the config of cfg.Base().FieldID, assigning a config
// id when empty, and the options of a choice config.
func (t *Tx) InsertConfig(cfg types.FieldConfig) error {
	base := cfg.Base()
	if base.FieldID == "" {
		return fmt.Errorf("inserting config: %w", types.ErrInvalidID)
	}
	if base.ConfigID == "" {
		base.ConfigID = newID()
	}
	settings, err := encodeSettings(cfg)
	if err != nil {
		return err
	}
	related, relatedTable := relationColumns(cfg)

	var audit types.Audit
	t.stamp(&audit, true)
	args := append([]any{base.ConfigID, base.FieldID, string(cfg.FieldType()), settings, related, relatedTable},
		auditArgs(audit)...)
	if _, err := t.exec("inserting config",
		"INSERT INTO field_configs ("+configCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", args...); err != nil {
		return err
	}
	if c, ok := cfg.(*types.ChoiceConfig); ok {
		return t.syncOptions(c)
	}
	return nil
}

// UpdateConfig rewrites the settings of an existing config. The type of a
// config never changes; replace it with DeleteConfig and InsertConfig.
func (t *Tx) UpdateConfig(cfg types.FieldConfig) error {
	base := cfg.Base()
	settings, err := encodeSettings(cfg)
	if err != nil {
		return err
	}
	related, relatedTable := relationColumns(cfg)

	var audit types.Audit
	t.stamp(&audit, false)
	if err := t.execOne("updating config", "config", base.ConfigID,
		`UPDATE field_configs SET settings = ?, related_field_id = ?, related_table_id = ?,
		 updated_at = ?, updated_by = ? WHERE config_id = ? AND field_type = ?`,
		settings, related, relatedTable, formatTime(audit.UpdatedAt), audit.UpdatedBy,
		base.ConfigID, string(cfg.FieldType())); err != nil {
		return err
	}
	if c, ok := cfg.(*types.ChoiceConfig); ok {
		return t.syncOptions(c)
	}
	return nil
}

// DeleteConfig removes the config of a field and its options.
func (t *Tx) DeleteConfig(fieldID string) error {
	_, err := t.exec("deleting config", "DELETE FROM field_configs WHERE field_id = ?", fieldID)
	return err
}

// GetConfig returns the active config of a field.
func (t *Tx) GetConfig(fieldID string) (types.FieldConfig, error) {
	if fieldID == "" {
		return nil, types.ErrInvalidID
	}
	cfg, err := t.hydrateConfig(t.queryRow("SELECT "+configCols+" FROM field_configs WHERE field_id = ?", fieldID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("config", fieldID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting config of field %s: %w", fieldID, err)
	}
	if c, ok := cfg.(*types.ChoiceConfig); ok {
		if c.Options, err = t.ListOptions(c.ConfigID); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// RelationsPointingAt returns the relation configs, other than fieldID's
// own, whose related field is fieldID.
func (t *Tx) RelationsPointingAt(fieldID string) ([]*types.RelationConfig, error) {
	rows, err := t.query("SELECT "+configCols+
		" FROM field_configs WHERE related_field_id = ? AND field_id != ? ORDER BY rowid", fieldID, fieldID)
	if err != nil {
		return nil, fmt.Errorf("querying relations of %s: %w", fieldID, err)
	}
	defer rows.Close()

	var out []*types.RelationConfig
	for rows.Next() {
		cfg, err := t.hydrateConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning relation config: %w", err)
		}
		if rc, ok := cfg.(*types.RelationConfig); ok {
			out = append(out, rc)
		}
	}
	return out, rows.Err()
}

func (t *Tx) hydrateConfig(row scanner) (types.FieldConfig, error) {
	var (
		configID, fieldID, fieldType, settings string
		related, relatedTable                  sql.NullString
		audit                                  types.Audit
	)
	as := scanAuditInto(&audit)
	dest := append([]any{&configID, &fieldID, &fieldType, &settings, &related, &relatedTable}, as.dest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	cfg, err := types.DecodeConfig(types.FieldType(fieldType), []byte(settings))
	if err != nil {
		return nil, err
	}
	base := cfg.Base()
	base.ConfigID = configID
	base.FieldID = fieldID
	if rc, ok := cfg.(*types.RelationConfig); ok {
		rc.RelatedFieldID = related.String
		rc.RelatedTableID = relatedTable.String
		if rc.SourceFieldID == "" {
			rc.SourceFieldID = fieldID
		}
	}
	return cfg, nil
}

func encodeSettings(cfg types.FieldConfig) (string, error) {
	v := cfg
	if c, ok := cfg.(*types.ChoiceConfig); ok {
		cp := *c
		cp.Options = nil
		v = &cp
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding %s config: %w", cfg.FieldType(), err)
	}
	return string(b), nil
}

func relationColumns(cfg types.FieldConfig) (sql.NullString, sql.NullString) {
	rc, ok := cfg.(*types.RelationConfig)
	if !ok {
		return sql.NullString{}, sql.NullString{}
	}
	return nullString(rc.RelatedFieldID), nullString(rc.RelatedTableID)
}

// ListOptions returns the options of a choice config by ordinal.
func (t *Tx) ListOptions(configID string) ([]types.ChoiceOption, error) {
	rows, err := t.query(
		"SELECT option_id, config_id, label, value, ordinal FROM choice_options WHERE config_id = ? ORDER BY ordinal, rowid",
		configID)
	if err != nil {
		return nil, fmt.Errorf("listing options: %w", err)
	}
	defer rows.Close()

	out := []types.ChoiceOption{}
	for rows.Next() {
		var o types.ChoiceOption
		if err := rows.Scan(&o.OptionID, &o.ConfigID, &o.Label, &o.Value, &o.Ordinal); err != nil {
			return nil, fmt.Errorf("scanning option: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetOption returns one choice option.
func (t *Tx) GetOption(id string) (*types.ChoiceOption, error) {
	var o types.ChoiceOption
	err := t.queryRow(
		"SELECT option_id, config_id, label, value, ordinal FROM choice_options WHERE option_id = ?", id,
	).Scan(&o.OptionID, &o.ConfigID, &o.Label, &o.Value, &o.Ordinal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("option", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting option %s: %w", id, err)
	}
	return &o, nil
}

// syncOptions makes the stored options of c equal to c.Options. Options
// whose id is already stored under c are updated in place, the rest get
// fresh ids, and stored options no longer listed are deleted along with
// every selection of them.
func (t *Tx) syncOptions(c *types.ChoiceConfig) error {
	existing, err := t.ListOptions(c.ConfigID)
	if err != nil {
		return err
	}
	stored := make(map[string]bool, len(existing))
	for _, o := range existing {
		stored[o.OptionID] = true
	}
	keep := make(map[string]bool, len(c.Options))
	for _, o := range c.Options {
		if stored[o.OptionID] {
			keep[o.OptionID] = true
		}
	}
	var removed []string
	for _, o := range existing {
		if keep[o.OptionID] {
			continue
		}
		if _, err := t.exec("deleting option", "DELETE FROM choice_options WHERE option_id = ?", o.OptionID); err != nil {
			return err
		}
		removed = append(removed, o.OptionID)
	}
	if err := t.dropReferences(removed,
		"field_id IN (SELECT field_id FROM field_configs WHERE config_id = ?)", c.ConfigID); err != nil {
		return err
	}

	for i := range c.Options {
		o := &c.Options[i]
		o.ConfigID = c.ConfigID
		o.Ordinal = i
		if keep[o.OptionID] {
			if _, err := t.exec("updating option",
				"UPDATE choice_options SET label = ?, value = ?, ordinal = ? WHERE option_id = ?",
				o.Label, o.Value, o.Ordinal, o.OptionID); err != nil {
				return err
			}
			continue
		}
		o.OptionID = newID()
		if _, err := t.exec("inserting option",
			"INSERT INTO choice_options (option_id, config_id, label, value, ordinal) VALUES (?, ?, ?, ?, ?)",
			o.OptionID, o.ConfigID, o.Label, o.Value, o.Ordinal); err != nil {
			return err
		}
	}
	return nil
}
