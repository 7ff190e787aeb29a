package sqlite

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// jsonlTableMapping maps backup files to their SQLite tables and columns.
// Order matters: referenced tables come before the tables that reference
// them.
var jsonlTableMapping = []struct {
	file    string
	table   string
	columns []string
}{
	{"tables.jsonl", "tables", []string{"table_id", "workspace_id", "name", "description", "created_at", "updated_at", "created_by", "updated_by"}},
	{"fields.jsonl", "fields", []string{"field_id", "table_id", "label", "field_type", "config_id", "created_at", "updated_at", "created_by", "updated_by"}},
	{"field_configs.jsonl", "field_configs", []string{"config_id", "field_id", "field_type", "settings", "related_field_id", "related_table_id", "created_at", "updated_at", "created_by", "updated_by"}},
	{"choice_options.jsonl", "choice_options", []string{"option_id", "config_id", "label", "value", "ordinal"}},
	{"views.jsonl", "views", []string{"view_id", "table_id", "label", "description", "view_type", "is_default", "field_ids", "fields_order", "sort_by", "filter_by", "created_at", "updated_at", "created_by", "updated_by"}},
	{"folders.jsonl", "folders", []string{"folder_id", "workspace_id", "parent_id", "label", "view_ids", "view_order", "created_at", "updated_at", "created_by", "updated_by"}},
	{"attachments.jsonl", "attachments", []string{"attachment_id", "name", "content_type", "kind", "size", "created_at", "updated_at", "created_by", "updated_by"}},
	{"pages.jsonl", "pages", []string{"page_id", "table_id", "title", "content", "created_at", "updated_at", "created_by", "updated_by"}},
	{"page_attachments.jsonl", "page_attachments", []string{"page_id", "attachment_id", "ordinal"}},
	{"field_responses.jsonl", "field_responses", []string{"response_id", "page_id", "field_id", "data", "created_at", "updated_at", "created_by", "updated_by"}},
}

// ImportStats counts what ImportJSONL did per table.
type ImportStats struct {
	Loaded  map[string]int
	Skipped map[string]int
}

// ExportJSONL writes one JSONL file per table into dir, rows in creation
// order. Each file is replaced atomically.
func (t *Tx) ExportJSONL(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	for _, m := range jsonlTableMapping {
		records, err := t.dumpTable(m.table, m.columns)
		if err != nil {
			return err
		}
		if err := writeJSONL(filepath.Join(dir, m.file), records); err != nil {
			return fmt.Errorf("writing %s: %w", m.file, err)
		}
	}
	return nil
}

func (t *Tx) dumpTable(table string, columns []string) ([]json.RawMessage, error) {
	rows, err := t.query(fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(columns, ", "), table))
	if err != nil {
		return nil, fmt.Errorf("querying %s for export: %w", table, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		rec := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			rec[col] = values[i]
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s row: %w", table, err)
		}
		records = append(records, data)
	}
	return records, rows.Err()
}

// ImportJSONL loads the files written by ExportJSONL. Foreign keys are
// checked at commit, so the whole import lands or none of it does.
// Malformed lines and rows that collide with existing ids are skipped and
// counted; unknown keys in a record are ignored.
func (t *Tx) ImportJSONL(dir string) (*ImportStats, error) {
	if _, err := t.exec("deferring foreign keys", "PRAGMA defer_foreign_keys = ON"); err != nil {
		return nil, err
	}
	stats := &ImportStats{Loaded: map[string]int{}, Skipped: map[string]int{}}
	for _, m := range jsonlTableMapping {
		records, malformed, err := readJSONL(filepath.Join(dir, m.file))
		if err != nil {
			return nil, err
		}
		stats.Skipped[m.table] += malformed
		if len(records) == 0 {
			continue
		}
		loaded, skipped, err := t.insertRecords(m.table, m.columns, records)
		if err != nil {
			return nil, fmt.Errorf("loading %s into %s: %w", m.file, m.table, err)
		}
		stats.Loaded[m.table] += loaded
		stats.Skipped[m.table] += skipped
	}
	return stats, nil
}

func (t *Tx) insertRecords(table string, columns []string, records []json.RawMessage) (loaded, skipped int, err error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := t.tx.PrepareContext(t.ctx, fmt.Sprintf(
		"INSERT OR IGNORE INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders))
	if err != nil {
		return 0, 0, fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			skipped++
			continue
		}
		args := make([]any, len(columns))
		for i, col := range columns {
			switch v := obj[col].(type) {
			case map[string]any, []any:
				b, err := json.Marshal(v)
				if err != nil {
					return loaded, skipped, fmt.Errorf("re-encoding %s.%s: %w", table, col, err)
				}
				args[i] = string(b)
			default:
				args[i] = v
			}
		}
		res, err := stmt.ExecContext(t.ctx, args...)
		if err != nil {
			return loaded, skipped, mapErr("importing "+table, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			skipped++
			continue
		}
		loaded++
	}
	return loaded, skipped, nil
}
