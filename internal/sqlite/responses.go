package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

const responseCols = "response_id, page_id, field_id, data, " + auditCols

// UpsertResponse stores r.Data for (r.PageID, r.FieldID), replacing any
// previous row for the pair. r is updated with the stored id and audit.
func (t *Tx) UpsertResponse(r *types.FieldResponse) error {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	t.stamp(&r.Audit, true)
	created := ""
	err = t.queryRow(
		`INSERT INTO field_responses (`+responseCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (page_id, field_id) DO UPDATE SET
		   data = excluded.data, updated_at = excluded.updated_at, updated_by = excluded.updated_by
		 RETURNING response_id, created_at, created_by`,
		append([]any{newID(), r.PageID, r.FieldID, string(data)}, auditArgs(r.Audit)...)...,
	).Scan(&r.ResponseID, &created, &r.CreatedBy)
	if err != nil {
		return mapErr("upserting response", err)
	}
	r.CreatedAt, err = parseTime(created)
	return err
}

// GetResponse returns the response of one page for one field.
func (t *Tx) GetResponse(pageID, fieldID string) (*types.FieldResponse, error) {
	r, err := hydrateResponse(t.queryRow(
		"SELECT "+responseCols+" FROM field_responses WHERE page_id = ? AND field_id = ?", pageID, fieldID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("response", pageID+"/"+fieldID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting response: %w", err)
	}
	return r, nil
}

// PageResponses returns the responses of a page keyed by field id.
func (t *Tx) PageResponses(pageID string) (map[string]*types.FieldResponse, error) {
	return t.collectResponses("SELECT "+responseCols+" FROM field_responses WHERE page_id = ?", pageID)
}

// TableResponses returns every response of the pages of a table, keyed by
// page id then field id.
func (t *Tx) TableResponses(tableID string) (map[string]map[string]*types.FieldResponse, error) {
	rows, err := t.query("SELECT "+responseCols+
		" FROM field_responses WHERE page_id IN (SELECT page_id FROM pages WHERE table_id = ?)", tableID)
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]*types.FieldResponse)
	for rows.Next() {
		r, err := hydrateResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning response: %w", err)
		}
		if out[r.PageID] == nil {
			out[r.PageID] = make(map[string]*types.FieldResponse)
		}
		out[r.PageID][r.FieldID] = r
	}
	return out, rows.Err()
}

// DeleteFieldResponses drops every response recorded for a field.
func (t *Tx) DeleteFieldResponses(fieldID string) error {
	_, err := t.exec("deleting responses", "DELETE FROM field_responses WHERE field_id = ?", fieldID)
	return err
}

// dropReferences removes ids from the value lists of the responses matched
// by where. The remaining items keep their order.
func (t *Tx) dropReferences(ids []string, where string, args ...any) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	rows, err := t.query("SELECT "+responseCols+" FROM field_responses WHERE "+where, args...)
	if err != nil {
		return fmt.Errorf("listing referencing responses: %w", err)
	}
	var changed []*types.FieldResponse
	for rows.Next() {
		r, err := hydrateResponse(rows)
		if err != nil {
			rows.Close()
			return fmt.Errorf("scanning response: %w", err)
		}
		items, ok := r.Value().([]any)
		if !ok {
			continue
		}
		kept := make([]any, 0, len(items))
		for _, item := range items {
			if id, ok := item.(string); ok && drop[id] {
				continue
			}
			kept = append(kept, item)
		}
		if len(kept) == len(items) {
			continue
		}
		r.Data[types.ResponseValueKey] = kept
		changed = append(changed, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("listing referencing responses: %w", err)
	}
	rows.Close()

	for _, r := range changed {
		data, err := json.Marshal(r.Data)
		if err != nil {
			return fmt.Errorf("encoding response: %w", err)
		}
		t.stamp(&r.Audit, false)
		if _, err := t.exec("rewriting response",
			"UPDATE field_responses SET data = ?, updated_at = ?, updated_by = ? WHERE response_id = ?",
			string(data), formatTime(r.UpdatedAt), r.UpdatedBy, r.ResponseID); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) collectResponses(query string, args ...any) (map[string]*types.FieldResponse, error) {
	rows, err := t.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*types.FieldResponse)
	for rows.Next() {
		r, err := hydrateResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning response: %w", err)
		}
		out[r.FieldID] = r
	}
	return out, rows.Err()
}

func hydrateResponse(row scanner) (*types.FieldResponse, error) {
	r := &types.FieldResponse{}
	var data string
	audit := scanAuditInto(&r.Audit)
	dest := append([]any{&r.ResponseID, &r.PageID, &r.FieldID, &data}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &r.Data); err != nil {
		return nil, fmt.Errorf("decoding response data: %w", err)
	}
	return r, audit.finish()
}
