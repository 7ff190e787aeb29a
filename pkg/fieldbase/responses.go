package fieldbase

import (
	"context"

	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// UpsertResponse validates raw against the field's active config and stores
// it as the page's response for the field, replacing any previous one.
func (e *Engine) UpsertResponse(ctx context.Context, pageID, fieldID string, raw any) (*types.FieldResponse, error) {
	var r *types.FieldResponse
	err := e.update(ctx, "upsert_response", func(tx *sqlite.Tx) error {
		var err error
		r, err = e.responses.Upsert(tx, pageID, fieldID, raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpsertResponseData is UpsertResponse for a client envelope, which must
// hold exactly the key "value".
func (e *Engine) UpsertResponseData(ctx context.Context, pageID, fieldID string, data map[string]any) (*types.FieldResponse, error) {
	var r *types.FieldResponse
	err := e.update(ctx, "upsert_response", func(tx *sqlite.Tx) error {
		var err error
		r, err = e.responses.UpsertData(tx, pageID, fieldID, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetResponse returns the serialized response of a page for a field.
func (e *Engine) GetResponse(ctx context.Context, pageID, fieldID string) (any, error) {
	var v any
	err := e.view(ctx, func(tx *sqlite.Tx) error {
		var err error
		v, err = e.responses.Get(tx, pageID, fieldID)
		return err
	})
	return v, err
}
