// Package responses stores field responses. Every write goes through the
// owning field's active config: raw input is deserialized, validated and
// wrapped as {"value": v} before it reaches the database.
package responses

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/fieldbase/internal/catalog"
	"github.com/mesh-intelligence/fieldbase/internal/fieldtype"
	"github.com/mesh-intelligence/fieldbase/internal/metrics"
	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// AttachmentResolver resolves attachments kept outside the database.
type AttachmentResolver interface {
	Attachment(ctx context.Context, attachmentID string) (*types.Attachment, error)
}

// Store is the response store.
type Store struct {
	catalog  *catalog.Catalog
	external AttachmentResolver
	log      *zap.SugaredLogger
}

// New returns a store validating through cat. external may be nil; when
// set it is consulted for attachments the database does not know.
func New(cat *catalog.Catalog, external AttachmentResolver, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{catalog: cat, external: external, log: log}
}

// Upsert validates raw against the field's config and stores it as the
// response of pageID for fieldID, replacing any previous value.
func (s *Store) Upsert(tx *sqlite.Tx, pageID, fieldID string, raw any) (*types.FieldResponse, error) {
	page, err := tx.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	field, err := tx.GetField(fieldID)
	if err != nil {
		return nil, err
	}
	if page.TableID != field.TableID {
		return nil, s.rejected(types.Validationf("field",
			"field %s does not belong to the table of page %s", fieldID, pageID))
	}
	cfg, err := s.catalog.GetConfig(tx, field)
	if err != nil {
		return nil, err
	}

	v, err := s.catalog.Registry().Normalize(tx.Context(), cfg, raw, s.Lookup(tx))
	if err != nil {
		return nil, s.rejected(err)
	}
	r := &types.FieldResponse{
		PageID:  pageID,
		FieldID: fieldID,
		Data:    map[string]any{types.ResponseValueKey: v},
	}
	if err := tx.UpsertResponse(r); err != nil {
		return nil, err
	}
	metrics.ResponsesWritten.WithLabelValues(string(field.FieldType)).Inc()
	s.log.Debugw("upserted response", "page", pageID, "field", fieldID, "field_type", field.FieldType)
	return r, nil
}

// UpsertData is Upsert for a client supplied envelope. data must hold
// exactly the key "value".
func (s *Store) UpsertData(tx *sqlite.Tx, pageID, fieldID string, data map[string]any) (*types.FieldResponse, error) {
	if err := types.CheckEnvelope(data); err != nil {
		return nil, s.rejected(err)
	}
	return s.Upsert(tx, pageID, fieldID, data[types.ResponseValueKey])
}

// Get returns the transport form of the response of pageID for fieldID.
func (s *Store) Get(tx *sqlite.Tx, pageID, fieldID string) (any, error) {
	field, err := tx.GetField(fieldID)
	if err != nil {
		return nil, err
	}
	r, err := tx.GetResponse(pageID, fieldID)
	if err != nil {
		return nil, err
	}
	return s.SerializeForRead(tx, field, r)
}

// SerializeForRead returns the transport form of r under the active config
// of field. A nil response serializes to nil.
func (s *Store) SerializeForRead(tx *sqlite.Tx, field *types.Field, r *types.FieldResponse) (any, error) {
	if r == nil {
		return nil, nil
	}
	cfg, err := s.catalog.GetConfig(tx, field)
	if err != nil {
		return nil, err
	}
	return s.catalog.Registry().Serialize(cfg, r.Value())
}

func (s *Store) rejected(err error) error {
	if errors.Is(err, types.ErrValidation) {
		metrics.ValidationFailures.WithLabelValues("upsert_response").Inc()
	}
	return err
}

// Lookup returns the id resolver used to validate values inside tx.
func (s *Store) Lookup(tx *sqlite.Tx) fieldtype.Lookup {
	return txLookup{tx: tx, external: s.external}
}

type txLookup struct {
	tx       *sqlite.Tx
	external AttachmentResolver
}

func (l txLookup) Option(_ context.Context, id string) (*types.ChoiceOption, error) {
	return l.tx.GetOption(id)
}

func (l txLookup) Page(_ context.Context, id string) (*types.Page, error) {
	return l.tx.GetPage(id)
}

func (l txLookup) Attachment(ctx context.Context, id string) (*types.Attachment, error) {
	a, err := l.tx.GetAttachment(id)
	if errors.Is(err, types.ErrNotFound) && l.external != nil {
		return l.external.Attachment(ctx, id)
	}
	return a, err
}
