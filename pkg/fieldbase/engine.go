// Package fieldbase is the public entry point of the field engine. An
// Engine owns one attached backend and runs every operation in its own
// transaction: a field, its config and any relation mirror commit together
// or not at all.
package fieldbase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/fieldbase/internal/catalog"
	"github.com/mesh-intelligence/fieldbase/internal/fieldtype"
	"github.com/mesh-intelligence/fieldbase/internal/metrics"
	"github.com/mesh-intelligence/fieldbase/internal/projector"
	"github.com/mesh-intelligence/fieldbase/internal/responses"
	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// Version is the release of the engine and CLI.
const Version = "v0.1.0"

// maxAttempts bounds how often a transaction runs when it keeps hitting
// uniqueness violations.
const maxAttempts = 3

// Read models and patches returned or accepted by the engine.
type (
	TablePatch   = catalog.TablePatch
	FieldPatch   = catalog.FieldPatch
	PageDocument = projector.PageDocument
	FieldValue   = projector.FieldValue
	ViewDocument = projector.ViewDocument
	PageRow      = projector.PageRow
	ImportStats  = sqlite.ImportStats
)

// AttachmentResolver resolves attachments kept outside the database, such
// as those registered with an object store.
type AttachmentResolver interface {
	Attachment(ctx context.Context, attachmentID string) (*types.Attachment, error)
}

type options struct {
	log         *zap.SugaredLogger
	attachments AttachmentResolver
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) { o.log = log }
}

// WithAttachmentStore adds a resolver consulted for attachment ids the
// database has not recorded.
func WithAttachmentStore(r AttachmentResolver) Option {
	return func(o *options) { o.attachments = r }
}

// Engine is an open fieldbase.
type Engine struct {
	backend   *sqlite.Backend
	catalog   *catalog.Catalog
	responses *responses.Store
	projector *projector.Projector
	log       *zap.SugaredLogger
}

// Open attaches the backend described by cfg.
func Open(cfg types.Config, opts ...Option) (*Engine, error) {
	o := options{log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}

	b := sqlite.NewBackend()
	if err := b.Attach(cfg); err != nil {
		return nil, err
	}

	cat := catalog.New(fieldtype.NewRegistry(), o.log.Named("catalog"))
	store := responses.New(cat, o.attachments, o.log.Named("responses"))
	o.log.Debugw("opened fieldbase", "backend", cfg.Backend, "data_dir", cfg.DataDir)
	return &Engine{
		backend:   b,
		catalog:   cat,
		responses: store,
		projector: projector.New(cat, store, o.log.Named("projector")),
		log:       o.log,
	}, nil
}

// Close detaches the backend. Further calls fail with types.ErrClosed.
func (e *Engine) Close() error {
	return e.backend.Detach()
}

// Config returns the configuration the engine was opened with.
func (e *Engine) Config() types.Config {
	return e.backend.Config()
}

// update runs fn in a write transaction, running it again when the commit
// loses a uniqueness race. fn must be safe to repeat.
func (e *Engine) update(ctx context.Context, op string, fn func(tx *sqlite.Tx) error) error {
	for attempt := 1; ; attempt++ {
		err := e.backend.Update(ctx, fn)
		if err == nil || !errors.Is(err, types.ErrIntegrity) || attempt == maxAttempts || ctx.Err() != nil {
			return err
		}
		metrics.IntegrityRetries.WithLabelValues(op).Inc()
		e.log.Warnw("retrying after integrity violation", "op", op, "attempt", attempt, "error", err)
	}
}

func (e *Engine) view(ctx context.Context, fn func(tx *sqlite.Tx) error) error {
	return e.backend.View(ctx, fn)
}

// rejected counts validation failures of op and returns err unchanged.
func (e *Engine) rejected(op string, err error) error {
	if errors.Is(err, types.ErrValidation) {
		metrics.ValidationFailures.WithLabelValues(op).Inc()
		e.log.Debugw("rejected", "op", op, "error", err)
	}
	return err
}
