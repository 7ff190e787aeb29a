// Package sqlite implements the SQLite storage backend for fieldbase.
//
// Every read and write runs inside a transaction obtained from
// Backend.Update or Backend.View. The row-level stores (tables, fields,
// configs, views, pages, responses, attachments) are methods on *Tx so that
// an orchestrating caller can compose them into one atomic operation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// DBFileName is the database file created inside Config.DataDir.
const DBFileName = "fieldbase.db"

// Backend owns the database handle. The handle is limited to a single
// connection, which makes SQLite's own locking the writer serialization
// point.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	now      func() time.Time
}

// NewBackend creates a detached backend. Call Attach to open the database.
func NewBackend() *Backend {
	return &Backend{now: utcNow}
}

func utcNow() time.Time { return time.Now().UTC() }

// newBackendFromDB wraps an open handle without applying the schema.
func newBackendFromDB(db *sql.DB) *Backend {
	return &Backend{attached: true, db: db, now: utcNow}
}

// Attach opens (creating if needed) the database in config.DataDir and
// applies the schema. Returns types.ErrAlreadyOpen if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyOpen
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dsn := "file:" + filepath.Join(dataDir, DBFileName) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the database. It is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
		b.db = nil
	}
	return nil
}

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// Update runs fn in a read-write transaction. The transaction commits when
// fn returns nil and rolls back otherwise.
func (b *Backend) Update(ctx context.Context, fn func(*Tx) error) error {
	return b.run(ctx, true, fn)
}

// View runs fn in a transaction that is always rolled back.
func (b *Backend) View(ctx context.Context, fn func(*Tx) error) error {
	return b.run(ctx, false, fn)
}

func (b *Backend) run(ctx context.Context, commit bool, fn func(*Tx) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrClosed
	}

	sqlTx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer sqlTx.Rollback()

	tx := &Tx{
		ctx:   ctx,
		tx:    sqlTx,
		now:   b.now(),
		actor: types.ActorFrom(ctx),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if !commit {
		return nil
	}
	if err := sqlTx.Commit(); err != nil {
		return mapErr("committing transaction", err)
	}
	return nil
}

// Tx is one open transaction. Its methods are the row-level stores.
type Tx struct {
	ctx   context.Context
	tx    *sql.Tx
	now   time.Time
	actor string
}

// Context returns the context the transaction was started with.
func (t *Tx) Context() context.Context { return t.ctx }

// Now is the timestamp stamped on every row written by this transaction.
func (t *Tx) Now() time.Time { return t.now }

func (t *Tx) exec(op, query string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return res, nil
}

// execOne is exec for statements that must touch exactly one row.
func (t *Tx) execOne(op, entity, id, query string, args ...any) error {
	res, err := t.exec(op, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return types.NotFound(entity, id)
	}
	return nil
}

func (t *Tx) queryRow(query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(t.ctx, query, args...)
}

func (t *Tx) query(query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(t.ctx, query, args...)
}

// stamp fills the audit columns for a write.
func (t *Tx) stamp(a *types.Audit, create bool) {
	if create {
		a.CreatedAt = t.now
		a.CreatedBy = t.actor
	}
	a.UpdatedAt = t.now
	a.UpdatedBy = t.actor
}

// mapErr converts unique and primary key violations into
// *types.IntegrityError and wraps everything else with op.
func mapErr(op string, err error) error {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT:
			return &types.IntegrityError{Constraint: op, Err: err}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// newID generates a UUID v7 entity id.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const auditCols = "created_at, updated_at, created_by, updated_by"

// auditScan collects the audit columns of a row.
type auditScan struct {
	created, updated string
	a                *types.Audit
}

func scanAuditInto(a *types.Audit) *auditScan { return &auditScan{a: a} }

func (s *auditScan) dest() []any {
	return []any{&s.created, &s.updated, &s.a.CreatedBy, &s.a.UpdatedBy}
}

func (s *auditScan) finish() error {
	var err error
	if s.a.CreatedAt, err = parseTime(s.created); err != nil {
		return err
	}
	if s.a.UpdatedAt, err = parseTime(s.updated); err != nil {
		return err
	}
	return nil
}

func auditArgs(a types.Audit) []any {
	return []any{formatTime(a.CreatedAt), formatTime(a.UpdatedAt), a.CreatedBy, a.UpdatedBy}
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
