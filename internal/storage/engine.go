package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dshills/repocache-mcp/pkg/types"
)

const (
	// DBFileName is the database file created inside a store directory
	DBFileName = "store.db"
	// DefaultNamespace is used when a store is opened without naming any namespace
	DefaultNamespace = "default"
)

// Engine is a persistent key/value engine with independent namespaces,
// backed by a single SQLite database file. It is safe for concurrent use;
// writes are serialized by the single-connection pool.
type Engine struct {
	db         *sql.DB
	dir        string
	namespaces map[string]*Namespace
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Open opens or creates the store located in dir and makes sure every
// named namespace exists. With no names, only DefaultNamespace is created.
func Open(ctx context.Context, dir string, names ...string) (*Engine, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty store location", types.ErrStorageUnavailable)
	}
	if len(names) == 0 {
		names = []string{DefaultNamespace}
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: create directory %s: %v", types.ErrStorageUnavailable, dir, err)
	}

	db, err := openDatabase(filepath.Join(dir, DBFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", types.ErrStorageUnavailable, err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply migrations: %v", types.ErrStorageUnavailable, err)
	}

	e := &Engine{
		db:         db,
		dir:        dir,
		namespaces: make(map[string]*Namespace, len(names)),
	}

	for _, name := range names {
		if name == "" {
			_ = db.Close()
			return nil, fmt.Errorf("%w: empty namespace name", types.ErrStorageUnavailable)
		}
		if _, err := db.ExecContext(ctx, "INSERT OR IGNORE INTO namespaces (name) VALUES (?)", name); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: create namespace %s: %v", types.ErrStorageUnavailable, name, err)
		}
		e.namespaces[name] = &Namespace{engine: e, name: name}
	}

	return e, nil
}

// Dir returns the directory the engine was opened in
func (e *Engine) Dir() string {
	return e.dir
}

// Close closes the database connection
func (e *Engine) Close() error {
	return e.db.Close()
}

// Namespace returns the handle for a namespace declared at Open
func (e *Engine) Namespace(name string) (*Namespace, error) {
	ns, ok := e.namespaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: namespace %q not initialized", types.ErrStorageUnavailable, name)
	}
	return ns, nil
}

// Namespaces returns the declared namespace names in sorted order
func (e *Engine) Namespaces() []string {
	names := make([]string, 0, len(e.namespaces))
	for name := range e.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SchemaVersion reports the applied schema version
func (e *Engine) SchemaVersion(ctx context.Context) (string, error) {
	return SchemaVersion(ctx, e.db)
}

// Rollback undoes the most recently applied schema migration. The next Open
// applies it again, so this is only useful before running an older binary.
func (e *Engine) Rollback(ctx context.Context) error {
	return RollbackMigration(ctx, e.db)
}

// Update runs fn inside a single transaction. Either every write made
// through the Txn is committed or none is.
func (e *Engine) Update(ctx context.Context, fn func(tx *Txn) error) error {
	sqlTx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", types.ErrStorageUnavailable, err)
	}

	if err := fn(&Txn{tx: sqlTx, engine: e}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit transaction: %v", types.ErrStorageUnavailable, err)
	}
	return nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Txn groups writes across namespaces of the same engine
type Txn struct {
	tx     *sql.Tx
	engine *Engine
}

// Put writes key in ns as part of the transaction
func (t *Txn) Put(ctx context.Context, ns *Namespace, key string, value []byte) error {
	if ns.engine != t.engine {
		return fmt.Errorf("%w: namespace %q belongs to another store", types.ErrStorageUnavailable, ns.name)
	}
	return putWithQuerier(ctx, t.tx, ns.name, key, value)
}

// putWithQuerier upserts a single entry
func putWithQuerier(ctx context.Context, q querier, namespace, key string, value []byte) error {
	query := `
		INSERT INTO entries (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if value == nil {
		value = []byte{}
	}
	if _, err := q.ExecContext(ctx, query, namespace, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: put %s/%s: %v", types.ErrStorageUnavailable, namespace, key, err)
	}
	return nil
}
