package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dshills/repocache-mcp/pkg/types"
)

// Namespace is an independent keyspace inside an Engine
type Namespace struct {
	engine *Engine
	name   string
}

// Entry is a raw key/value pair read from a namespace
type Entry struct {
	Key   string
	Value []byte
}

// Name returns the namespace name
func (n *Namespace) Name() string {
	return n.name
}

// Put writes value under key, replacing any previous value
func (n *Namespace) Put(ctx context.Context, key string, value []byte) error {
	return putWithQuerier(ctx, n.engine.db, n.name, key, value)
}

// Get reads the value stored under key. A missing key is reported with
// found=false and a nil error.
func (n *Namespace) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	query := `SELECT value FROM entries WHERE namespace = ? AND key = ?`
	err = n.engine.db.QueryRowContext(ctx, query, n.name, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s/%s: %v", types.ErrStorageUnavailable, n.name, key, err)
	}
	return value, true, nil
}

// Scan returns every entry whose key starts with prefix, in key order.
// An empty prefix scans the whole namespace.
func (n *Namespace) Scan(ctx context.Context, prefix string) ([]Entry, error) {
	query := `
		SELECT key, value FROM entries
		WHERE namespace = ?1 AND substr(key, 1, length(?2)) = ?2
		ORDER BY key
	`
	rows, err := n.engine.db.QueryContext(ctx, query, n.name, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s: %v", types.ErrStorageUnavailable, n.name, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", types.ErrStorageUnavailable, n.name, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan %s: %v", types.ErrStorageUnavailable, n.name, err)
	}
	return entries, nil
}

// Len returns the number of entries in the namespace
func (n *Namespace) Len(ctx context.Context) (int, error) {
	var count int
	err := n.engine.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE namespace = ?`, n.name).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count %s: %v", types.ErrStorageUnavailable, n.name, err)
	}
	return count, nil
}
