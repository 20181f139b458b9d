// Package storage provides SQLite-based persistence with independent namespaces.
//
// A store lives in a directory and owns a single database file. Inside it,
// namespaces play the role of column families: logically separate keyspaces
// that share one engine without key collisions.
//
// # Database Schema
//
// Tables:
//   - schema_version: applied migrations
//   - namespaces: declared keyspaces
//   - entries: (namespace, key) -> value rows
//
// # Basic Usage
//
//	eng, err := storage.Open(ctx, "~/.repocache/index", "code_metadata", "code_content")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	meta, err := eng.Namespace("code_metadata")
//	if err != nil {
//	    return err // namespace was not declared at Open
//	}
//
//	err = meta.Put(ctx, "acme/widgets:9f86d0...", payload)
//	value, found, err := meta.Get(ctx, "acme/widgets:9f86d0...")
//
// # Transactions
//
// Writes that must land together go through Update:
//
//	err := eng.Update(ctx, func(tx *storage.Txn) error {
//	    if err := tx.Put(ctx, meta, key, metaJSON); err != nil {
//	        return err
//	    }
//	    return tx.Put(ctx, content, key, body)
//	})
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// Pure Go Build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build ./...
//
// CGO Build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...
//
// # Errors
//
// Every engine failure is wrapped with types.ErrStorageUnavailable. A missing
// key is not an error: Get reports it with found=false.
package storage
