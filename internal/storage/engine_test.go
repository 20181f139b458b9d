package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/repocache-mcp/pkg/types"
)

func setupTestEngine(t *testing.T, names ...string) *Engine {
	t.Helper()
	eng, err := Open(context.Background(), t.TempDir(), names...)
	require.NoError(t, err)
	require.NotNil(t, eng)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestOpen(t *testing.T) {
	t.Run("creates database file", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "store")
		eng, err := Open(context.Background(), dir)
		require.NoError(t, err)
		defer eng.Close()

		_, err = os.Stat(filepath.Join(dir, DBFileName))
		assert.NoError(t, err)
		assert.Equal(t, dir, eng.Dir())
	})

	t.Run("default namespace when none named", func(t *testing.T) {
		eng := setupTestEngine(t)
		assert.Equal(t, []string{DefaultNamespace}, eng.Namespaces())
	})

	t.Run("empty location fails", func(t *testing.T) {
		_, err := Open(context.Background(), "")
		assert.ErrorIs(t, err, types.ErrStorageUnavailable)
	})

	t.Run("location is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not-a-dir")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		_, err := Open(context.Background(), file)
		assert.ErrorIs(t, err, types.ErrStorageUnavailable)
	})

	t.Run("empty namespace name fails", func(t *testing.T) {
		_, err := Open(context.Background(), t.TempDir(), "ok", "")
		assert.ErrorIs(t, err, types.ErrStorageUnavailable)
	})

	t.Run("schema is current", func(t *testing.T) {
		eng := setupTestEngine(t)
		version, err := eng.SchemaVersion(context.Background())
		require.NoError(t, err)
		assert.Equal(t, CurrentSchemaVersion, version)
	})
}

func TestReopenPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	eng, err := Open(ctx, dir, "a")
	require.NoError(t, err)
	ns, err := eng.Namespace("a")
	require.NoError(t, err)
	require.NoError(t, ns.Put(ctx, "k", []byte("v")))
	require.NoError(t, eng.Close())

	eng, err = Open(ctx, dir, "a")
	require.NoError(t, err)
	defer eng.Close()

	ns, err = eng.Namespace("a")
	require.NoError(t, err)
	value, found, err := ns.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), value)
}

func TestNamespace_Unknown(t *testing.T) {
	eng := setupTestEngine(t, "known")

	_, err := eng.Namespace("unknown")
	assert.ErrorIs(t, err, types.ErrStorageUnavailable)
}

func TestNamespace_PutGet(t *testing.T) {
	ctx := context.Background()
	eng := setupTestEngine(t, "ns")
	ns, err := eng.Namespace("ns")
	require.NoError(t, err)

	_, found, err := ns.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, ns.Put(ctx, "key", []byte("first")))
	require.NoError(t, ns.Put(ctx, "key", []byte("second")))

	value, found, err := ns.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("second"), value)

	n, err := ns.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNamespace_Isolation(t *testing.T) {
	ctx := context.Background()
	eng := setupTestEngine(t, "left", "right")
	left, err := eng.Namespace("left")
	require.NoError(t, err)
	right, err := eng.Namespace("right")
	require.NoError(t, err)

	require.NoError(t, left.Put(ctx, "shared", []byte("L")))
	require.NoError(t, right.Put(ctx, "shared", []byte("R")))

	value, _, err := left.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, []byte("L"), value)

	value, _, err = right.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, []byte("R"), value)
}

func TestNamespace_Scan(t *testing.T) {
	ctx := context.Background()
	eng := setupTestEngine(t, "ns", "other")
	ns, err := eng.Namespace("ns")
	require.NoError(t, err)
	other, err := eng.Namespace("other")
	require.NoError(t, err)

	require.NoError(t, ns.Put(ctx, "acme/widgets:b", []byte("2")))
	require.NoError(t, ns.Put(ctx, "acme/widgets:a", []byte("1")))
	require.NoError(t, ns.Put(ctx, "acme/gadgets:c", []byte("3")))
	require.NoError(t, other.Put(ctx, "acme/widgets:z", []byte("x")))

	all, err := ns.Scan(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	widgets, err := ns.Scan(ctx, "acme/widgets:")
	require.NoError(t, err)
	require.Len(t, widgets, 2)
	assert.Equal(t, "acme/widgets:a", widgets[0].Key)
	assert.Equal(t, "acme/widgets:b", widgets[1].Key)

	none, err := ns.Scan(ctx, "nobody/")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEngine_Update(t *testing.T) {
	ctx := context.Background()
	eng := setupTestEngine(t, "meta", "content")
	meta, err := eng.Namespace("meta")
	require.NoError(t, err)
	content, err := eng.Namespace("content")
	require.NoError(t, err)

	t.Run("commits all writes", func(t *testing.T) {
		err := eng.Update(ctx, func(tx *Txn) error {
			if err := tx.Put(ctx, meta, "k", []byte("m")); err != nil {
				return err
			}
			return tx.Put(ctx, content, "k", []byte("c"))
		})
		require.NoError(t, err)

		_, found, err := meta.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)
		_, found, err = content.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := assert.AnError
		err := eng.Update(ctx, func(tx *Txn) error {
			if err := tx.Put(ctx, meta, "rolled", []byte("m")); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, found, err := meta.Get(ctx, "rolled")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("rejects foreign namespace", func(t *testing.T) {
		other := setupTestEngine(t, "meta")
		foreign, err := other.Namespace("meta")
		require.NoError(t, err)

		err = eng.Update(ctx, func(tx *Txn) error {
			return tx.Put(ctx, foreign, "k", []byte("x"))
		})
		assert.ErrorIs(t, err, types.ErrStorageUnavailable)
	})
}

func TestNamespace_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	eng := setupTestEngine(t, "ns")
	ns, err := eng.Namespace("ns")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			assert.NoError(t, ns.Put(ctx, key, []byte(key)))
		}(i)
	}
	wg.Wait()

	n, err := ns.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestEngine_Rollback(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	eng, err := Open(ctx, dir)
	require.NoError(t, err)

	require.NoError(t, eng.Rollback(ctx))
	version, err := eng.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version)
	require.NoError(t, eng.Close())

	// Reopening migrates forward again and the store stays writable.
	eng, err = Open(ctx, dir)
	require.NoError(t, err)
	defer eng.Close()
	version, err = eng.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	ns, err := eng.Namespace(DefaultNamespace)
	require.NoError(t, err)
	require.NoError(t, ns.Put(ctx, "k", []byte("v")))
}

func TestClosedEngine(t *testing.T) {
	ctx := context.Background()
	eng, err := Open(ctx, t.TempDir())
	require.NoError(t, err)
	ns, err := eng.Namespace(DefaultNamespace)
	require.NoError(t, err)
	require.NoError(t, eng.Close())

	err = ns.Put(ctx, "k", []byte("v"))
	assert.ErrorIs(t, err, types.ErrStorageUnavailable)

	_, _, err = ns.Get(ctx, "k")
	assert.ErrorIs(t, err, types.ErrStorageUnavailable)
}
