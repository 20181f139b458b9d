// Package kvstore provides a generic persistent key/value store with JSON values.
//
// Values of any JSON-serializable type are written with Put and decoded back
// into a caller-supplied value with Get. A key that was never written is not
// an error: Get reports it with found=false.
//
// A Store is meant to be opened once and shared by pointer across goroutines.
// Concurrency control is delegated to the storage engine.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/repocache-mcp/internal/storage"
	"github.com/dshills/repocache-mcp/pkg/types"
)

// Store is a persistent mapping from string keys to JSON-encoded values
type Store struct {
	engine *storage.Engine
	ns     *storage.Namespace
	owned  bool

	// mu keeps the memory layer and the engine in step; unused without it
	mu  sync.Mutex
	hot *lru.Cache[string, []byte]
}

// Option configures a Store
type Option func(*options)

type options struct {
	namespace     string
	memoryEntries int
}

// WithNamespace selects the engine namespace backing the store
func WithNamespace(name string) Option {
	return func(o *options) {
		o.namespace = name
	}
}

// WithMemoryEntries keeps up to n encoded values in memory in front of the
// engine. Writes update the memory layer, so it never serves an older value
// than the engine holds.
func WithMemoryEntries(n int) Option {
	return func(o *options) {
		o.memoryEntries = n
	}
}

func buildOptions(opts []Option) options {
	o := options{namespace: storage.DefaultNamespace}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open opens or creates a store in dir. The returned Store owns its engine
// and closes it on Close.
func Open(ctx context.Context, dir string, opts ...Option) (*Store, error) {
	o := buildOptions(opts)

	eng, err := storage.Open(ctx, dir, o.namespace)
	if err != nil {
		return nil, err
	}

	s, err := newStore(eng, o)
	if err != nil {
		_ = eng.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New builds a Store on an engine opened elsewhere. Closing the Store does
// not close the engine.
func New(eng *storage.Engine, opts ...Option) (*Store, error) {
	return newStore(eng, buildOptions(opts))
}

func newStore(eng *storage.Engine, o options) (*Store, error) {
	ns, err := eng.Namespace(o.namespace)
	if err != nil {
		return nil, err
	}

	s := &Store{engine: eng, ns: ns}
	if o.memoryEntries > 0 {
		hot, err := lru.New[string, []byte](o.memoryEntries)
		if err != nil {
			return nil, fmt.Errorf("create memory layer: %w", err)
		}
		s.hot = hot
	}
	return s, nil
}

// Close releases the engine when the Store owns it
func (s *Store) Close() error {
	if s.owned {
		return s.engine.Close()
	}
	return nil
}

// Put serializes value and writes it under key, replacing any prior value
func (s *Store) Put(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: key %s: %v", types.ErrEncoding, key, err)
	}

	if s.hot == nil {
		return s.ns.Put(ctx, key, data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ns.Put(ctx, key, data); err != nil {
		// The engine may or may not hold the new value
		s.hot.Remove(key)
		return err
	}
	s.hot.Add(key, data)
	return nil
}

// Get decodes the value stored under key into dst, which must be a pointer.
// It returns found=false with a nil error when the key was never written.
func (s *Store) Get(ctx context.Context, key string, dst any) (found bool, err error) {
	data, found, err := s.raw(ctx, key)
	if err != nil || !found {
		return false, err
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("%w: key %s: %v", types.ErrDecoding, key, err)
	}
	return true, nil
}

// Has reports whether key has a stored value
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, found, err := s.raw(ctx, key)
	return found, err
}

// Len returns the number of stored keys
func (s *Store) Len(ctx context.Context) (int, error) {
	return s.ns.Len(ctx)
}

func (s *Store) raw(ctx context.Context, key string) ([]byte, bool, error) {
	if s.hot == nil {
		return s.ns.Get(ctx, key)
	}

	if data, ok := s.hot.Get(key); ok {
		return data, true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	data, found, err := s.ns.Get(ctx, key)
	if err != nil || !found {
		return nil, found, err
	}
	s.hot.Add(key, data)
	return data, true, nil
}

// Lookup is the generic form of Get
func Lookup[T any](ctx context.Context, s *Store, key string) (T, bool, error) {
	var value T
	found, err := s.Get(ctx, key, &value)
	if err != nil || !found {
		var zero T
		return zero, found, err
	}
	return value, true, nil
}
