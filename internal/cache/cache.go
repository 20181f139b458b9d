// Package cache provides a read-through caching decorator over any
// source.Source.
//
// Every successful upstream answer is stored in a kvstore.Store under a key
// derived from the operation and its arguments, and served from there
// forever after. Errors are never cached. There is no expiry, capacity bound
// or invalidation.
package cache

import (
	"context"
	"fmt"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/dshills/repocache-mcp/internal/kvstore"
	"github.com/dshills/repocache-mcp/internal/observe"
	"github.com/dshills/repocache-mcp/internal/source"
	"github.com/dshills/repocache-mcp/pkg/types"
)

// Key builders. The formats are persisted, so they must not change.

func UserKey(user string) string            { return "user:" + user }
func RepoKey(owner, repo string) string     { return fmt.Sprintf("repo:%s/%s", owner, repo) }
func OrgReposKey(org string) string         { return "org_repos:" + org }
func SearchReposKey(query string) string    { return "search_repos:" + query }
func StarredReposKey(user string) string    { return "starred_repos:" + user }
func UserForkedReposKey(user string) string { return "user_forked_repos:" + user }
func RepoContentKey(owner, repo, path string) string {
	return fmt.Sprintf("repo_content:%s/%s/%s", owner, repo, path)
}

// Source decorates an upstream source.Source with a persistent cache
type Source struct {
	upstream source.Source
	store    *kvstore.Store
	obs      *observe.Observer
	group    *singleflight.Group // nil unless WithSingleFlight
}

var _ source.Source = (*Source)(nil)

// Option configures a Source
type Option func(*Source)

// WithSingleFlight collapses concurrent misses on the same key into one
// upstream call. Without it two concurrent misses both reach upstream and
// the last write wins. The shared call is not cancelled when the caller that
// started it gives up, so other callers waiting on the key still get a result.
func WithSingleFlight() Option {
	return func(s *Source) {
		s.group = &singleflight.Group{}
	}
}

// WithObserver logs hits and misses at debug level
func WithObserver(obs *observe.Observer) Option {
	return func(s *Source) {
		if obs != nil {
			s.obs = obs
		}
	}
}

// New wraps upstream with store. The store is borrowed, not owned.
func New(upstream source.Source, store *kvstore.Store, opts ...Option) *Source {
	s := &Source{
		upstream: upstream,
		store:    store,
		obs:      observe.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) ListOrgRepos(ctx context.Context, org string) ([]types.Repo, error) {
	return readThrough(ctx, s, OrgReposKey(org), func(ctx context.Context) ([]types.Repo, error) {
		return s.upstream.ListOrgRepos(ctx, org)
	})
}

func (s *Source) GetUserInfo(ctx context.Context, user string) (*types.User, error) {
	return readThrough(ctx, s, UserKey(user), func(ctx context.Context) (*types.User, error) {
		return s.upstream.GetUserInfo(ctx, user)
	})
}

func (s *Source) GetRepoInfo(ctx context.Context, owner, repo string) (*types.Repo, error) {
	return readThrough(ctx, s, RepoKey(owner, repo), func(ctx context.Context) (*types.Repo, error) {
		return s.upstream.GetRepoInfo(ctx, owner, repo)
	})
}

func (s *Source) SearchRepositories(ctx context.Context, query string) (*types.SearchResults, error) {
	return readThrough(ctx, s, SearchReposKey(query), func(ctx context.Context) (*types.SearchResults, error) {
		return s.upstream.SearchRepositories(ctx, query)
	})
}

func (s *Source) ListStarredRepos(ctx context.Context, user string) ([]types.Repo, error) {
	return readThrough(ctx, s, StarredReposKey(user), func(ctx context.Context) ([]types.Repo, error) {
		return s.upstream.ListStarredRepos(ctx, user)
	})
}

func (s *Source) ListUserForkedRepos(ctx context.Context, user string) ([]types.Repo, error) {
	return readThrough(ctx, s, UserForkedReposKey(user), func(ctx context.Context) ([]types.Repo, error) {
		return s.upstream.ListUserForkedRepos(ctx, user)
	})
}

// GetRepoContent caches text bodies only. JSON cannot carry invalid UTF-8,
// so such a body is refused before it reaches the store.
func (s *Source) GetRepoContent(ctx context.Context, owner, repo, path string) (string, error) {
	return readThrough(ctx, s, RepoContentKey(owner, repo, path), func(ctx context.Context) (string, error) {
		content, err := s.upstream.GetRepoContent(ctx, owner, repo, path)
		if err != nil {
			return "", err
		}
		if !utf8.ValidString(content) {
			return "", fmt.Errorf("%w: %s/%s/%s is not valid UTF-8", types.ErrDecoding, owner, repo, path)
		}
		return content, nil
	})
}

// readThrough serves key from the store, or calls fetch and stores its result
func readThrough[T any](ctx context.Context, s *Source, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	cached, found, err := kvstore.Lookup[T](ctx, s.store, key)
	if err != nil {
		return zero, fmt.Errorf("cache read %q: %w", key, err)
	}
	if found {
		s.obs.Log().Debug().Str("key", key).Msg("cache hit")
		return cached, nil
	}
	s.obs.Log().Debug().Str("key", key).Msg("cache miss")

	miss := func(ctx context.Context) (T, error) {
		value, err := fetch(ctx)
		if err != nil {
			return zero, err
		}
		if err := s.store.Put(ctx, key, value); err != nil {
			return zero, fmt.Errorf("cache write %q: %w", key, err)
		}
		return value, nil
	}

	if s.group == nil {
		return miss(ctx)
	}

	// The shared fetch outlives any single caller. Each caller still stops
	// waiting when its own ctx is done.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		// A call that finished between our lookup and DoChan has already stored it.
		if cached, found, err := kvstore.Lookup[T](shared, s.store, key); err == nil && found {
			return cached, nil
		}
		return miss(shared)
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
