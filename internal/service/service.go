// Package service composes the cached data source, the content indexer and
// the syscall executor into the operations exposed by the MCP server and
// the CLI.
//
// Every call that reaches the data source or writes the index runs as a
// syscall, so each one produces a hashed, logged execution record.
package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/repocache-mcp/internal/indexer"
	"github.com/dshills/repocache-mcp/internal/kvstore"
	"github.com/dshills/repocache-mcp/internal/observe"
	"github.com/dshills/repocache-mcp/internal/source"
	"github.com/dshills/repocache-mcp/internal/storage"
	"github.com/dshills/repocache-mcp/internal/syscalls"
	"github.com/dshills/repocache-mcp/pkg/types"
)

// DefaultWorkers bounds concurrent fetches in IndexRemoteFiles
const DefaultWorkers = 4

// Service is safe for concurrent use
type Service struct {
	src      source.Source
	idx      *indexer.Indexer
	cache    *kvstore.Store
	exec     syscalls.Executor
	obs      *observe.Observer
	keywords []string
	workers  int
}

// Option configures a Service
type Option func(*Service)

// WithKeywords replaces the keyword list matched against indexed files
func WithKeywords(keywords []string) Option {
	return func(s *Service) {
		s.keywords = keywords
	}
}

// WithWorkers sets the batch indexing parallelism
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithExecutor replaces the default syscall executor
func WithExecutor(ex syscalls.Executor) Option {
	return func(s *Service) {
		if ex != nil {
			s.exec = ex
		}
	}
}

// WithObserver sets the logger
func WithObserver(obs *observe.Observer) Option {
	return func(s *Service) {
		if obs != nil {
			s.obs = obs
		}
	}
}

// WithCacheStore exposes the response cache to Health
func WithCacheStore(store *kvstore.Store) Option {
	return func(s *Service) {
		s.cache = store
	}
}

// New creates a Service. src is normally a cache.Source.
func New(src source.Source, idx *indexer.Indexer, opts ...Option) *Service {
	s := &Service{
		src:     src,
		idx:     idx,
		obs:     observe.Nop(),
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.exec == nil {
		s.exec = syscalls.NewExecutor(syscalls.WithObserver(s.obs))
	}
	return s
}

// Keywords returns the configured keyword list
func (s *Service) Keywords() []string {
	return s.keywords
}

func (s *Service) GetUser(ctx context.Context, user string) (*types.User, error) {
	return syscalls.Run(ctx, s.exec, "get_user_info", map[string]string{"user": user},
		func(ctx context.Context) (*types.User, error) {
			return s.src.GetUserInfo(ctx, user)
		})
}

func (s *Service) GetRepo(ctx context.Context, owner, repo string) (*types.Repo, error) {
	return syscalls.Run(ctx, s.exec, "get_repo_info", map[string]string{"owner": owner, "repo": repo},
		func(ctx context.Context) (*types.Repo, error) {
			return s.src.GetRepoInfo(ctx, owner, repo)
		})
}

// OrgRepos lists an organization's repositories, keeping those matching any
// whitespace-separated term of query. An empty query keeps all.
func (s *Service) OrgRepos(ctx context.Context, org, query string) ([]types.Repo, error) {
	repos, err := syscalls.Run(ctx, s.exec, "list_org_repos", map[string]string{"org": org},
		func(ctx context.Context) ([]types.Repo, error) {
			return s.src.ListOrgRepos(ctx, org)
		})
	if err != nil {
		return nil, err
	}
	return source.FilterRepos(repos, strings.Fields(query)), nil
}

// SearchRepositories returns the items of a repository search
func (s *Service) SearchRepositories(ctx context.Context, query string) ([]types.Repo, error) {
	results, err := syscalls.Run(ctx, s.exec, "search_repositories", map[string]string{"query": query},
		func(ctx context.Context) (*types.SearchResults, error) {
			return s.src.SearchRepositories(ctx, query)
		})
	if err != nil {
		return nil, err
	}
	return results.Items, nil
}

func (s *Service) StarredRepos(ctx context.Context, user string) ([]types.Repo, error) {
	return syscalls.Run(ctx, s.exec, "list_starred_repos", map[string]string{"user": user},
		func(ctx context.Context) ([]types.Repo, error) {
			return s.src.ListStarredRepos(ctx, user)
		})
}

func (s *Service) ForkedRepos(ctx context.Context, user string) ([]types.Repo, error) {
	return syscalls.Run(ctx, s.exec, "list_user_forked_repos", map[string]string{"user": user},
		func(ctx context.Context) ([]types.Repo, error) {
			return s.src.ListUserForkedRepos(ctx, user)
		})
}

// IndexRemoteFile fetches a file body, matches it against the keyword list
// and stores it in the content index.
func (s *Service) IndexRemoteFile(ctx context.Context, owner, repo, path string) (*types.CodeFileRecord, error) {
	if path == "" {
		return nil, types.ErrEmptyFilePath
	}

	content, err := syscalls.Run(ctx, s.exec, "get_repo_content",
		map[string]string{"owner": owner, "repo": repo, "path": path},
		func(ctx context.Context) (string, error) {
			return s.src.GetRepoContent(ctx, owner, repo, path)
		})
	if err != nil {
		return nil, err
	}

	return s.IndexContent(ctx, owner, repo, path, content)
}

// IndexContent stores content already in hand
func (s *Service) IndexContent(ctx context.Context, owner, repo, path, content string) (*types.CodeFileRecord, error) {
	result, err := s.exec.Execute(ctx, &syscalls.IndexWrite{
		Indexer:  s.idx,
		Owner:    owner,
		Repo:     repo,
		Path:     path,
		Content:  content,
		Keywords: s.keywords,
	})
	if err != nil {
		return nil, err
	}
	return syscalls.Decode[*types.CodeFileRecord](result)
}

// BatchStats summarizes IndexRemoteFiles
type BatchStats struct {
	Indexed       int                     `json:"indexed"`
	Failed        int                     `json:"failed"`
	Records       []*types.CodeFileRecord `json:"records"`
	ErrorMessages []string                `json:"errors,omitempty"`
}

// IndexRemoteFiles indexes paths concurrently. A failing file is counted and
// reported but does not stop the others; only cancellation aborts the batch.
func (s *Service) IndexRemoteFiles(ctx context.Context, owner, repo string, paths []string) (*BatchStats, error) {
	records := make([]*types.CodeFileRecord, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := s.IndexRemoteFile(gctx, owner, repo, path)
			if err != nil {
				errs[i] = err
				return nil
			}
			records[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &BatchStats{Records: make([]*types.CodeFileRecord, 0, len(paths))}
	for i, path := range paths {
		if errs[i] != nil {
			stats.Failed++
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", path, errs[i]))
			s.obs.Log().Warn().Str("path", path).Err(errs[i]).Msg("failed to index file")
			continue
		}
		stats.Indexed++
		stats.Records = append(stats.Records, records[i])
	}
	return stats, nil
}

// GetIndexedCode returns the stored metadata and body of a file.
// found is false when the file was never indexed.
func (s *Service) GetIndexedCode(ctx context.Context, owner, repo, path string) (*types.CodeFileRecord, string, bool, error) {
	rec, found, err := s.idx.GetCodeFileMetadata(ctx, owner, repo, path)
	if err != nil || !found {
		return nil, "", false, err
	}
	content, found, err := s.idx.GetCodeFileContent(ctx, owner, repo, path)
	if err != nil || !found {
		return nil, "", false, err
	}
	return rec, content, true, nil
}

// ListIndexed returns all records, or only those of owner/repo when both are set
func (s *Service) ListIndexed(ctx context.Context, owner, repo string) ([]*types.CodeFileRecord, error) {
	if owner != "" && repo != "" {
		return s.idx.ListRepoCodeMetadata(ctx, owner, repo)
	}
	return s.idx.ListIndexedCodeMetadata(ctx)
}

// Health reports store availability and sizes
type Health struct {
	Status        string `json:"status"`
	BuildMode     string `json:"build_mode"`
	Driver        string `json:"driver"`
	SchemaVersion string `json:"schema_version"`
	CachedEntries int    `json:"cached_entries"`
	IndexedFiles  int    `json:"indexed_files"`
	IndexedBodies int    `json:"indexed_bodies"`
}

// Health checks both stores
func (s *Service) Health(ctx context.Context) (*Health, error) {
	h := &Health{
		Status:    "ok",
		BuildMode: storage.BuildMode,
		Driver:    storage.DriverName,
	}

	meta, bodies, err := s.idx.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}
	h.IndexedFiles = meta
	h.IndexedBodies = bodies

	if version, err := s.idx.SchemaVersion(ctx); err == nil {
		h.SchemaVersion = version
	}

	if s.cache != nil {
		n, err := s.cache.Len(ctx)
		if err != nil {
			return nil, fmt.Errorf("cache stats: %w", err)
		}
		h.CachedEntries = n
	}

	if meta != bodies {
		h.Status = "degraded"
	}
	return h, nil
}
