package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/repocache-mcp/internal/cache"
	"github.com/dshills/repocache-mcp/internal/indexer"
	"github.com/dshills/repocache-mcp/internal/kvstore"
	"github.com/dshills/repocache-mcp/internal/source/sourcetest"
	"github.com/dshills/repocache-mcp/internal/syscalls"
	"github.com/dshills/repocache-mcp/pkg/types"
)

type fixture struct {
	svc     *Service
	fake    *sourcetest.Fake
	idx     *indexer.Indexer
	store   *kvstore.Store
	mu      sync.Mutex
	records []syscalls.Record
}

func (f *fixture) recorded() []syscalls.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]syscalls.Record(nil), f.records...)
}

func setupService(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := kvstore.Open(ctx, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	idx, err := indexer.Open(ctx, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	f := &fixture{fake: sourcetest.New(), idx: idx, store: store}
	ex := syscalls.NewExecutor(syscalls.WithRecorder(func(_ context.Context, rec syscalls.Record) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.records = append(f.records, rec)
	}))

	all := append([]Option{
		WithExecutor(ex),
		WithCacheStore(store),
		WithKeywords([]string{"tokio::main", "warp", "Router"}),
	}, opts...)
	f.svc = New(cache.New(f.fake, store), idx, all...)
	return f
}

func strPtr(s string) *string { return &s }

func TestIndexRemoteFile(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	f.fake.AddContent("octo", "hello", "src/main.rs", "use warp::Filter;\n#[tokio::main]\nasync fn main() {}")

	rec, err := f.svc.IndexRemoteFile(ctx, "octo", "hello", "src/main.rs")
	require.NoError(t, err)
	assert.Equal(t, "octo/hello", rec.RepoFullName)
	assert.Equal(t, "src/main.rs", rec.FilePath)
	assert.Equal(t, indexer.FilePathHash("src/main.rs"), rec.FilePathHash)
	assert.Equal(t, []string{"tokio::main", "warp"}, rec.KeywordsFound)

	_, content, found, err := f.svc.GetIndexedCode(ctx, "octo", "hello", "src/main.rs")
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, content, "#[tokio::main]")

	// Re-indexing reads the body from the response cache.
	_, err = f.svc.IndexRemoteFile(ctx, "octo", "hello", "src/main.rs")
	require.NoError(t, err)
	assert.Equal(t, 1, f.fake.Calls(sourcetest.OpGetRepoContent))

	records := f.recorded()
	require.Len(t, records, 4)
	assert.Equal(t, "get_repo_content", records[0].Name)
	assert.Equal(t, syscalls.CategoryGitHubAPI, records[0].Category)
	assert.Equal(t, "index_code_file", records[1].Name)
	assert.Equal(t, syscalls.CategoryStorage, records[1].Category)
	for _, r := range records {
		assert.True(t, r.Successful)
	}
}

func TestIndexRemoteFile_UpstreamFailure(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	_, err := f.svc.IndexRemoteFile(ctx, "octo", "hello", "missing.rs")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUpstream)
	assert.ErrorIs(t, err, syscalls.ErrFailed)

	_, _, found, err := f.svc.GetIndexedCode(ctx, "octo", "hello", "missing.rs")
	require.NoError(t, err)
	assert.False(t, found)

	records := f.recorded()
	require.Len(t, records, 1)
	assert.False(t, records[0].Successful)
	require.NotNil(t, records[0].ErrorMessage)
}

func TestIndexRemoteFile_EmptyPath(t *testing.T) {
	f := setupService(t)
	_, err := f.svc.IndexRemoteFile(context.Background(), "octo", "hello", "")
	assert.ErrorIs(t, err, types.ErrEmptyFilePath)
	assert.Zero(t, f.fake.TotalCalls())
}

func TestIndexRemoteFiles(t *testing.T) {
	ctx := context.Background()
	f := setupService(t, WithWorkers(2))
	f.fake.AddContent("octo", "hello", "a.rs", "Router::new()")
	f.fake.AddContent("octo", "hello", "b.rs", "fn b() {}")
	f.fake.AddContent("octo", "hello", "c.rs", "warp::serve")

	stats, err := f.svc.IndexRemoteFiles(ctx, "octo", "hello", []string{"a.rs", "gone.rs", "b.rs", "c.rs"})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Indexed)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], "gone.rs")

	require.Len(t, stats.Records, 3)
	assert.Equal(t, "a.rs", stats.Records[0].FilePath)
	assert.Equal(t, []string{"Router"}, stats.Records[0].KeywordsFound)
	assert.Equal(t, "b.rs", stats.Records[1].FilePath)
	assert.Empty(t, stats.Records[1].KeywordsFound)
	assert.Equal(t, "c.rs", stats.Records[2].FilePath)

	listed, err := f.svc.ListIndexed(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestIndexRemoteFiles_Cancelled(t *testing.T) {
	f := setupService(t)
	f.fake.AddContent("octo", "hello", "a.rs", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.IndexRemoteFiles(ctx, "octo", "hello", []string{"a.rs"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrgRepos_Filter(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	f.fake.AddOrgRepos("acme", []types.Repo{
		{Owner: "acme", Name: "mcp-server"},
		{Owner: "acme", Name: "website", Description: strPtr("marketing site")},
		{Owner: "acme", Name: "toolkit", Language: strPtr("Rust")},
	})

	all, err := f.svc.OrgRepos(ctx, "acme", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filtered, err := f.svc.OrgRepos(ctx, "acme", "mcp  rust")
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, "mcp-server", filtered[0].Name)
	assert.Equal(t, "toolkit", filtered[1].Name)

	assert.Equal(t, 1, f.fake.Calls(sourcetest.OpListOrgRepos))
}

func TestSearchRepositories_ItemsOnly(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	f.fake.AddSearch("topic:mcp", types.SearchResults{
		TotalCount: 2,
		Items:      []types.Repo{{Owner: "a", Name: "one"}, {Owner: "b", Name: "two"}},
	})

	items, err := f.svc.SearchRepositories(ctx, "topic:mcp")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "two", items[1].Name)
}

func TestPassThroughOperations(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	repo := types.Repo{ID: 3, Owner: "octo", Name: "hello", Topics: []string{}}
	f.fake.AddUser(types.User{Login: "octo", ID: 1})
	f.fake.AddRepo(repo)
	f.fake.AddStarred("octo", []types.Repo{repo})
	f.fake.AddForks("octo", []types.Repo{repo})

	user, err := f.svc.GetUser(ctx, "octo")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)

	got, err := f.svc.GetRepo(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, repo, *got)

	starred, err := f.svc.StarredRepos(ctx, "octo")
	require.NoError(t, err)
	assert.Len(t, starred, 1)

	forks, err := f.svc.ForkedRepos(ctx, "octo")
	require.NoError(t, err)
	assert.Len(t, forks, 1)

	_, err = f.svc.GetUser(ctx, "ghost")
	assert.ErrorIs(t, err, types.ErrUpstream)
}

func TestListIndexed_AllRepos(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	_, err := f.svc.IndexContent(ctx, "octo", "one", "a.go", "package a")
	require.NoError(t, err)
	_, err = f.svc.IndexContent(ctx, "octo", "two", "b.go", "package b")
	require.NoError(t, err)

	all, err := f.svc.ListIndexed(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := f.svc.ListIndexed(ctx, "octo", "one")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "octo/one", one[0].RepoFullName)
}

func TestHealth(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	f.fake.AddUser(types.User{Login: "octo"})

	_, err := f.svc.GetUser(ctx, "octo")
	require.NoError(t, err)
	_, err = f.svc.IndexContent(ctx, "octo", "hello", "main.go", "package main")
	require.NoError(t, err)

	h, err := f.svc.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 1, h.CachedEntries)
	assert.Equal(t, 1, h.IndexedFiles)
	assert.Equal(t, 1, h.IndexedBodies)
	assert.NotEmpty(t, h.SchemaVersion)
	assert.NotEmpty(t, h.Driver)
}

func TestKeywordsDefaultEmpty(t *testing.T) {
	ctx := context.Background()
	store, err := kvstore.Open(ctx, t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	idx, err := indexer.Open(ctx, t.TempDir())
	require.NoError(t, err)
	defer idx.Close()

	svc := New(sourcetest.New(), idx)
	assert.Empty(t, svc.Keywords())

	rec, err := svc.IndexContent(ctx, "octo", "hello", "x.rs", "warp")
	require.NoError(t, err)
	assert.Empty(t, rec.KeywordsFound)
}
