// Package sourcetest provides an in-memory source.Source for tests.
package sourcetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/repocache-mcp/internal/source"
	"github.com/dshills/repocache-mcp/pkg/types"
)

// Operation names used as call-counter keys
const (
	OpListOrgRepos        = "ListOrgRepos"
	OpGetUserInfo         = "GetUserInfo"
	OpGetRepoInfo         = "GetRepoInfo"
	OpSearchRepositories  = "SearchRepositories"
	OpListStarredRepos    = "ListStarredRepos"
	OpListUserForkedRepos = "ListUserForkedRepos"
	OpGetRepoContent      = "GetRepoContent"
)

// Fake serves canned fixtures and counts calls per operation.
// Unknown inputs fail with types.ErrUpstream.
type Fake struct {
	mu       sync.Mutex
	calls    map[string]int
	users    map[string]types.User
	repos    map[string]types.Repo
	orgs     map[string][]types.Repo
	starred  map[string][]types.Repo
	forks    map[string][]types.Repo
	searches map[string]types.SearchResults
	contents map[string]string
	failures map[string]error
}

var _ source.Source = (*Fake)(nil)

// New creates an empty fake
func New() *Fake {
	return &Fake{
		calls:    make(map[string]int),
		users:    make(map[string]types.User),
		repos:    make(map[string]types.Repo),
		orgs:     make(map[string][]types.Repo),
		starred:  make(map[string][]types.Repo),
		forks:    make(map[string][]types.Repo),
		searches: make(map[string]types.SearchResults),
		contents: make(map[string]string),
		failures: make(map[string]error),
	}
}

func (f *Fake) AddUser(u types.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.Login] = u
}

func (f *Fake) AddRepo(r types.Repo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repos[r.FullName()] = r
}

func (f *Fake) AddOrgRepos(org string, repos []types.Repo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orgs[org] = repos
}

func (f *Fake) AddStarred(user string, repos []types.Repo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starred[user] = repos
}

func (f *Fake) AddForks(user string, repos []types.Repo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forks[user] = repos
}

func (f *Fake) AddSearch(query string, results types.SearchResults) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches[query] = results
}

func (f *Fake) AddContent(owner, repo, path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents[contentKey(owner, repo, path)] = content
}

// FailNext makes every call of op return err until cleared with a nil err
func (f *Fake) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// Calls returns how many times op was invoked
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of invocations across all operations
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *Fake) enter(op string) error {
	f.calls[op]++
	return f.failures[op]
}

func (f *Fake) ListOrgRepos(_ context.Context, org string) ([]types.Repo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpListOrgRepos); err != nil {
		return nil, err
	}
	repos, ok := f.orgs[org]
	if !ok {
		return nil, missing("org", org)
	}
	return cloneRepos(repos), nil
}

func (f *Fake) GetUserInfo(_ context.Context, user string) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpGetUserInfo); err != nil {
		return nil, err
	}
	u, ok := f.users[user]
	if !ok {
		return nil, missing("user", user)
	}
	return &u, nil
}

func (f *Fake) GetRepoInfo(_ context.Context, owner, repo string) (*types.Repo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpGetRepoInfo); err != nil {
		return nil, err
	}
	r, ok := f.repos[owner+"/"+repo]
	if !ok {
		return nil, missing("repo", owner+"/"+repo)
	}
	return &r, nil
}

func (f *Fake) SearchRepositories(_ context.Context, query string) (*types.SearchResults, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpSearchRepositories); err != nil {
		return nil, err
	}
	res, ok := f.searches[query]
	if !ok {
		return nil, missing("search", query)
	}
	res.Items = cloneRepos(res.Items)
	return &res, nil
}

func (f *Fake) ListStarredRepos(_ context.Context, user string) ([]types.Repo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpListStarredRepos); err != nil {
		return nil, err
	}
	repos, ok := f.starred[user]
	if !ok {
		return nil, missing("starred", user)
	}
	return cloneRepos(repos), nil
}

func (f *Fake) ListUserForkedRepos(_ context.Context, user string) ([]types.Repo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpListUserForkedRepos); err != nil {
		return nil, err
	}
	repos, ok := f.forks[user]
	if !ok {
		return nil, missing("forks", user)
	}
	return cloneRepos(repos), nil
}

func (f *Fake) GetRepoContent(_ context.Context, owner, repo, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpGetRepoContent); err != nil {
		return "", err
	}
	content, ok := f.contents[contentKey(owner, repo, path)]
	if !ok {
		return "", missing("content", contentKey(owner, repo, path))
	}
	return content, nil
}

func contentKey(owner, repo, path string) string {
	return owner + "/" + repo + "/" + path
}

func missing(kind, name string) error {
	return fmt.Errorf("%w: no %s fixture for %q", types.ErrUpstream, kind, name)
}

func cloneRepos(repos []types.Repo) []types.Repo {
	out := make([]types.Repo, len(repos))
	copy(out, repos)
	return out
}
