// Package source defines the remote repository data source and its live
// GitHub implementation.
//
// Every component that reads repository metadata depends on the Source
// interface only, so the live client, the caching decorator and test doubles
// are interchangeable.
package source

import (
	"context"
	"strings"

	"github.com/dshills/repocache-mcp/pkg/types"
)

// Source is the set of read operations offered by a repository-hosting API.
// Implementations wrap remote failures with types.ErrUpstream.
type Source interface {
	ListOrgRepos(ctx context.Context, org string) ([]types.Repo, error)
	GetUserInfo(ctx context.Context, user string) (*types.User, error)
	GetRepoInfo(ctx context.Context, owner, repo string) (*types.Repo, error)
	SearchRepositories(ctx context.Context, query string) (*types.SearchResults, error)
	ListStarredRepos(ctx context.Context, user string) ([]types.Repo, error)
	ListUserForkedRepos(ctx context.Context, user string) ([]types.Repo, error)
	GetRepoContent(ctx context.Context, owner, repo, path string) (string, error)
}

// FilterRepos keeps the repos whose name, description, topics or lowercased
// language contain any of filters. An empty filter list keeps everything.
func FilterRepos(repos []types.Repo, filters []string) []types.Repo {
	if len(filters) == 0 {
		return repos
	}

	matches := func(s string) bool {
		for _, f := range filters {
			if strings.Contains(s, f) {
				return true
			}
		}
		return false
	}

	filtered := make([]types.Repo, 0, len(repos))
	for _, repo := range repos {
		keep := matches(repo.Name)
		if !keep && repo.Description != nil {
			keep = matches(*repo.Description)
		}
		for _, topic := range repo.Topics {
			if keep {
				break
			}
			keep = matches(topic)
		}
		if !keep && repo.Language != nil {
			keep = matches(strings.ToLower(*repo.Language))
		}
		if keep {
			filtered = append(filtered, repo)
		}
	}
	return filtered
}
