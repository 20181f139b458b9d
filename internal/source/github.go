package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dshills/repocache-mcp/pkg/types"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint
	DefaultBaseURL = "https://api.github.com"
	// DefaultTimeout bounds a single HTTP request
	DefaultTimeout = 30 * time.Second

	userAgent     = "repocache-github-client"
	acceptJSON    = "application/vnd.github.v3+json"
	acceptRaw     = "application/vnd.github.raw"
	maxErrorBytes = 4096
)

// GitHubConfig configures the live client
type GitHubConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Retry   *RetryConfig // nil uses DefaultRetryConfig
}

// GitHub is the live, network-backed Source
type GitHub struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      RetryConfig
}

var _ Source = (*GitHub)(nil)

// NewGitHub creates a live client
func NewGitHub(cfg GitHubConfig) *GitHub {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retry := DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}

	return &GitHub{
		baseURL: baseURL,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retry: retry,
	}
}

// Close releases idle connections
func (g *GitHub) Close() error {
	g.httpClient.CloseIdleConnections()
	return nil
}

func (g *GitHub) ListOrgRepos(ctx context.Context, org string) ([]types.Repo, error) {
	var wire []wireRepo
	if err := g.getJSON(ctx, "/orgs/"+url.PathEscape(org)+"/repos", nil, &wire); err != nil {
		return nil, err
	}
	return toRepos(wire), nil
}

func (g *GitHub) GetUserInfo(ctx context.Context, user string) (*types.User, error) {
	var u types.User
	if err := g.getJSON(ctx, "/users/"+url.PathEscape(user), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (g *GitHub) GetRepoInfo(ctx context.Context, owner, repo string) (*types.Repo, error) {
	var wire wireRepo
	if err := g.getJSON(ctx, "/repos/"+url.PathEscape(owner)+"/"+url.PathEscape(repo), nil, &wire); err != nil {
		return nil, err
	}
	r := wire.toRepo()
	return &r, nil
}

func (g *GitHub) SearchRepositories(ctx context.Context, query string) (*types.SearchResults, error) {
	var wire struct {
		TotalCount        int        `json:"total_count"`
		IncompleteResults bool       `json:"incomplete_results"`
		Items             []wireRepo `json:"items"`
	}
	if err := g.getJSON(ctx, "/search/repositories", url.Values{"q": {query}}, &wire); err != nil {
		return nil, err
	}
	return &types.SearchResults{
		TotalCount:        wire.TotalCount,
		IncompleteResults: wire.IncompleteResults,
		Items:             toRepos(wire.Items),
	}, nil
}

func (g *GitHub) ListStarredRepos(ctx context.Context, user string) ([]types.Repo, error) {
	var wire []wireRepo
	if err := g.getJSON(ctx, "/users/"+url.PathEscape(user)+"/starred", nil, &wire); err != nil {
		return nil, err
	}
	return toRepos(wire), nil
}

// ListUserForkedRepos uses repository search because the API has no
// endpoint listing the forks owned by an account.
func (g *GitHub) ListUserForkedRepos(ctx context.Context, user string) ([]types.Repo, error) {
	results, err := g.SearchRepositories(ctx, fmt.Sprintf("user:%s fork:true", user))
	if err != nil {
		return nil, err
	}
	return results.Items, nil
}

func (g *GitHub) GetRepoContent(ctx context.Context, owner, repo, path string) (string, error) {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	endpoint := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/contents/" + strings.Join(segments, "/")

	body, err := g.get(ctx, endpoint, nil, acceptRaw)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(body) {
		return "", fmt.Errorf("%w: %s: content is not valid UTF-8", types.ErrUpstream, endpoint)
	}
	return string(body), nil
}

func (g *GitHub) getJSON(ctx context.Context, endpoint string, query url.Values, dst any) error {
	body, err := g.get(ctx, endpoint, query, acceptJSON)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", types.ErrUpstream, endpoint, err)
	}
	return nil
}

// get performs a GET with retries on transient failures
func (g *GitHub) get(ctx context.Context, endpoint string, query url.Values, accept string) ([]byte, error) {
	target := g.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	return retryWithBackoff(ctx, g.retry, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: create request: %v", types.ErrUpstream, err)
		}
		req.Header.Set("Accept", accept)
		req.Header.Set("User-Agent", userAgent)
		if g.token != "" {
			req.Header.Set("Authorization", "Bearer "+g.token)
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return nil, transient(fmt.Errorf("%w: GET %s: %v", types.ErrUpstream, endpoint, err))
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
			err := fmt.Errorf("%w: GET %s: status %d: %s", types.ErrUpstream, endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return nil, transient(err)
			}
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, transient(fmt.Errorf("%w: read %s: %v", types.ErrUpstream, endpoint, err))
		}
		return body, nil
	})
}

// wireRepo is the repository document as served by the API
type wireRepo struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	HTMLURL     string  `json:"html_url"`
	Description *string `json:"description"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
	StargazersCount int     `json:"stargazers_count"`
	ForksCount      int     `json:"forks_count"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
	PushedAt        string  `json:"pushed_at"`
	Language        *string `json:"language"`
	License         *struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
	Topics []string `json:"topics"`
}

func (w wireRepo) toRepo() types.Repo {
	r := types.Repo{
		ID:              w.ID,
		Owner:           w.Owner.Login,
		Name:            w.Name,
		HTMLURL:         w.HTMLURL,
		Description:     w.Description,
		StargazersCount: w.StargazersCount,
		ForksCount:      w.ForksCount,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
		PushedAt:        w.PushedAt,
		Language:        w.Language,
		Topics:          w.Topics,
	}
	if w.License != nil && w.License.SPDXID != "" {
		spdx := w.License.SPDXID
		r.License = &spdx
	}
	if r.Topics == nil {
		r.Topics = []string{}
	}
	return r
}

func toRepos(wire []wireRepo) []types.Repo {
	repos := make([]types.Repo, len(wire))
	for i, w := range wire {
		repos[i] = w.toRepo()
	}
	return repos
}
