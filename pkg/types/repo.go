package types

// Repo is the metadata of a single hosted repository
type Repo struct {
	ID              int64    `json:"id"`
	Owner           string   `json:"owner"`
	Name            string   `json:"name"`
	HTMLURL         string   `json:"html_url"`
	Description     *string  `json:"description"`
	StargazersCount int      `json:"stargazers_count"`
	ForksCount      int      `json:"forks_count"`
	CreatedAt       string   `json:"created_at"` // ISO 8601
	UpdatedAt       string   `json:"updated_at"`
	PushedAt        string   `json:"pushed_at"`
	Language        *string  `json:"language"`
	License         *string  `json:"license"` // SPDX ID
	Topics          []string `json:"topics"`
	TrustScore      float64  `json:"trust_score"` // not provided by the API
}

// FullName returns "<owner>/<name>"
func (r *Repo) FullName() string {
	return r.Owner + "/" + r.Name
}

// User is the public profile of an account
type User struct {
	Login           string  `json:"login"`
	ID              int64   `json:"id"`
	HTMLURL         string  `json:"html_url"`
	Type            string  `json:"type"`
	SiteAdmin       bool    `json:"site_admin"`
	Name            *string `json:"name"`
	Company         *string `json:"company"`
	Blog            *string `json:"blog"`
	Location        *string `json:"location"`
	Email           *string `json:"email"`
	Hireable        *bool   `json:"hireable"`
	Bio             *string `json:"bio"`
	TwitterUsername *string `json:"twitter_username"`
	PublicRepos     int     `json:"public_repos"`
	Followers       int     `json:"followers"`
	Following       int     `json:"following"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// SearchResults is the envelope returned by repository search
type SearchResults struct {
	TotalCount        int    `json:"total_count"`
	IncompleteResults bool   `json:"incomplete_results"`
	Items             []Repo `json:"items"`
}
