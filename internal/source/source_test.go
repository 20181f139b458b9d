package source

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/repocache-mcp/pkg/types"
)

func strPtr(s string) *string { return &s }

func TestFilterRepos(t *testing.T) {
	repos := []types.Repo{
		{Name: "web-server", Topics: []string{}},
		{Name: "alpha", Description: strPtr("an mcp bridge")},
		{Name: "beta", Topics: []string{"tokio"}},
		{Name: "gamma", Language: strPtr("Rust")},
		{Name: "delta"},
	}

	tests := []struct {
		name    string
		filters []string
		want    []string
	}{
		{"no filters keeps all", nil, []string{"web-server", "alpha", "beta", "gamma", "delta"}},
		{"name match", []string{"server"}, []string{"web-server"}},
		{"description match", []string{"mcp"}, []string{"alpha"}},
		{"topic match", []string{"tok"}, []string{"beta"}},
		{"language is lowercased", []string{"rust"}, []string{"gamma"}},
		{"language case sensitive filter", []string{"Rust"}, []string{}},
		{"any filter matches", []string{"server", "tokio"}, []string{"web-server", "beta"}},
		{"no match", []string{"zzz"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterRepos(repos, tt.filters)
			names := make([]string, 0, len(got))
			for _, r := range got {
				names = append(names, r.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}
