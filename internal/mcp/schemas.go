package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// getUserTool returns the tool definition for get_user
func getUserTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_user",
		Description: "Get the public profile of a GitHub user or organization (cached)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user": stringProp("Account login"),
			},
			Required: []string{"user"},
		},
	}
}

// getRepoTool returns the tool definition for get_repo
func getRepoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_repo",
		Description: "Get metadata for a single repository (cached)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"owner": stringProp("Repository owner"),
				"repo":  stringProp("Repository name"),
			},
			Required: []string{"owner", "repo"},
		},
	}
}

// listOrgReposTool returns the tool definition for list_org_repos
func listOrgReposTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_org_repos",
		Description: "List an organization's repositories, optionally filtered by terms matched against name, description, topics and language",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"org":   stringProp("Organization login"),
				"query": stringProp("Whitespace-separated filter terms; a repository is kept when any term matches"),
			},
			Required: []string{"org"},
		},
	}
}

// searchRepositoriesTool returns the tool definition for search_repositories
func searchRepositoriesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_repositories",
		Description: "Search repositories with GitHub search syntax and return the matching items (cached per query)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": stringProp("Search query, e.g. 'topic:mcp language:rust'"),
			},
			Required: []string{"query"},
		},
	}
}

// listStarredReposTool returns the tool definition for list_starred_repos
func listStarredReposTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_starred_repos",
		Description: "List repositories starred by a user (cached)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user": stringProp("Account login"),
			},
			Required: []string{"user"},
		},
	}
}

// listForkedReposTool returns the tool definition for list_forked_repos
func listForkedReposTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_forked_repos",
		Description: "List forks owned by a user (cached)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user": stringProp("Account login"),
			},
			Required: []string{"user"},
		},
	}
}

// indexCodeTool returns the tool definition for index_code
func indexCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_code",
		Description: "Fetch one or more files from a repository and store them in the content index with the keywords they contain",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"owner": stringProp("Repository owner"),
				"repo":  stringProp("Repository name"),
				"path":  stringProp("File path inside the repository"),
				"paths": map[string]interface{}{
					"type":        "array",
					"description": "Additional file paths to index in the same call",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"owner", "repo"},
		},
	}
}

// getIndexedCodeTool returns the tool definition for get_indexed_code
func getIndexedCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_indexed_code",
		Description: "Return the stored metadata and body of an indexed file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"owner": stringProp("Repository owner"),
				"repo":  stringProp("Repository name"),
				"path":  stringProp("File path inside the repository"),
			},
			Required: []string{"owner", "repo", "path"},
		},
	}
}

// listIndexedCodeTool returns the tool definition for list_indexed_code
func listIndexedCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_indexed_code",
		Description: "List metadata of every indexed file, or of one repository when owner and repo are given",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"owner": stringProp("Restrict to this repository owner (requires repo)"),
				"repo":  stringProp("Restrict to this repository (requires owner)"),
			},
		},
	}
}

// healthCheckTool returns the tool definition for health_check
func healthCheckTool() mcp.Tool {
	return mcp.Tool{
		Name:        "health_check",
		Description: "Report store availability and entry counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
