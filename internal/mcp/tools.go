package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/repocache-mcp/internal/syscalls"
	"github.com/dshills/repocache-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeUpstream           = -32010 // Repository API request failed
	ErrorCodeStorageUnavailable = -32011 // Cache or index store cannot be used
)

// handleGetUser handles the get_user tool invocation
func (s *Server) handleGetUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	user, err := requireString(args, "user")
	if err != nil {
		return nil, err
	}

	u, err := s.svc.GetUser(ctx, user)
	if err != nil {
		return nil, s.toolError("get user failed", err)
	}
	return jsonResult(u), nil
}

// handleGetRepo handles the get_repo tool invocation
func (s *Server) handleGetRepo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	owner, repo, err := requireRepo(args)
	if err != nil {
		return nil, err
	}

	r, err := s.svc.GetRepo(ctx, owner, repo)
	if err != nil {
		return nil, s.toolError("get repository failed", err)
	}
	return jsonResult(r), nil
}

// handleListOrgRepos handles the list_org_repos tool invocation
func (s *Server) handleListOrgRepos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	org, err := requireString(args, "org")
	if err != nil {
		return nil, err
	}
	query := getStringDefault(args, "query", "")

	repos, err := s.svc.OrgRepos(ctx, org, query)
	if err != nil {
		return nil, s.toolError("list organization repositories failed", err)
	}
	return jsonResult(repos), nil
}

// handleSearchRepositories handles the search_repositories tool invocation
func (s *Server) handleSearchRepositories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	query, err := requireString(args, "query")
	if err != nil {
		return nil, err
	}

	items, err := s.svc.SearchRepositories(ctx, query)
	if err != nil {
		return nil, s.toolError("search failed", err)
	}
	return jsonResult(items), nil
}

// handleListStarredRepos handles the list_starred_repos tool invocation
func (s *Server) handleListStarredRepos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	user, err := requireString(args, "user")
	if err != nil {
		return nil, err
	}

	repos, err := s.svc.StarredRepos(ctx, user)
	if err != nil {
		return nil, s.toolError("list starred repositories failed", err)
	}
	return jsonResult(repos), nil
}

// handleListForkedRepos handles the list_forked_repos tool invocation
func (s *Server) handleListForkedRepos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	user, err := requireString(args, "user")
	if err != nil {
		return nil, err
	}

	repos, err := s.svc.ForkedRepos(ctx, user)
	if err != nil {
		return nil, s.toolError("list forked repositories failed", err)
	}
	return jsonResult(repos), nil
}

// handleIndexCode handles the index_code tool invocation. A single path
// returns the stored record; several paths return batch statistics.
func (s *Server) handleIndexCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	owner, repo, err := requireRepo(args)
	if err != nil {
		return nil, err
	}

	var paths []string
	if p := getStringDefault(args, "path", ""); p != "" {
		paths = append(paths, p)
	}
	extra, err := getStringSlice(args, "paths")
	if err != nil {
		return nil, err
	}
	paths = append(paths, extra...)
	if len(paths) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "path or paths parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if len(paths) == 1 {
		rec, err := s.svc.IndexRemoteFile(ctx, owner, repo, paths[0])
		if err != nil {
			return nil, s.toolError("indexing failed", err)
		}
		return jsonResult(rec), nil
	}

	stats, err := s.svc.IndexRemoteFiles(ctx, owner, repo, paths)
	if err != nil {
		return nil, s.toolError("indexing failed", err)
	}

	response := map[string]interface{}{
		"indexed": stats.Indexed,
		"failed":  stats.Failed,
		"records": stats.Records,
	}
	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetIndexedCode handles the get_indexed_code tool invocation
func (s *Server) handleGetIndexedCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	owner, repo, err := requireRepo(args)
	if err != nil {
		return nil, err
	}
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}

	rec, content, found, err := s.svc.GetIndexedCode(ctx, owner, repo, path)
	if err != nil {
		return nil, s.toolError("read index failed", err)
	}
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("%s/%s:%s is not indexed. Use index_code to index it.", owner, repo, path)), nil
	}

	response := map[string]interface{}{
		"metadata": rec,
		"content":  content,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListIndexedCode handles the list_indexed_code tool invocation
func (s *Server) handleListIndexedCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	owner := getStringDefault(args, "owner", "")
	repo := getStringDefault(args, "repo", "")
	if (owner == "") != (repo == "") {
		return nil, newMCPError(ErrorCodeInvalidParams, "owner and repo must be given together", map[string]interface{}{
			"owner": owner,
			"repo":  repo,
		})
	}

	records, err := s.svc.ListIndexed(ctx, owner, repo)
	if err != nil {
		return nil, s.toolError("list index failed", err)
	}
	return jsonResult(records), nil
}

// handleHealthCheck handles the health_check tool invocation
func (s *Server) handleHealthCheck(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, err := s.svc.Health(ctx)
	if err != nil {
		return nil, s.toolError("health check failed", err)
	}
	return jsonResult(h), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// toolError maps a service error onto an MCP error code and logs it
func (s *Server) toolError(message string, err error) error {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, types.ErrUpstream):
		code = ErrorCodeUpstream
	case errors.Is(err, types.ErrStorageUnavailable):
		code = ErrorCodeStorageUnavailable
	case errors.Is(err, types.ErrEmptyFilePath), errors.Is(err, types.ErrInvalidRepoName):
		code = ErrorCodeInvalidParams
	}
	s.obs.Log().Warn().Int("code", code).Err(err).Msg(message)
	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

func requireString(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return v, nil
}

func requireRepo(args map[string]interface{}) (owner, repo string, err error) {
	if owner, err = requireString(args, "owner"); err != nil {
		return "", "", err
	}
	if repo, err = requireString(args, "repo"); err != nil {
		return "", "", err
	}
	return owner, repo, nil
}

// getStringSlice extracts an optional array of strings
func getStringSlice(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok || str == "" {
				return nil, newMCPError(ErrorCodeInvalidParams, key+" must contain non-empty strings", map[string]interface{}{
					"param": key,
					"value": item,
				})
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, key+" must be an array of strings", map[string]interface{}{
			"param": key,
		})
	}
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// jsonResult wraps any value as an indented JSON text result
func jsonResult(v interface{}) *mcp.CallToolResult {
	return mcp.NewToolResultText(formatJSON(v))
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// withCaller tags syscalls issued by a handler with the tool name
func withCaller(tool string, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handler(syscalls.WithCaller(ctx, "mcp:"+tool), request)
	}
}
