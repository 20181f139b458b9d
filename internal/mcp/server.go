package mcp

import (
	"context"
	"io"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/repocache-mcp/internal/observe"
	"github.com/dshills/repocache-mcp/internal/service"
)

const (
	// ServerName is the MCP server name
	ServerName = "repocache-mcp"
	// ServerVersion is the current server version
	ServerVersion = "0.3.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp *server.MCPServer
	svc *service.Service
	obs *observe.Observer
}

// NewServer creates a new MCP server instance over svc
func NewServer(svc *service.Service, obs *observe.Observer) *Server {
	if obs == nil {
		obs = observe.Nop()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp: mcpServer,
		svc: svc,
		obs: obs,
	}
	s.registerTools()
	return s
}

// Serve speaks MCP on in/out until ctx is cancelled or in is closed.
// Protocol errors are logged to errLog's writer.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer, errLog io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(errLog, "mcp: ", log.LstdFlags))

	s.obs.Log().Info().Str("name", ServerName).Str("version", ServerVersion).Msg("serving MCP on stdio")
	return stdio.Listen(ctx, in, out)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	// Repository API, served through the response cache
	s.mcp.AddTool(getUserTool(), withCaller("get_user", s.handleGetUser))
	s.mcp.AddTool(getRepoTool(), withCaller("get_repo", s.handleGetRepo))
	s.mcp.AddTool(listOrgReposTool(), withCaller("list_org_repos", s.handleListOrgRepos))
	s.mcp.AddTool(searchRepositoriesTool(), withCaller("search_repositories", s.handleSearchRepositories))
	s.mcp.AddTool(listStarredReposTool(), withCaller("list_starred_repos", s.handleListStarredRepos))
	s.mcp.AddTool(listForkedReposTool(), withCaller("list_forked_repos", s.handleListForkedRepos))

	// Content index
	s.mcp.AddTool(indexCodeTool(), withCaller("index_code", s.handleIndexCode))
	s.mcp.AddTool(getIndexedCodeTool(), withCaller("get_indexed_code", s.handleGetIndexedCode))
	s.mcp.AddTool(listIndexedCodeTool(), withCaller("list_indexed_code", s.handleListIndexedCode))

	s.mcp.AddTool(healthCheckTool(), s.handleHealthCheck)
}
