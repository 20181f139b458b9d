// Package mcp implements the Model Context Protocol (MCP) server for repocache.
//
// The server exposes ten tools to AI coding assistants:
//   - get_user, get_repo: profile and repository metadata
//   - list_org_repos: an organization's repositories, with an optional filter
//   - search_repositories: repository search, returning the matching items
//   - list_starred_repos, list_forked_repos: per-user repository lists
//   - index_code: fetch files and store them in the content index
//   - get_indexed_code: metadata and body of an indexed file
//   - list_indexed_code: metadata of indexed files
//   - health_check: store availability and entry counts
//
// Every repository API answer is served through the persistent response
// cache: the first call for a given argument set reaches GitHub, every later
// one is answered locally. Failed calls are never cached.
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries protocol messages only. Logs go to stderr.
//
// # Basic Usage
//
//	repocache serve
//
// # Tool: index_code
//
//	Request:
//	{
//	  "name": "index_code",
//	  "arguments": {
//	    "owner": "tokio-rs",
//	    "repo": "axum",
//	    "path": "examples/hello-world/src/main.rs"
//	  }
//	}
//
//	Response:
//	{
//	  "repo_full_name": "tokio-rs/axum",
//	  "file_path": "examples/hello-world/src/main.rs",
//	  "file_path_hash": "4f1c…",
//	  "last_indexed_at": "2026-10-16T09:12:44Z",
//	  "keywords_found": ["tokio::main", "Router"]
//	}
//
// Passing "paths" instead indexes several files concurrently and returns
// counts, the stored records and the first few per-file errors.
//
// # Tool: get_indexed_code
//
// Returns {"metadata": {...}, "content": "..."}. A file that was never
// indexed yields a tool result flagged as an error rather than a protocol
// error, so the assistant can react by calling index_code.
//
// # Error Handling
//
// Protocol errors carry one of these codes:
//
//	-32602  Invalid params: missing or malformed arguments
//	-32603  Internal error
//	-32010  Upstream: the repository API request failed
//	-32011  Storage unavailable: a store could not be opened or read
package mcp
