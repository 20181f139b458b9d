// Package types provides shared type definitions for the repocache MCP server.
//
// This package defines the domain types that cross component boundaries:
// repository and user metadata returned by the remote data source, and the
// code file records persisted by the content indexer.
//
// # Remote Metadata
//
// Repo and User mirror the JSON documents served by the repository-hosting
// API. They are also the values written to the read-through cache, so their
// JSON tags are part of the on-disk format:
//
//	repo := types.Repo{
//	    Owner:           "acme",
//	    Name:            "widgets",
//	    StargazersCount: 12,
//	    Topics:          []string{"mcp"},
//	}
//
// # Indexed Code
//
// CodeFileRecord describes one indexed file. The file body itself is stored
// separately and is not part of the record:
//
//	rec := &types.CodeFileRecord{
//	    RepoFullName:  "acme/widgets",
//	    FilePath:      "src/lib.rs",
//	    FilePathHash:  hash,
//	    KeywordsFound: []string{"mcp"},
//	}
//
// # Errors
//
// Sentinel errors classify failures across packages. Wrap them with %w and
// test with errors.Is:
//
//	if errors.Is(err, types.ErrUpstream) {
//	    // the remote source failed, nothing was cached
//	}
//
// A missing entry is never an error; lookups report it with a found flag.
package types
