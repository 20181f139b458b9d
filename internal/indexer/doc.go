// Package indexer provides durable, content-addressed storage of indexed code files.
//
// Each file is identified by (owner, repo, path). The path is hashed with
// SHA-256 and combined with the repository name into a composite key that is
// used in two namespaces of one storage engine:
//
//   - code_metadata: JSON-encoded types.CodeFileRecord
//   - code_content: raw UTF-8 file body
//
// Keeping bodies out of the metadata namespace means a metadata listing never
// reads file contents.
//
// # Basic Usage
//
//	idx, err := indexer.Open(ctx, "~/.repocache/index")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer idx.Close()
//
//	rec, err := idx.IndexCodeFile(ctx, "acme", "widgets", "src/lib.rs", body,
//	    []string{"mcp", "Router"})
//
//	content, found, err := idx.GetCodeFileContent(ctx, "acme", "widgets", "src/lib.rs")
//
// # Keys
//
// The composite key format is fixed and shared with existing stores:
//
//	<owner>/<repo>:<sha256-hex(path)>
//
// # Re-indexing
//
// Indexing the same (owner, repo, path) again replaces the metadata and the
// content in a single transaction and refreshes LastIndexedAt. No history is
// kept.
package indexer
