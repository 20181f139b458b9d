package syscalls

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dshills/repocache-mcp/internal/indexer"
)

// IndexWrite stores one file body and its metadata in the content index
type IndexWrite struct {
	Indexer  *indexer.Indexer
	Owner    string
	Repo     string
	Path     string
	Content  string
	Keywords []string
}

func (w *IndexWrite) Name() string { return "index_code_file" }

func (w *IndexWrite) Category() Category { return CategoryStorage }

func (w *IndexWrite) Execute(ctx context.Context) (Result, error) {
	rec, err := w.Indexer.IndexCodeFile(ctx, w.Owner, w.Repo, w.Path, w.Content, w.Keywords)
	if err != nil {
		return Result{}, err
	}
	return SuccessOf(rec)
}

// Inputs carries a digest of the content rather than the content itself
func (w *IndexWrite) Inputs() (any, error) {
	sum := sha256.Sum256([]byte(w.Content))
	keywords := w.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return map[string]any{
		"owner":          w.Owner,
		"repo":           w.Repo,
		"path":           w.Path,
		"content_sha256": hex.EncodeToString(sum[:]),
		"keywords":       keywords,
	}, nil
}

func (w *IndexWrite) Outputs(result Result) (any, error) {
	return result, nil
}

func (w *IndexWrite) Metadata(result Result, duration time.Duration) Record {
	return NewRecord(w.Name(), w.Category(), result, duration)
}
