package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dshills/repocache-mcp/internal/storage"
	"github.com/dshills/repocache-mcp/pkg/types"
)

// Namespace names used by the indexer store
const (
	MetadataNamespace = "code_metadata"
	ContentNamespace  = "code_content"
)

// Indexer stores file metadata and file bodies under a content-addressed key
type Indexer struct {
	engine *storage.Engine
	owned  bool
	now    func() time.Time
}

// Open opens or creates the index store in dir
func Open(ctx context.Context, dir string) (*Indexer, error) {
	eng, err := storage.Open(ctx, dir, MetadataNamespace, ContentNamespace)
	if err != nil {
		return nil, err
	}
	idx := New(eng)
	idx.owned = true
	return idx, nil
}

// New creates an Indexer on an engine opened elsewhere. The engine must
// declare MetadataNamespace and ContentNamespace; otherwise every operation
// fails with types.ErrStorageUnavailable.
func New(eng *storage.Engine) *Indexer {
	return &Indexer{
		engine: eng,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Close releases the engine when the Indexer owns it
func (idx *Indexer) Close() error {
	if idx.owned {
		return idx.engine.Close()
	}
	return nil
}

// FilePathHash returns the lowercase hex SHA-256 digest of path
func FilePathHash(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

// RecordKey returns the key shared by both namespaces: "<owner>/<repo>:<hash>"
func RecordKey(owner, repo, path string) string {
	return fmt.Sprintf("%s/%s:%s", owner, repo, FilePathHash(path))
}

// MatchKeywords returns the keywords that occur in content, in input order.
// A keyword listed twice is reported twice.
func MatchKeywords(content string, keywords []string) []string {
	found := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if strings.Contains(content, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// IndexCodeFile records content and its metadata for (owner, repo, path).
// KeywordsFound is the subset of keywords present in content. An existing
// entry is replaced wholesale. Metadata and content are committed in one
// transaction.
func (idx *Indexer) IndexCodeFile(ctx context.Context, owner, repo, path, content string, keywords []string) (*types.CodeFileRecord, error) {
	meta, body, err := idx.namespaces()
	if err != nil {
		return nil, err
	}

	record := &types.CodeFileRecord{
		RepoFullName:  owner + "/" + repo,
		FilePath:      path,
		FilePathHash:  FilePathHash(path),
		LastIndexedAt: idx.now(),
		KeywordsFound: MatchKeywords(content, keywords),
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("%w: code file metadata: %v", types.ErrEncoding, err)
	}

	key := RecordKey(owner, repo, path)
	err = idx.engine.Update(ctx, func(tx *storage.Txn) error {
		if err := tx.Put(ctx, meta, key, data); err != nil {
			return fmt.Errorf("put code file metadata: %w", err)
		}
		if err := tx.Put(ctx, body, key, []byte(content)); err != nil {
			return fmt.Errorf("put code file content: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetCodeFileMetadata returns the stored record, or found=false
func (idx *Indexer) GetCodeFileMetadata(ctx context.Context, owner, repo, path string) (*types.CodeFileRecord, bool, error) {
	meta, err := idx.engine.Namespace(MetadataNamespace)
	if err != nil {
		return nil, false, err
	}

	data, found, err := meta.Get(ctx, RecordKey(owner, repo, path))
	if err != nil || !found {
		return nil, false, err
	}

	record, err := decodeRecord(data)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// GetCodeFileContent returns the stored file body, or found=false
func (idx *Indexer) GetCodeFileContent(ctx context.Context, owner, repo, path string) (string, bool, error) {
	body, err := idx.engine.Namespace(ContentNamespace)
	if err != nil {
		return "", false, err
	}

	data, found, err := body.Get(ctx, RecordKey(owner, repo, path))
	if err != nil || !found {
		return "", false, err
	}

	if !utf8.Valid(data) {
		return "", false, fmt.Errorf("%w: code file content for %s/%s/%s is not valid UTF-8", types.ErrDecoding, owner, repo, path)
	}
	return string(data), true, nil
}

// ListIndexedCodeMetadata returns every stored record. Order follows the
// storage engine and must not be relied upon.
func (idx *Indexer) ListIndexedCodeMetadata(ctx context.Context) ([]*types.CodeFileRecord, error) {
	return idx.scan(ctx, "")
}

// ListRepoCodeMetadata returns the records indexed for one repository
func (idx *Indexer) ListRepoCodeMetadata(ctx context.Context, owner, repo string) ([]*types.CodeFileRecord, error) {
	return idx.scan(ctx, owner+"/"+repo+":")
}

// Stats reports how many entries each namespace holds
func (idx *Indexer) Stats(ctx context.Context) (metadata, content int, err error) {
	meta, body, err := idx.namespaces()
	if err != nil {
		return 0, 0, err
	}
	if metadata, err = meta.Len(ctx); err != nil {
		return 0, 0, err
	}
	if content, err = body.Len(ctx); err != nil {
		return 0, 0, err
	}
	return metadata, content, nil
}

// SchemaVersion reports the schema version of the underlying store
func (idx *Indexer) SchemaVersion(ctx context.Context) (string, error) {
	return idx.engine.SchemaVersion(ctx)
}

func (idx *Indexer) scan(ctx context.Context, prefix string) ([]*types.CodeFileRecord, error) {
	meta, err := idx.engine.Namespace(MetadataNamespace)
	if err != nil {
		return nil, err
	}

	entries, err := meta.Scan(ctx, prefix)
	if err != nil {
		return nil, err
	}

	records := make([]*types.CodeFileRecord, 0, len(entries))
	for _, e := range entries {
		record, err := decodeRecord(e.Value)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (idx *Indexer) namespaces() (meta, body *storage.Namespace, err error) {
	if meta, err = idx.engine.Namespace(MetadataNamespace); err != nil {
		return nil, nil, err
	}
	if body, err = idx.engine.Namespace(ContentNamespace); err != nil {
		return nil, nil, err
	}
	return meta, body, nil
}

func decodeRecord(data []byte) (*types.CodeFileRecord, error) {
	var record types.CodeFileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: code file metadata: %v", types.ErrDecoding, err)
	}
	return &record, nil
}
