package types

import (
	"encoding/hex"
	"strings"
	"time"
)

// CodeFileRecord is the metadata stored for one indexed file.
// Re-indexing the same (repo, path) replaces the record wholesale.
type CodeFileRecord struct {
	RepoFullName  string    `json:"repo_full_name"` // "<owner>/<repo>"
	FilePath      string    `json:"file_path"`
	FilePathHash  string    `json:"file_path_hash"`
	LastIndexedAt time.Time `json:"last_indexed_at"`
	KeywordsFound []string  `json:"keywords_found"`
}

// Validate checks the record is well formed
func (r *CodeFileRecord) Validate() error {
	owner, repo, ok := strings.Cut(r.RepoFullName, "/")
	if !ok || owner == "" || repo == "" {
		return ErrInvalidRepoName
	}

	if r.FilePath == "" {
		return ErrEmptyFilePath
	}

	if len(r.FilePathHash) != 64 {
		return ErrInvalidPathHash
	}
	if _, err := hex.DecodeString(r.FilePathHash); err != nil {
		return ErrInvalidPathHash
	}

	return nil
}
