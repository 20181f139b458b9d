package types

import "errors"

// Error taxonomy shared by storage, cache, indexer and source packages
var (
	// ErrStorageUnavailable is returned when a store cannot be opened or a
	// namespace handle cannot be obtained.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrEncoding is returned when a value cannot be serialized.
	ErrEncoding = errors.New("encoding failed")
	// ErrDecoding is returned when stored bytes do not match the requested shape.
	ErrDecoding = errors.New("decoding failed")
	// ErrUpstream is returned by data sources when the remote API call fails.
	ErrUpstream = errors.New("upstream request failed")
	// ErrNotFound is used by outer layers (MCP, CLI) to report a missing entry.
	ErrNotFound = errors.New("not found")

	// Record validation errors
	ErrInvalidRepoName = errors.New("repo full name must be <owner>/<repo>")
	ErrEmptyFilePath   = errors.New("file path cannot be empty")
	ErrInvalidPathHash = errors.New("file path hash must be 64 hex characters")
)
