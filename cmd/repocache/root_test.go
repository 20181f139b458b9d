package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/repocache-mcp/internal/config"
	"github.com/dshills/repocache-mcp/pkg/types"
)

func setupCLI(t *testing.T) (*atomic.Int32, string) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/repos/octo/hello/contents/src/main.rs":
			_, _ = w.Write([]byte("#[tokio::main]\nasync fn main() {}"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	t.Setenv(config.EnvAPIURL, server.URL)
	t.Setenv(config.EnvCacheDir, filepath.Join(dir, "cache"))
	t.Setenv(config.EnvIndexDir, filepath.Join(dir, "index"))
	t.Setenv(config.EnvToken, "")
	t.Setenv(config.EnvSingleFlight, "")
	return &calls, filepath.Join(dir, "config.yaml")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: dev")
	assert.Contains(t, out, "SQLite Driver:")
}

func TestIndexGetAndList(t *testing.T) {
	calls, cfgPath := setupCLI(t)

	out, err := run(t, "--config", cfgPath, "index", "octo", "hello", "src/main.rs")
	require.NoError(t, err)

	var stats struct {
		Indexed int                     `json:"indexed"`
		Records []*types.CodeFileRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.Indexed)
	require.Len(t, stats.Records, 1)
	assert.Contains(t, stats.Records[0].KeywordsFound, "tokio::main")

	out, err = run(t, "--config", cfgPath, "get-code", "octo", "hello", "src/main.rs")
	require.NoError(t, err)
	assert.Equal(t, "#[tokio::main]\nasync fn main() {}", out)

	out, err = run(t, "--config", cfgPath, "list-indexed")
	require.NoError(t, err)
	var records []types.CodeFileRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "octo/hello", records[0].RepoFullName)

	// The body now comes from the response cache.
	_, err = run(t, "--config", cfgPath, "index", "octo", "hello", "src/main.rs")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestIndexCmd_ReportsFailures(t *testing.T) {
	_, cfgPath := setupCLI(t)

	_, err := run(t, "--config", cfgPath, "index", "octo", "hello", "missing.rs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 files failed")
}

func TestGetCodeCmd_NotIndexed(t *testing.T) {
	_, cfgPath := setupCLI(t)

	_, err := run(t, "--config", cfgPath, "get-code", "octo", "hello", "nope.rs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not indexed")
}

func TestListIndexedCmd_Args(t *testing.T) {
	_, cfgPath := setupCLI(t)

	_, err := run(t, "--config", cfgPath, "list-indexed", "octo")
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	_, cfgPath := setupCLI(t)

	out, err := run(t, "--config", cfgPath, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, cfgPath)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultKeywords, cfg.Keywords)

	_, err = run(t, "--config", cfgPath, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run(t, "--config", cfgPath, "config", "init", "--force")
	require.NoError(t, err)
}

func TestDBRollback(t *testing.T) {
	_, cfgPath := setupCLI(t)

	_, err := run(t, "--config", cfgPath, "index", "octo", "hello", "src/main.rs")
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "db", "rollback", "index")
	require.NoError(t, err)
	assert.Contains(t, out, "index store to schema 1.0.0")

	// The next open migrates forward and keeps the indexed data.
	out, err = run(t, "--config", cfgPath, "get-code", "octo", "hello", "src/main.rs")
	require.NoError(t, err)
	assert.Equal(t, "#[tokio::main]\nasync fn main() {}", out)

	_, err = run(t, "--config", cfgPath, "db", "rollback", "bogus")
	assert.Error(t, err)
}
