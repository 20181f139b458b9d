// Package config loads the repocache configuration file and applies
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values
const (
	EnvCacheDir     = "REPOCACHE_CACHE_DIR"
	EnvIndexDir     = "REPOCACHE_INDEX_DIR"
	EnvToken        = "GITHUB_TOKEN"
	EnvAPIURL       = "REPOCACHE_API_URL"
	EnvSingleFlight = "REPOCACHE_SINGLE_FLIGHT"
)

// DefaultKeywords are matched against fetched file bodies when indexing
var DefaultKeywords = []string{
	"server", "actix-web", "warp", "tokio::main", "mcp",
	"Router", "Handler", "Service", "App", "HttpServer",
}

// Config is the on-disk configuration
type Config struct {
	CacheDir      string        `yaml:"cache_dir"`
	IndexDir      string        `yaml:"index_dir"`
	GitHubToken   string        `yaml:"github_token,omitempty"`
	APIBaseURL    string        `yaml:"api_base_url"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	MemoryEntries int           `yaml:"memory_entries"`
	SingleFlight  bool          `yaml:"single_flight"`
	Keywords      []string      `yaml:"keywords"`
	LogFormat     string        `yaml:"log_format"`
	Verbose       bool          `yaml:"verbose"`
}

// Dir returns the directory holding the config file and default stores
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repocache"
	}
	return filepath.Join(home, ".repocache")
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func DefaultConfig() *Config {
	base := Dir()
	keywords := make([]string, len(DefaultKeywords))
	copy(keywords, DefaultKeywords)
	return &Config{
		CacheDir:      filepath.Join(base, "cache"),
		IndexDir:      filepath.Join(base, "index"),
		APIBaseURL:    "https://api.github.com",
		HTTPTimeout:   30 * time.Second,
		MemoryEntries: 256,
		Keywords:      keywords,
		LogFormat:     "console",
	}
}

// Load reads path (DefaultPath when empty). A missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv(EnvIndexDir); v != "" {
		c.IndexDir = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.GitHubToken = v
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv(EnvSingleFlight); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvSingleFlight, err)
		}
		c.SingleFlight = b
	}
	return nil
}

// Validate checks field values
func (c *Config) Validate() error {
	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir cannot be empty")
	}
	if c.IndexDir == "" {
		return fmt.Errorf("index_dir cannot be empty")
	}
	if c.CacheDir == c.IndexDir {
		return fmt.Errorf("cache_dir and index_dir must differ")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout cannot be negative")
	}
	if c.MemoryEntries < 0 {
		return fmt.Errorf("memory_entries cannot be negative")
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	return nil
}
