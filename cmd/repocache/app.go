package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/repocache-mcp/internal/cache"
	"github.com/dshills/repocache-mcp/internal/config"
	"github.com/dshills/repocache-mcp/internal/indexer"
	"github.com/dshills/repocache-mcp/internal/kvstore"
	"github.com/dshills/repocache-mcp/internal/observe"
	"github.com/dshills/repocache-mcp/internal/source"
	"github.com/dshills/repocache-mcp/internal/service"
)

// app holds the long-lived handles shared by every command
type app struct {
	cfg    *config.Config
	obs    *observe.Observer
	store  *kvstore.Store
	idx    *indexer.Indexer
	client *source.GitHub
	svc    *service.Service
}

func openApp(ctx context.Context, cfg *config.Config, obs *observe.Observer) (*app, error) {
	store, err := kvstore.Open(ctx, cfg.CacheDir, kvstore.WithMemoryEntries(cfg.MemoryEntries))
	if err != nil {
		return nil, fmt.Errorf("open response cache: %w", err)
	}

	idx, err := indexer.Open(ctx, cfg.IndexDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open content index: %w", err)
	}

	client := source.NewGitHub(source.GitHubConfig{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.GitHubToken,
		Timeout: cfg.HTTPTimeout,
	})

	cacheOpts := []cache.Option{cache.WithObserver(obs)}
	if cfg.SingleFlight {
		cacheOpts = append(cacheOpts, cache.WithSingleFlight())
	}

	svc := service.New(cache.New(client, store, cacheOpts...), idx,
		service.WithKeywords(cfg.Keywords),
		service.WithCacheStore(store),
		service.WithObserver(obs),
	)

	obs.Log().Debug().
		Str("cache_dir", cfg.CacheDir).
		Str("index_dir", cfg.IndexDir).
		Str("api", cfg.APIBaseURL).
		Msg("stores opened")

	return &app{
		cfg:    cfg,
		obs:    obs,
		store:  store,
		idx:    idx,
		client: client,
		svc:    svc,
	}, nil
}

func (a *app) Close() error {
	return errors.Join(
		a.client.Close(),
		a.idx.Close(),
		a.store.Close(),
	)
}
