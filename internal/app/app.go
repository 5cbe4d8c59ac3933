// Package app wires the stores, external services, and orchestrators
// shared by the CLI and the MCP server.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hpungsan/bookmark-lens/internal/config"
	"github.com/hpungsan/bookmark-lens/internal/db"
	"github.com/hpungsan/bookmark-lens/internal/embed"
	"github.com/hpungsan/bookmark-lens/internal/enrich"
	"github.com/hpungsan/bookmark-lens/internal/fetch"
	"github.com/hpungsan/bookmark-lens/internal/logging"
	"github.com/hpungsan/bookmark-lens/internal/ops"
	"github.com/hpungsan/bookmark-lens/internal/vector"
)

// App holds everything opened for one process.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *db.Store
	Index    *vector.Index
	Ingestor *ops.Ingestor
	Searcher *ops.Searcher

	cache *fetch.Cache
}

// Open opens the metadata store, vector index, and fetch cache under baseDir
// and builds the orchestrators from cfg.
func Open(baseDir string, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	embedder, err := embed.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	svc, err := enrich.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create enricher: %w", err)
	}
	var enricher ops.Enricher
	if svc != nil {
		enricher = svc
	}

	database, err := db.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)
	store := db.NewStore(database)

	index, err := vector.Open(filepath.Join(baseDir, vector.FileName), embedder.Dimension())
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Index:  index,
	}

	var fetcher ops.Fetcher = fetch.New(fetch.Config{
		UserAgent: cfg.UserAgent,
		MaxBytes:  cfg.MaxFetchBytes,
		Retries:   cfg.FetchRetries,
	})
	if ttl := cfg.FetchCacheTTL(); ttl > 0 {
		cache, err := fetch.OpenCache(filepath.Join(baseDir, fetch.CacheFileName), ttl)
		if err != nil {
			// Another process may hold the file; fetch without it
			logger.Warn("fetch cache unavailable", "error", err)
		} else {
			a.cache = cache
			fetcher = fetch.WithCache(fetcher, cache, logger)
		}
	}

	deps := ops.Deps{
		Store:    store,
		Index:    index,
		Fetcher:  fetcher,
		Embedder: embedder,
		Enricher: enricher,
		Config:   cfg,
		Logger:   logger,
	}
	a.Ingestor = ops.NewIngestor(deps)
	a.Searcher = ops.NewSearcher(deps)

	logger.Debug("opened",
		"base_dir", baseDir,
		"embedding_model", embedder.Model(),
		"dimension", embedder.Dimension(),
		"enrichment", enricher != nil)
	return a, nil
}

// Close releases every store. It is safe to call on a partially used App.
func (a *App) Close() error {
	var firstErr error
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			firstErr = err
		}
	}
	if err := a.Index.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.Store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
