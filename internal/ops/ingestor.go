package ops

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/bookmark-lens/internal/config"
	"github.com/hpungsan/bookmark-lens/internal/enrich"
	"github.com/hpungsan/bookmark-lens/internal/errors"
	"github.com/hpungsan/bookmark-lens/internal/fetch"
	"github.com/hpungsan/bookmark-lens/internal/logging"
)

// Deps are the collaborators shared by the orchestrators.
// Enricher may be nil: enrichment is then disabled.
type Deps struct {
	Store    MetadataStore
	Index    VectorIndex
	Fetcher  Fetcher
	Embedder Embedder
	Enricher Enricher
	Config   *config.Config
	Logger   *slog.Logger
}

func (d *Deps) defaults() {
	if d.Config == nil {
		d.Config = config.DefaultConfig()
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
}

// Ingestor writes bookmarks to both stores: save, update, delete, repair.
// Store writes are serialized by mu.
type Ingestor struct {
	store    MetadataStore
	index    VectorIndex
	fetcher  Fetcher
	embedder Embedder
	enricher Enricher
	cfg      *config.Config
	logger   *slog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewIngestor creates an ingestion orchestrator.
func NewIngestor(d Deps) *Ingestor {
	d.defaults()
	return &Ingestor{
		store:    d.Store,
		index:    d.Index,
		fetcher:  d.Fetcher,
		embedder: d.Embedder,
		enricher: d.Enricher,
		cfg:      d.Config,
		logger:   d.Logger,
		now:      time.Now,
	}
}

// EnrichmentEnabled reports whether an enricher is configured.
func (in *Ingestor) EnrichmentEnabled() bool {
	return in.enricher != nil
}

// fetchPage fetches url under the fetch timeout. refresh bypasses any cache.
func (in *Ingestor) fetchPage(ctx context.Context, url string, refresh bool) (*fetch.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, in.cfg.FetchTimeout())
	defer cancel()
	if refresh {
		ctx = fetch.NoCache(ctx)
	}

	page, err := in.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, errors.NewFetchFailed(url, withDeadline(ctx, err))
	}
	return page, nil
}

func (in *Ingestor) embed(ctx context.Context, text string) ([]float32, error) {
	return embedText(ctx, in.embedder, in.cfg.EmbedTimeout(), in.index.Dimension(), text)
}

// enrich runs the enricher best-effort. The returned warning is empty on
// success or when enrichment is disabled.
func (in *Ingestor) enrich(ctx context.Context, req enrich.Request) (*enrich.Result, string) {
	if !in.EnrichmentEnabled() {
		return nil, ""
	}

	ctx, cancel := context.WithTimeout(ctx, in.cfg.EnrichTimeout())
	defer cancel()

	res, err := in.enricher.Enrich(ctx, req)
	if err != nil {
		lerr := errors.NewEnrichmentFailed(withDeadline(ctx, err))
		in.logger.Warn("enrichment failed, saving without it", "url", req.URL, "error", lerr)
		return nil, lerr.Error()
	}
	return res, ""
}
