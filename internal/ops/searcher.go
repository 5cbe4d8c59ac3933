package ops

import (
	"log/slog"

	"github.com/hpungsan/bookmark-lens/internal/config"
)

// Searcher answers read-only queries: semantic search, get, and list.
type Searcher struct {
	store    MetadataStore
	index    VectorIndex
	embedder Embedder
	cfg      *config.Config
	logger   *slog.Logger
}

// NewSearcher creates a search orchestrator from the store, index, and embedder in d.
func NewSearcher(d Deps) *Searcher {
	d.defaults()
	return &Searcher{
		store:    d.Store,
		index:    d.Index,
		embedder: d.Embedder,
		cfg:      d.Config,
		logger:   d.Logger,
	}
}
