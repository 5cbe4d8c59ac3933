package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/bookmark-lens/internal/config"
	"github.com/hpungsan/bookmark-lens/internal/fetch"
	"github.com/hpungsan/bookmark-lens/internal/ops"
	"github.com/hpungsan/bookmark-lens/internal/vector"
)

func TestOpen_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Local Page</title></head><body><p>vector search over bookmarks</p></body></html>`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	a, err := Open(dir, config.DefaultConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	require.False(t, a.Ingestor.EnrichmentEnabled())

	ctx := context.Background()
	saved, err := a.Ingestor.Save(ctx, ops.SaveInput{URL: srv.URL + "/page", Tags: []string{"test"}})
	require.NoError(t, err)
	require.Equal(t, "Local Page", saved.Bookmark.Title)

	res, err := a.Searcher.Search(ctx, ops.SearchInput{Query: "bookmark vector search"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Equal(t, saved.Bookmark.ID, res.Items[0].ID)

	for _, name := range []string{"bookmarks.db", vector.FileName, fetch.CacheFileName} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, "expected %s", name)
	}
}

func TestOpen_CacheDisabled(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.FetchCacheTTLHours = -1

	a, err := Open(dir, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = os.Stat(filepath.Join(dir, fetch.CacheFileName))
	require.True(t, os.IsNotExist(err))
}

func TestOpen_DimensionChangeIsRejected(t *testing.T) {
	dir := t.TempDir()

	a, err := Open(dir, config.DefaultConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	cfg := config.DefaultConfig()
	cfg.EmbeddingDimension = 128
	_, err = Open(dir, cfg, nil)
	require.Error(t, err)
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.EmbeddingProvider = "nope"

	_, err := Open(t.TempDir(), cfg, nil)
	require.Error(t, err)
}
