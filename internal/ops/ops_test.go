package ops

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/bookmark-lens/internal/bookmark"
	"github.com/hpungsan/bookmark-lens/internal/config"
	"github.com/hpungsan/bookmark-lens/internal/db"
	"github.com/hpungsan/bookmark-lens/internal/embed"
	"github.com/hpungsan/bookmark-lens/internal/enrich"
	"github.com/hpungsan/bookmark-lens/internal/errors"
	"github.com/hpungsan/bookmark-lens/internal/fetch"
	"github.com/hpungsan/bookmark-lens/internal/logging"
	"github.com/hpungsan/bookmark-lens/internal/vector"
)

const testDim = 256

// fakeFetcher serves canned pages. Unknown URLs get a generated page.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]*fetch.Page
	err   error
	block bool // wait for the context to expire
	calls int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]*fetch.Page{}}
}

func (f *fakeFetcher) setPage(url, title, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = &fetch.Page{URL: url, Title: title, Text: text, ContentType: "text/html"}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*fetch.Page, error) {
	f.mu.Lock()
	f.calls++
	err, block := f.err, f.block
	page, ok := f.pages[url]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return &fetch.Page{URL: url, Title: "Page " + url, Text: "content of " + url, ContentType: "text/html"}, nil
	}
	p := *page
	return &p, nil
}

// fakeEmbedder wraps the local hashing embedder with failure injection.
type fakeEmbedder struct {
	local *embed.Local
	err   error
	calls int
}

func newFakeEmbedder(dim int) *fakeEmbedder {
	return &fakeEmbedder{local: embed.NewLocal(dim)}
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.local.Embed(ctx, text)
}

func (e *fakeEmbedder) Dimension() int { return e.local.Dimension() }

type fakeEnricher struct {
	res   *enrich.Result
	err   error
	calls int
}

func (e *fakeEnricher) Enrich(_ context.Context, _ enrich.Request) (*enrich.Result, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.res, nil
}

// faultyIndex fails selected operations of the wrapped index.
type faultyIndex struct {
	VectorIndex
	upsertErr error
	deleteErr error
}

func (f *faultyIndex) Upsert(ctx context.Context, id string, vec []float32) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.VectorIndex.Upsert(ctx, id, vec)
}

func (f *faultyIndex) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.VectorIndex.Delete(ctx, id)
}

// faultyStore fails selected operations of the wrapped store.
type faultyStore struct {
	MetadataStore
	deleteErr error
	updateErr error
}

func (f *faultyStore) Delete(ctx context.Context, id string) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	return f.MetadataStore.Delete(ctx, id)
}

func (f *faultyStore) Update(ctx context.Context, b *bookmark.Bookmark) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.MetadataStore.Update(ctx, b)
}

type harness struct {
	store    *db.Store
	index    *vector.Index
	fetcher  *fakeFetcher
	embedder *fakeEmbedder
	cfg      *config.Config

	ingestor *Ingestor
	searcher *Searcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	database, err := db.Init(dir)
	require.NoError(t, err)
	store := db.NewStore(database)
	t.Cleanup(func() { store.Close() })

	index, err := vector.Open(filepath.Join(dir, vector.FileName), testDim)
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	h := &harness{
		store:    store,
		index:    index,
		fetcher:  newFakeFetcher(),
		embedder: newFakeEmbedder(testDim),
		cfg:      config.DefaultConfig(),
	}
	h.ingestor = NewIngestor(h.deps())
	h.searcher = NewSearcher(h.deps())
	return h
}

// deps returns the harness collaborators; mutate adjusts them for one test.
func (h *harness) deps(mutate ...func(d *Deps)) Deps {
	d := Deps{
		Store:    h.store,
		Index:    h.index,
		Fetcher:  h.fetcher,
		Embedder: h.embedder,
		Config:   h.cfg,
		Logger:   logging.Discard(),
	}
	for _, m := range mutate {
		m(&d)
	}
	return d
}

// clock makes an ingestor's timestamps deterministic.
func clock(in *Ingestor, start int64) {
	next := start
	in.now = func() time.Time {
		t := time.Unix(next, 0)
		next += 10
		return t
	}
}

func (h *harness) save(t *testing.T, url, note string, tags ...string) *SaveOutput {
	t.Helper()
	out, err := h.ingestor.Save(context.Background(), SaveInput{URL: url, Note: note, Tags: tags})
	require.NoError(t, err)
	return out
}

// requireEmptyStores asserts that neither store holds anything.
func (h *harness) requireEmptyStores(t *testing.T) {
	t.Helper()
	ids, err := h.store.ListIDs(context.Background())
	require.NoError(t, err)
	require.Empty(t, ids, "metadata store should be empty")

	vecIDs, err := h.index.IDs(context.Background())
	require.NoError(t, err)
	require.Empty(t, vecIDs, "vector index should be empty")
}

func requireCode(t *testing.T, err error, code errors.ErrorCode) *errors.LensError {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, code), "error = %v, want code %s", err, code)
	lerr, ok := err.(*errors.LensError)
	require.True(t, ok, "error should be a *LensError, got %T", err)
	return lerr
}

func stringPtr(s string) *string {
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}

func tagsPtr(tags ...string) *[]string {
	return &tags
}
