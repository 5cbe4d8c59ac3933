package ops

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/bookmark-lens/internal/bookmark"
	"github.com/hpungsan/bookmark-lens/internal/enrich"
	"github.com/hpungsan/bookmark-lens/internal/errors"
	"github.com/hpungsan/bookmark-lens/internal/fetch"
	"github.com/hpungsan/bookmark-lens/internal/vector"
)

// Pagination limits
const (
	DefaultListLimit   = 20
	MaxListLimit       = 100
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Fetcher retrieves and extracts a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// Embedder turns text into a vector of Dimension() components.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Enricher produces a summary, topic, and tags for a page.
type Enricher interface {
	Enrich(ctx context.Context, req enrich.Request) (*enrich.Result, error)
}

// MetadataStore holds bookmark rows.
type MetadataStore interface {
	Insert(ctx context.Context, b *bookmark.Bookmark) error
	GetByID(ctx context.Context, id string) (*bookmark.Bookmark, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*bookmark.Bookmark, error)
	FindByURL(ctx context.Context, url string) (*bookmark.Bookmark, error)
	Update(ctx context.Context, b *bookmark.Bookmark) error
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, f bookmark.Filter, limit, offset int) ([]*bookmark.Bookmark, int, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// VectorIndex holds one embedding per bookmark id.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, embedding []float32) error
	Get(ctx context.Context, id string) ([]float32, error)
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, query []float32, k int) ([]vector.Match, error)
	IDs(ctx context.Context) ([]string, error)
	Dimension() int
}

// embedText computes an embedding under its own timeout and checks that it
// fits the index.
func embedText(ctx context.Context, e Embedder, timeout time.Duration, dim int, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vec, err := e.Embed(ctx, text)
	if err != nil {
		return nil, errors.NewEmbeddingFailed(withDeadline(ctx, err))
	}
	if len(vec) != dim {
		return nil, errors.NewEmbeddingFailed(fmt.Errorf("embedding has %d dimensions, index expects %d", len(vec), dim))
	}
	return vec, nil
}

// withDeadline makes sure an error caused by an expired ctx wraps
// context.DeadlineExceeded, even when the client library dropped it.
func withDeadline(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !stderrors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}

// timeBounds validates an optional [since, until] window.
func timeBounds(since, until *int64) error {
	if since != nil && until != nil && *since > *until {
		return errors.NewInvalidRequest("since must not be after until")
	}
	return nil
}

// withoutContent returns a copy of b with the stored page text dropped, for
// responses that list many bookmarks.
func withoutContent(b *bookmark.Bookmark) *bookmark.Bookmark {
	c := b.Clone()
	c.ContentText = ""
	return c
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
