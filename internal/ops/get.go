package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/bookmark-lens/internal/bookmark"
	"github.com/hpungsan/bookmark-lens/internal/errors"
)

// GetInput contains parameters for the Get operation.
type GetInput struct {
	ID string
	// IncludeContent keeps the stored page text in the result.
	IncludeContent bool
}

// Get retrieves one bookmark by id.
func (s *Searcher) Get(ctx context.Context, input GetInput) (*bookmark.Bookmark, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !input.IncludeContent {
		b.ContentText = ""
	}
	return b, nil
}
