package ops

import (
	"context"

	"github.com/hpungsan/bookmark-lens/internal/bookmark"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Tags   []string // optional: every tag must be present
	Domain string   // optional
	Since  *int64   // optional
	Until  *int64   // optional
	Limit  int      // default: 20, max: 100
	Offset int      // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []*bookmark.Bookmark `json:"items"`
	Pagination Pagination           `json:"pagination"`
	Sort       string               `json:"sort"`
}

// List retrieves bookmarks matching exact filters, newest first, with pagination.
func (s *Searcher) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	if err := timeBounds(input.Since, input.Until); err != nil {
		return nil, err
	}

	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	filter := bookmark.NewFilter(input.Tags, input.Domain, input.Since, input.Until)
	items, total, err := s.store.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	for i, b := range items {
		items[i] = withoutContent(b)
	}
	if items == nil {
		items = []*bookmark.Bookmark{}
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
