package ops

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/bookmark-lens/internal/bookmark"
	"github.com/hpungsan/bookmark-lens/internal/errors"
)

// MaxQueryLength caps the search query in characters.
const MaxQueryLength = 2000

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query  string   // required
	Limit  int      // default: 10, max: 50
	Tags   []string // optional: every tag must be present
	Domain string   // optional: exact domain, "www." ignored
	Since  *int64   // optional: created_at >= since (unix seconds)
	Until  *int64   // optional: created_at <= until (unix seconds)
}

// SearchResult is a bookmark with its similarity to the query.
type SearchResult struct {
	*bookmark.Bookmark
	SimilarityScore float64 `json:"similarity_score"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items []SearchResult `json:"items"`
	Sort  string         `json:"sort"` // "similarity"
}

// Search embeds the query, asks the index for neighbours, and returns the
// matching bookmarks most similar first. Ties go to the newer bookmark.
func (s *Searcher) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLength))
	}
	if err := timeBounds(input.Since, input.Until); err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	filter := bookmark.NewFilter(input.Tags, input.Domain, input.Since, input.Until)

	vec, err := embedText(ctx, s.embedder, s.cfg.EmbedTimeout(), s.index.Dimension(), query)
	if err != nil {
		return nil, err
	}

	k := limit
	if !filter.Empty() {
		k = limit * s.cfg.SearchOverfetch
	}
	matches, err := s.index.Query(ctx, vec, k)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	rows, err := s.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		b, ok := rows[m.ID]
		if !ok {
			s.logger.Warn("vector has no metadata row, skipping", "id", m.ID)
			continue
		}
		if !filter.Match(b) {
			continue
		}
		items = append(items, SearchResult{Bookmark: withoutContent(b), SimilarityScore: m.Score})
	}

	slices.SortStableFunc(items, func(a, b SearchResult) int {
		if c := cmp.Compare(b.SimilarityScore, a.SimilarityScore); c != 0 {
			return c
		}
		if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(items) > limit {
		items = items[:limit]
	}

	return &SearchOutput{Items: items, Sort: "similarity"}, nil
}
