package ops

import (
	"context"

	"github.com/hpungsan/bookmark-lens/internal/bookmark"
	"github.com/hpungsan/bookmark-lens/internal/enrich"
	"github.com/hpungsan/bookmark-lens/internal/errors"
)

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	URL  string   // required, absolute http(s)
	Note string   // optional
	Tags []string // manual tags, normalized here
	// Dedupe applies Note and Tags to the newest bookmark with the same URL
	// instead of creating a new one.
	Dedupe bool
}

// SaveOutput contains the result of the Save operation.
type SaveOutput struct {
	Bookmark     *bookmark.Bookmark `json:"bookmark"`
	Enriched     bool               `json:"enriched"`
	Deduplicated bool               `json:"deduplicated"`
	Warnings     []string           `json:"warnings"`
}

// Save fetches, embeds, optionally enriches, and stores a new bookmark.
// FETCH_FAILED and EMBEDDING_FAILED mean nothing was written. A vector write
// failure deletes the new row again and returns STORE_CONSISTENCY.
func (in *Ingestor) Save(ctx context.Context, input SaveInput) (*SaveOutput, error) {
	url, ok := bookmark.ValidateURL(input.URL)
	if !ok {
		return nil, errors.NewInvalidRequest("url must be an absolute http or https URL")
	}
	manualTags := bookmark.NormalizeTags(input.Tags)

	if input.Dedupe {
		out, err := in.saveExisting(ctx, url, input.Note, manualTags)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
	}

	page, err := in.fetchPage(ctx, url, false)
	if err != nil {
		return nil, err
	}

	b := &bookmark.Bookmark{
		URL:         url,
		Domain:      bookmark.Domain(url),
		Title:       page.Title,
		ContentText: bookmark.Truncate(page.Text, in.cfg.MaxContentChars),
		UserNote:    input.Note,
	}

	vec, err := in.embed(ctx, bookmark.EmbeddingText(b, in.cfg.MaxEmbedChars))
	if err != nil {
		return nil, err
	}

	out := &SaveOutput{Warnings: []string{}}

	res, warning := in.enrich(ctx, enrich.Request{URL: url, Title: page.Title, Text: page.Text})
	if warning != "" {
		out.Warnings = append(out.Warnings, warning)
	}
	var autoTags []string
	if res != nil {
		out.Enriched = true
		b.SummaryShort = optional(res.SummaryShort)
		b.Topic = optional(res.Topic)
		autoTags = res.Tags
	}
	b.Tags = bookmark.MergeTags(manualTags, autoTags)

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := in.now().Unix()
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now

	in.mu.Lock()
	defer in.mu.Unlock()

	err = runSteps(ctx, in.logger, id, []step{
		{
			name: "metadata_insert",
			do:   func(ctx context.Context) error { return in.store.Insert(ctx, b) },
			undo: func(ctx context.Context) error {
				_, err := in.store.Delete(ctx, id)
				return err
			},
		},
		{
			name: "vector_upsert",
			do:   func(ctx context.Context) error { return in.index.Upsert(ctx, id, vec) },
		},
	})
	if err != nil {
		return nil, err
	}

	in.logger.Info("bookmark saved", "id", id, "url", url, "enriched", out.Enriched)
	out.Bookmark = withoutContent(b)
	return out, nil
}

// saveExisting applies a duplicate save to the newest bookmark with url.
func (in *Ingestor) saveExisting(ctx context.Context, url, note string, tags []string) (*SaveOutput, error) {
	existing, err := in.store.FindByURL(ctx, url)
	if err != nil {
		return nil, err
	}

	patch := UpdateInput{ID: existing.ID, TagMode: TagModeAppend}
	if note != "" {
		patch.Note = &note
	}
	if len(tags) > 0 {
		patch.Tags = &tags
	}

	b := existing
	if patch.Note != nil || patch.Tags != nil {
		updated, err := in.Update(ctx, patch)
		if err != nil {
			return nil, err
		}
		b = updated.Bookmark
	}

	return &SaveOutput{
		Bookmark:     withoutContent(b),
		Deduplicated: true,
		Warnings:     []string{},
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
