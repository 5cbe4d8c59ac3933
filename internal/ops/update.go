package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/bookmark-lens/internal/bookmark"
	"github.com/hpungsan/bookmark-lens/internal/errors"
)

// TagMode controls how Update combines tags.
type TagMode string

const (
	TagModeAppend  TagMode = "append"  // default: union with the existing tags
	TagModeReplace TagMode = "replace" // overwrite the whole tag set, auto tags included
)

// UpdateInput contains parameters for the Update operation.
type UpdateInput struct {
	ID string // required

	// Editable fields (nil = don't change)
	Note  *string
	Title *string
	Tags  *[]string

	TagMode TagMode // default: TagModeAppend

	// Refetch re-downloads the URL and refreshes title and content.
	// An explicit Title still wins over the fetched one.
	Refetch bool
}

// UpdateOutput contains the result of the Update operation.
type UpdateOutput struct {
	Bookmark   *bookmark.Bookmark `json:"bookmark"`
	Reembedded bool               `json:"reembedded"`
}

// Update modifies an existing bookmark. Changing note, title, or content
// re-embeds it; the metadata row and vector are written together and a
// vector failure restores the previous row.
func (in *Ingestor) Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	if input.Note == nil && input.Title == nil && input.Tags == nil && !input.Refetch {
		return nil, errors.NewInvalidRequest("at least one editable field must be provided")
	}
	if input.TagMode == "" {
		input.TagMode = TagModeAppend
	}
	if input.TagMode != TagModeAppend && input.TagMode != TagModeReplace {
		return nil, errors.NewInvalidRequest("tag_mode must be one of: append, replace")
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, errors.NewInvalidRequest("title must not be empty")
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	prev, err := in.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	b := prev.Clone()

	if input.Refetch {
		page, err := in.fetchPage(ctx, b.URL, true)
		if err != nil {
			return nil, err
		}
		b.Title = page.Title
		b.ContentText = bookmark.Truncate(page.Text, in.cfg.MaxContentChars)
	}
	if input.Title != nil {
		b.Title = strings.TrimSpace(*input.Title)
	}
	if input.Note != nil {
		b.UserNote = *input.Note
	}
	if input.Tags != nil {
		switch input.TagMode {
		case TagModeReplace:
			b.Tags = bookmark.NormalizeTags(*input.Tags)
		default:
			b.Tags = bookmark.MergeTags(b.Tags, *input.Tags)
		}
	}
	b.UpdatedAt = in.now().Unix()

	reembed := b.Title != prev.Title || b.UserNote != prev.UserNote || b.ContentText != prev.ContentText

	steps := []step{{
		name: "metadata_update",
		do:   func(ctx context.Context) error { return in.store.Update(ctx, b) },
		undo: func(ctx context.Context) error { return in.store.Update(ctx, prev) },
	}}

	if reembed {
		vec, err := in.embed(ctx, bookmark.EmbeddingText(b, in.cfg.MaxEmbedChars))
		if err != nil {
			return nil, err
		}
		steps = append(steps, step{
			name: "vector_upsert",
			do:   func(ctx context.Context) error { return in.index.Upsert(ctx, id, vec) },
		})
	}

	if err := runSteps(ctx, in.logger, id, steps); err != nil {
		return nil, err
	}

	in.logger.Info("bookmark updated", "id", id, "reembedded", reembed)
	return &UpdateOutput{Bookmark: withoutContent(b), Reembedded: reembed}, nil
}
