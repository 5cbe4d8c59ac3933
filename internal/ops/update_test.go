package ops

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/bookmark-lens/internal/errors"
)

func TestUpdate_TagModes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t.Run("append", func(t *testing.T) {
		saved := h.save(t, "https://example.com/append", "", "a", "b")

		out, err := h.ingestor.Update(ctx, UpdateInput{ID: saved.Bookmark.ID, Tags: tagsPtr("b", "c"), TagMode: TagModeAppend})
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b", "c"}, out.Bookmark.Tags)
	})

	t.Run("replace", func(t *testing.T) {
		saved := h.save(t, "https://example.com/replace", "", "a", "b")

		out, err := h.ingestor.Update(ctx, UpdateInput{ID: saved.Bookmark.ID, Tags: tagsPtr("b", "c"), TagMode: TagModeReplace})
		require.NoError(t, err)
		require.Equal(t, []string{"b", "c"}, out.Bookmark.Tags)

		row, err := h.store.GetByID(ctx, saved.Bookmark.ID)
		require.NoError(t, err)
		require.Equal(t, []string{"b", "c"}, row.Tags)
	})

	t.Run("default is append", func(t *testing.T) {
		saved := h.save(t, "https://example.com/default", "", "a")

		out, err := h.ingestor.Update(ctx, UpdateInput{ID: saved.Bookmark.ID, Tags: tagsPtr("B")})
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, out.Bookmark.Tags)
	})

	t.Run("replace drops auto tags too", func(t *testing.T) {
		saved := h.save(t, "https://example.com/clear", "", "manual", "auto")

		out, err := h.ingestor.Update(ctx, UpdateInput{ID: saved.Bookmark.ID, Tags: tagsPtr(), TagMode: TagModeReplace})
		require.NoError(t, err)
		require.Empty(t, out.Bookmark.Tags)
	})
}

func TestUpdate_NoteReembeds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	clock(h.ingestor, 1000)

	saved := h.save(t, "https://example.com", "old note")
	before, err := h.index.Get(ctx, saved.Bookmark.ID)
	require.NoError(t, err)

	out, err := h.ingestor.Update(ctx, UpdateInput{ID: saved.Bookmark.ID, Note: stringPtr("a completely different note about databases")})
	require.NoError(t, err)
	require.True(t, out.Reembedded)
	require.Equal(t, "a completely different note about databases", out.Bookmark.UserNote)
	require.Greater(t, out.Bookmark.UpdatedAt, saved.Bookmark.UpdatedAt)
	require.Equal(t, saved.Bookmark.CreatedAt, out.Bookmark.CreatedAt)

	after, err := h.index.Get(ctx, saved.Bookmark.ID)
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestUpdate_TagsOnlySkipsEmbedding(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	saved := h.save(t, "https://example.com", "note")
	before, err := h.index.Get(ctx, saved.Bookmark.ID)
	require.NoError(t, err)
	calls := h.embedder.calls

	out, err := h.ingestor.Update(ctx, UpdateInput{ID: saved.Bookmark.ID, Tags: tagsPtr("x")})
	require.NoError(t, err)
	require.False(t, out.Reembedded)
	require.Equal(t, calls, h.embedder.calls)

	// Same note again is not a text change either
	out, err = h.ingestor.Update(ctx, UpdateInput{ID: saved.Bookmark.ID, Note: stringPtr("note")})
	require.NoError(t, err)
	require.False(t, out.Reembedded)

	after, err := h.index.Get(ctx, saved.Bookmark.ID)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestUpdate_Title(t *testing.T) {
	h := newHarness(t)
	saved := h.save(t, "https://example.com", "")

	out, err := h.ingestor.Update(context.Background(), UpdateInput{ID: saved.Bookmark.ID, Title: stringPtr("  My Title ")})
	require.NoError(t, err)
	require.Equal(t, "My Title", out.Bookmark.Title)
	require.True(t, out.Reembedded)

	_, err = h.ingestor.Update(context.Background(), UpdateInput{ID: saved.Bookmark.ID, Title: stringPtr("  ")})
	requireCode(t, err, errors.ErrInvalidRequest)
}

func TestUpdate_Refetch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fetcher.setPage("https://example.com", "Old Title", "old content")

	saved := h.save(t, "https://example.com", "")

	h.fetcher.setPage("https://example.com", "New Title", "new content")
	out, err := h.ingestor.Update(ctx, UpdateInput{ID: saved.Bookmark.ID, Refetch: true})
	require.NoError(t, err)
	require.Equal(t, "New Title", out.Bookmark.Title)
	require.True(t, out.Reembedded)

	row, err := h.store.GetByID(ctx, saved.Bookmark.ID)
	require.NoError(t, err)
	require.Equal(t, "new content", row.ContentText)
}

func TestUpdate_RefetchFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	saved := h.save(t, "https://example.com", "")

	h.fetcher.err = stderrors.New("gone")
	_, err := h.ingestor.Update(ctx, UpdateInput{ID: saved.Bookmark.ID, Refetch: true, Note: stringPtr("new")})
	requireCode(t, err, errors.ErrFetchFailed)

	row, err := h.store.GetByID(ctx, saved.Bookmark.ID)
	require.NoError(t, err)
	require.Equal(t, "", row.UserNote)
}

func TestUpdate_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	saved := h.save(t, "https://example.com", "")

	_, err := h.ingestor.Update(ctx, UpdateInput{ID: "", Note: stringPtr("x")})
	requireCode(t, err, errors.ErrInvalidRequest)

	_, err = h.ingestor.Update(ctx, UpdateInput{ID: saved.Bookmark.ID})
	requireCode(t, err, errors.ErrInvalidRequest)

	_, err = h.ingestor.Update(ctx, UpdateInput{ID: saved.Bookmark.ID, Tags: tagsPtr("a"), TagMode: "merge"})
	requireCode(t, err, errors.ErrInvalidRequest)

	_, err = h.ingestor.Update(ctx, UpdateInput{ID: "01NOPE", Note: stringPtr("x")})
	requireCode(t, err, errors.ErrNotFound)
}

func TestUpdate_EmbeddingFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	saved := h.save(t, "https://example.com", "original")

	h.embedder.err = stderrors.New("model unavailable")
	_, err := h.ingestor.Update(ctx, UpdateInput{ID: saved.Bookmark.ID, Note: stringPtr("changed"), Tags: tagsPtr("new")})
	requireCode(t, err, errors.ErrEmbeddingFailed)

	row, err := h.store.GetByID(ctx, saved.Bookmark.ID)
	require.NoError(t, err)
	require.Equal(t, "original", row.UserNote)
	require.Empty(t, row.Tags)
}

func TestUpdate_VectorFailureRestoresRow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	clock(h.ingestor, 1000)
	saved := h.save(t, "https://example.com", "original", "keep")

	before, err := h.store.GetByID(ctx, saved.Bookmark.ID)
	require.NoError(t, err)
	vecBefore, err := h.index.Get(ctx, saved.Bookmark.ID)
	require.NoError(t, err)

	in := NewIngestor(h.deps(func(d *Deps) {
		d.Index = &faultyIndex{VectorIndex: h.index, upsertErr: stderrors.New("disk full")}
	}))
	clock(in, 5000)

	_, err = in.Update(ctx, UpdateInput{ID: saved.Bookmark.ID, Note: stringPtr("changed"), Tags: tagsPtr("drop"), TagMode: TagModeReplace})
	lerr := requireCode(t, err, errors.ErrStoreConsistency)
	require.Equal(t, true, lerr.Details["rolled_back"])

	after, err := h.store.GetByID(ctx, saved.Bookmark.ID)
	require.NoError(t, err)
	require.Equal(t, before, after)

	vecAfter, err := h.index.Get(ctx, saved.Bookmark.ID)
	require.NoError(t, err)
	require.Equal(t, vecBefore, vecAfter)
}

func TestUpdate_MetadataFailureIsReturnedAsIs(t *testing.T) {
	h := newHarness(t)
	saved := h.save(t, "https://example.com", "")

	boom := errors.NewInternal(stderrors.New("database is locked"))
	in := NewIngestor(h.deps(func(d *Deps) {
		d.Store = &faultyStore{MetadataStore: h.store, updateErr: boom}
	}))

	_, err := in.Update(context.Background(), UpdateInput{ID: saved.Bookmark.ID, Note: stringPtr("x")})
	requireCode(t, err, errors.ErrInternal)
}
