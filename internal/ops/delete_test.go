package ops

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/bookmark-lens/internal/errors"
)

func TestDelete_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	saved := h.save(t, "https://example.com", "")

	out, err := h.ingestor.Delete(ctx, DeleteInput{ID: saved.Bookmark.ID})
	require.NoError(t, err)
	require.True(t, out.Deleted)
	require.Equal(t, saved.Bookmark.ID, out.ID)

	out, err = h.ingestor.Delete(ctx, DeleteInput{ID: saved.Bookmark.ID})
	require.NoError(t, err)
	require.False(t, out.Deleted)

	h.requireEmptyStores(t)

	_, err = h.searcher.Get(ctx, GetInput{ID: saved.Bookmark.ID})
	requireCode(t, err, errors.ErrNotFound)
}

func TestDelete_UnknownID(t *testing.T) {
	h := newHarness(t)

	out, err := h.ingestor.Delete(context.Background(), DeleteInput{ID: "01UNKNOWN"})
	require.NoError(t, err)
	require.False(t, out.Deleted)
}

func TestDelete_RequiresID(t *testing.T) {
	h := newHarness(t)

	_, err := h.ingestor.Delete(context.Background(), DeleteInput{ID: "  "})
	requireCode(t, err, errors.ErrInvalidRequest)
}

func TestDelete_KeepsOtherBookmarks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.save(t, "https://example.com/a", "")
	b := h.save(t, "https://example.com/b", "")

	_, err := h.ingestor.Delete(ctx, DeleteInput{ID: a.Bookmark.ID})
	require.NoError(t, err)

	ids, err := h.index.IDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{b.Bookmark.ID}, ids)
}

func TestDelete_MetadataFailureRestoresVector(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	saved := h.save(t, "https://example.com", "")

	// Components with more precision than a text round trip keeps
	vecBefore := make([]float32, testDim)
	for i := range vecBefore {
		vecBefore[i] = float32(i+1) * 0.0000012345
	}
	require.NoError(t, h.index.Upsert(ctx, saved.Bookmark.ID, vecBefore))

	in := NewIngestor(h.deps(func(d *Deps) {
		d.Store = &faultyStore{MetadataStore: h.store, deleteErr: stderrors.New("database is locked")}
	}))

	_, err = in.Delete(ctx, DeleteInput{ID: saved.Bookmark.ID})
	lerr := requireCode(t, err, errors.ErrStoreConsistency)
	require.Equal(t, "metadata_delete", lerr.Details["failed_step"])
	require.Equal(t, true, lerr.Details["rolled_back"])

	vecAfter, err := h.index.Get(ctx, saved.Bookmark.ID)
	require.NoError(t, err)
	require.Equal(t, vecBefore, vecAfter, "restored vector must match bit for bit")

	_, err = h.store.GetByID(ctx, saved.Bookmark.ID)
	require.NoError(t, err)
}

func TestDelete_VectorFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	saved := h.save(t, "https://example.com", "")

	in := NewIngestor(h.deps(func(d *Deps) {
		d.Index = &faultyIndex{VectorIndex: h.index, deleteErr: stderrors.New("io error")}
	}))

	_, err := in.Delete(ctx, DeleteInput{ID: saved.Bookmark.ID})
	requireCode(t, err, errors.ErrInternal)

	_, err = h.store.GetByID(ctx, saved.Bookmark.ID)
	require.NoError(t, err)
	vec, err := h.index.Get(ctx, saved.Bookmark.ID)
	require.NoError(t, err)
	require.NotNil(t, vec)
}
