package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestLocal_DeterministicAndNormalized(t *testing.T) {
	e := NewLocal(128)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Model Context Protocol servers in Go")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Model Context Protocol servers in Go")
	require.NoError(t, err)

	require.Len(t, a, 128)
	require.Equal(t, a, b)

	var n float64
	for _, v := range a {
		n += float64(v) * float64(v)
	}
	require.InDelta(t, 1.0, n, 1e-5)
}

func TestLocal_RelatedTextIsCloser(t *testing.T) {
	e := NewLocal(384)
	ctx := context.Background()

	query, _ := e.Embed(ctx, "mcp server")
	related, _ := e.Embed(ctx, "Building an MCP server: a guide to Model Context Protocol servers")
	unrelated, _ := e.Embed(ctx, "Python asyncio tutorial for beginners")

	require.Greater(t, cosine(query, related), cosine(query, unrelated))
}

func TestLocal_EmptyText(t *testing.T) {
	e := NewLocal(16)

	vec, err := e.Embed(context.Background(), "  !! ")
	require.NoError(t, err)
	require.Len(t, vec, 16)

	var n float64
	for _, v := range vec {
		n += float64(v) * float64(v)
	}
	require.InDelta(t, 1.0, n, 1e-5)
}

func TestLocal_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocal(8).Embed(ctx, "text")
	require.ErrorIs(t, err, context.Canceled)
}

func TestTokenize(t *testing.T) {
	require.Equal(t, []string{"hello", "wörld", "go", "125"}, Tokenize("Hello, WÖRLD! a Go-125"))
	require.Equal(t, []string{"ffi"}, Tokenize("ﬃ"), "NFKC folds ligatures")
	require.Empty(t, Tokenize(""))
}
