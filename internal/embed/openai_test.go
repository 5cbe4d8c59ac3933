package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/require"
)

func embeddingServer(t *testing.T, vector []float64, gotBody *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		if gotBody != nil {
			_ = json.NewDecoder(r.Body).Decode(gotBody)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test-model",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": vector},
			},
			"usage": map[string]any{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI_Embed(t *testing.T) {
	var body map[string]any
	srv := embeddingServer(t, []float64{0.1, 0.2, 0.3}, &body)

	e, err := NewOpenAI(OpenAIConfig{
		APIKey:         "test",
		BaseURL:        srv.URL + "/v1/",
		Model:          "test-model",
		Dimension:      3,
		RequestOptions: []option.RequestOption{option.WithMaxRetries(0)},
	})
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	require.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, vec, 1e-6)

	require.Equal(t, "test-model", body["model"])
	require.Equal(t, []any{"hello world"}, body["input"])
	require.NotContains(t, body, "dimensions")
}

func TestOpenAI_SendDimension(t *testing.T) {
	var body map[string]any
	srv := embeddingServer(t, []float64{1, 0}, &body)

	e, err := NewOpenAI(OpenAIConfig{
		APIKey:         "test",
		BaseURL:        srv.URL + "/v1/",
		Model:          "text-embedding-3-small",
		Dimension:      2,
		SendDimension:  true,
		RequestOptions: []option.RequestOption{option.WithMaxRetries(0)},
	})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "x")
	require.NoError(t, err)
	require.EqualValues(t, 2, body["dimensions"])
}

func TestOpenAI_DimensionMismatch(t *testing.T) {
	srv := embeddingServer(t, []float64{0.1, 0.2}, nil)

	e, err := NewOpenAI(OpenAIConfig{
		APIKey:         "test",
		BaseURL:        srv.URL + "/v1/",
		Model:          "test-model",
		Dimension:      3,
		RequestOptions: []option.RequestOption{option.WithMaxRetries(0)},
	})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected 3")
}

func TestOpenAI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	e, err := NewOpenAI(OpenAIConfig{
		APIKey:         "test",
		BaseURL:        srv.URL + "/v1/",
		Model:          "test-model",
		Dimension:      3,
		RequestOptions: []option.RequestOption{option.WithMaxRetries(0)},
	})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "hello")
	require.Error(t, err)
}

func TestOpenAI_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	e, err := NewOpenAI(OpenAIConfig{
		APIKey:         "test",
		BaseURL:        srv.URL + "/v1/",
		Model:          "test-model",
		Dimension:      3,
		RequestOptions: []option.RequestOption{option.WithMaxRetries(0)},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = e.Embed(ctx, "hello")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewOpenAI_Validation(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{Model: "m", Dimension: 3})
	require.Error(t, err)
	_, err = NewOpenAI(OpenAIConfig{APIKey: "k", Dimension: 3})
	require.Error(t, err)
	_, err = NewOpenAI(OpenAIConfig{APIKey: "k", Model: "m"})
	require.Error(t, err)
}
