// Package embed turns text into fixed-size vectors for the vector index.
package embed

import (
	"context"
	"fmt"
	"os"

	"github.com/hpungsan/bookmark-lens/internal/config"
)

// Embedder computes one embedding per text. Every vector it returns has
// exactly Dimension() components.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Model() string
}

// Default models per provider.
const (
	DefaultLocalModel  = "hashing-v1"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOllamaModel = "nomic-embed-text"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434/v1"
	defaultAPIKeyEnv     = "OPENAI_API_KEY"
)

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case config.EmbeddingOpenAI:
		return DefaultOpenAIModel
	case config.EmbeddingOllama:
		return DefaultOllamaModel
	default:
		return DefaultLocalModel
	}
}

// DefaultDimension returns the native vector size of a provider/model pair.
func DefaultDimension(provider, model string) int {
	switch provider {
	case config.EmbeddingOpenAI:
		switch model {
		case "text-embedding-3-large":
			return 3072
		default:
			return 1536
		}
	case config.EmbeddingOllama:
		switch model {
		case "mxbai-embed-large":
			return 1024
		case "all-minilm":
			return 384
		default:
			return 768
		}
	default:
		return 384
	}
}

// New builds the embedder selected by cfg.
func New(cfg *config.Config) (Embedder, error) {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultModel(cfg.EmbeddingProvider)
	}
	dim := cfg.EmbeddingDimension
	if dim == 0 {
		dim = DefaultDimension(cfg.EmbeddingProvider, model)
	}

	switch cfg.EmbeddingProvider {
	case config.EmbeddingLocal:
		return NewLocal(dim), nil

	case config.EmbeddingOpenAI:
		keyEnv := cfg.EmbeddingAPIKeyEnv
		if keyEnv == "" {
			keyEnv = defaultAPIKeyEnv
		}
		apiKey := os.Getenv(keyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("API key not found in environment variable: %s", keyEnv)
		}
		return NewOpenAI(OpenAIConfig{
			APIKey:  apiKey,
			BaseURL: cfg.EmbeddingBaseURL,
			Model:   model,
			// text-embedding-3 models can be shortened server side
			Dimension:     dim,
			SendDimension: cfg.EmbeddingDimension > 0,
		})

	case config.EmbeddingOllama:
		baseURL := cfg.EmbeddingBaseURL
		if baseURL == "" {
			baseURL = defaultOllamaBaseURL
		}
		return NewOpenAI(OpenAIConfig{
			APIKey:    "ollama",
			BaseURL:   baseURL,
			Model:     model,
			Dimension: dim,
		})

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

// checkDimension rejects vectors that would not fit the index.
func checkDimension(vec []float32, want int) error {
	if len(vec) != want {
		return fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), want)
	}
	return nil
}
