package embed

import (
	"context"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

// OpenAIConfig configures an OpenAI-compatible embeddings client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // optional; Ollama and test servers
	Model   string

	// Dimension is the vector size every response must have.
	Dimension int
	// SendDimension asks the server to shorten vectors to Dimension.
	SendDimension bool

	// RequestOptions are appended to the client options (retries, HTTP client).
	RequestOptions []option.RequestOption
}

// OpenAI embeds text with the /embeddings endpoint.
type OpenAI struct {
	client openaisdk.Client
	config OpenAIConfig
}

// NewOpenAI creates an OpenAI-compatible embedder.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai embeddings: missing api key")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai embeddings: missing model")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("openai embeddings: dimension must be positive")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, cfg.RequestOptions...)

	return &OpenAI{client: openaisdk.NewClient(opts...), config: cfg}, nil
}

func (e *OpenAI) Dimension() int { return e.config.Dimension }

func (e *OpenAI) Model() string { return e.config.Model }

// Embed requests a single embedding.
func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(e.config.Model),
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	}
	if e.config.SendDimension {
		params.Dimensions = param.NewOpt(int64(e.config.Dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}

	if err := checkDimension(vec, e.config.Dimension); err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	return vec, nil
}
