package enrich

import (
	"context"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// ClientConfig configures a chat client.
type ClientConfig struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
	Model   string

	// MaxRetries overrides the SDK retry count when non-nil.
	MaxRetries *int
}

const maxCompletionTokens = 400

// OpenAI implements LLM with the Chat Completions API.
type OpenAI struct {
	client openaisdk.Client
	model  string
}

// NewOpenAI creates an OpenAI chat client.
func NewOpenAI(cfg ClientConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: missing api key")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries != nil {
		opts = append(opts, option.WithMaxRetries(*cfg.MaxRetries))
	}

	return &OpenAI{client: openaisdk.NewClient(opts...), model: cfg.Model}, nil
}

func (c *OpenAI) Model() string { return c.model }

func (c *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(system),
			openaisdk.UserMessage(user),
		},
		MaxCompletionTokens: param.NewOpt(int64(maxCompletionTokens)),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
