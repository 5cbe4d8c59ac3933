package enrich

import (
	"context"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic implements LLM with the Messages API.
type Anthropic struct {
	client anthropicsdk.Client
	model  string
}

// NewAnthropic creates an Anthropic chat client.
func NewAnthropic(cfg ClientConfig) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: missing api key")
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

	return &Anthropic{client: anthropicsdk.NewClient(opts...), model: cfg.Model}, nil
}

func (c *Anthropic) Model() string { return c.model }

func (c *Anthropic) Complete(ctx context.Context, system, user string) (string, error) {
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.model),
		MaxTokens: maxCompletionTokens,
		System: []anthropicsdk.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(user)),
		},
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic: response has no text")
	}
	return b.String(), nil
}
