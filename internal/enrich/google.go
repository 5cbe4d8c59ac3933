package enrich

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Google implements LLM with the Gemini API.
type Google struct {
	client *genai.Client
	model  string
}

// NewGoogle creates a Gemini chat client. MaxRetries is ignored; the SDK
// does not retry on its own.
func NewGoogle(cfg ClientConfig) (*Google, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google: missing api key")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("google: creating client: %w", err)
	}
	return &Google{client: client, model: cfg.Model}, nil
}

func (c *Google) Model() string { return c.model }

func (c *Google) Complete(ctx context.Context, system, user string) (string, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: maxCompletionTokens,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), config)
	if err != nil {
		return "", fmt.Errorf("google: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("google: response has no text")
	}
	return text, nil
}
