// Package enrich asks a chat model for a short summary, a topic, and tags.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hpungsan/bookmark-lens/internal/bookmark"
	"github.com/hpungsan/bookmark-lens/internal/config"
)

// Request is the page being enriched.
type Request struct {
	URL   string
	Title string
	Text  string
}

// Result is the model's structured answer, already normalized.
type Result struct {
	SummaryShort string   `json:"summary_short"`
	Topic        string   `json:"topic"`
	Tags         []string `json:"tags"`
}

// LLM is a single-turn chat completion.
type LLM interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Model() string
}

// Limits on what is sent and kept.
const (
	MaxPromptChars  = 6000
	MaxSummaryChars = 300
	MaxTopicChars   = 60
	MaxTags         = 5
)

const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	DefaultGoogleModel    = "gemini-2.0-flash"
)

const systemPrompt = `You classify web pages for a personal bookmark library.
Reply with a single JSON object and nothing else:
{"summary": "<one or two sentences>", "topic": "<one to three words>", "tags": ["<up to 5 short lowercase tags>"]}`

// Service turns pages into Results through an LLM.
type Service struct {
	llm LLM
}

// NewService wraps an LLM.
func NewService(llm LLM) *Service {
	return &Service{llm: llm}
}

// New builds the enrichment service selected by cfg.
// It returns nil, nil when enrichment is disabled.
func New(cfg *config.Config) (*Service, error) {
	switch cfg.LLMProvider {
	case "":
		return nil, nil

	case config.LLMOpenAI:
		apiKey, err := apiKey(cfg.LLMAPIKeyEnv, "OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		model := cfg.LLMModel
		if model == "" {
			model = DefaultOpenAIModel
		}
		llm, err := NewOpenAI(ClientConfig{APIKey: apiKey, BaseURL: cfg.LLMBaseURL, Model: model})
		if err != nil {
			return nil, err
		}
		return NewService(llm), nil

	case config.LLMAnthropic:
		apiKey, err := apiKey(cfg.LLMAPIKeyEnv, "ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		model := cfg.LLMModel
		if model == "" {
			model = DefaultAnthropicModel
		}
		llm, err := NewAnthropic(ClientConfig{APIKey: apiKey, BaseURL: cfg.LLMBaseURL, Model: model})
		if err != nil {
			return nil, err
		}
		return NewService(llm), nil

	case config.LLMGoogle:
		apiKey, err := apiKey(cfg.LLMAPIKeyEnv, "GEMINI_API_KEY")
		if err != nil {
			return nil, err
		}
		model := cfg.LLMModel
		if model == "" {
			model = DefaultGoogleModel
		}
		llm, err := NewGoogle(ClientConfig{APIKey: apiKey, BaseURL: cfg.LLMBaseURL, Model: model})
		if err != nil {
			return nil, err
		}
		return NewService(llm), nil

	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func apiKey(env, fallback string) (string, error) {
	if env == "" {
		env = fallback
	}
	key := os.Getenv(env)
	if key == "" {
		return "", fmt.Errorf("API key not found in environment variable: %s", env)
	}
	return key, nil
}

// Model names the underlying chat model.
func (s *Service) Model() string {
	return s.llm.Model()
}

// Enrich summarizes and classifies one page.
func (s *Service) Enrich(ctx context.Context, req Request) (*Result, error) {
	reply, err := s.llm.Complete(ctx, systemPrompt, buildPrompt(req))
	if err != nil {
		return nil, err
	}
	return ParseResult(reply)
}

func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", req.URL)
	if req.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", req.Title)
	}
	b.WriteString("\nContent:\n")
	b.WriteString(bookmark.Truncate(req.Text, MaxPromptChars))
	return b.String()
}

// ParseResult extracts the JSON object from a model reply. Code fences and
// surrounding prose are tolerated. A reply with no usable field is an error.
func ParseResult(reply string) (*Result, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in model reply")
	}

	var raw struct {
		Summary      string   `json:"summary"`
		SummaryShort string   `json:"summary_short"`
		Topic        string   `json:"topic"`
		Tags         []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parse model reply: %w", err)
	}

	summary := raw.Summary
	if summary == "" {
		summary = raw.SummaryShort
	}

	res := &Result{
		SummaryShort: bookmark.Truncate(strings.TrimSpace(summary), MaxSummaryChars),
		Topic:        bookmark.Truncate(strings.TrimSpace(raw.Topic), MaxTopicChars),
		Tags:         bookmark.NormalizeTags(raw.Tags),
	}
	if len(res.Tags) > MaxTags {
		res.Tags = res.Tags[:MaxTags]
	}

	if res.SummaryShort == "" && res.Topic == "" && len(res.Tags) == 0 {
		return nil, fmt.Errorf("model reply has no summary, topic, or tags")
	}
	return res, nil
}
