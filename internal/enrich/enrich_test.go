package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hpungsan/bookmark-lens/internal/config"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	reply     string
	err       error
	gotSystem string
	gotUser   string
}

func (f *fakeLLM) Complete(_ context.Context, system, user string) (string, error) {
	f.gotSystem, f.gotUser = system, user
	return f.reply, f.err
}

func (f *fakeLLM) Model() string { return "fake" }

func TestParseResult(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    *Result
		wantErr bool
	}{
		{
			name:  "plain json",
			reply: `{"summary": "A guide to MCP.", "topic": "AI tooling", "tags": ["MCP", "ai tools"]}`,
			want:  &Result{SummaryShort: "A guide to MCP.", Topic: "AI tooling", Tags: []string{"mcp", "ai-tools"}},
		},
		{
			name:  "code fence and prose",
			reply: "Sure!\n```json\n{\"summary\": \"S\", \"topic\": \"T\", \"tags\": []}\n```",
			want:  &Result{SummaryShort: "S", Topic: "T", Tags: []string{}},
		},
		{
			name:  "summary_short key",
			reply: `{"summary_short": "S"}`,
			want:  &Result{SummaryShort: "S", Tags: []string{}},
		},
		{
			name:  "tags capped and deduped",
			reply: `{"tags": ["a1","A1","b2","c3","d4","e5","f6"]}`,
			want:  &Result{Tags: []string{"a1", "b2", "c3", "d4", "e5"}},
		},
		{name: "no json", reply: "I cannot help with that", wantErr: true},
		{name: "broken json", reply: `{"summary": }`, wantErr: true},
		{name: "empty object", reply: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResult(tt.reply)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseResult_TruncatesSummary(t *testing.T) {
	long := strings.Repeat("x", MaxSummaryChars+50)
	got, err := ParseResult(`{"summary": "` + long + `"}`)
	require.NoError(t, err)
	require.Len(t, got.SummaryShort, MaxSummaryChars)
}

func TestService_Enrich(t *testing.T) {
	llm := &fakeLLM{reply: `{"summary": "S", "topic": "T", "tags": ["go"]}`}
	svc := NewService(llm)

	res, err := svc.Enrich(context.Background(), Request{
		URL:   "https://example.com/post",
		Title: "Post",
		Text:  strings.Repeat("word ", 5000),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"go"}, res.Tags)
	require.Equal(t, "fake", svc.Model())

	require.Contains(t, llm.gotSystem, "JSON")
	require.Contains(t, llm.gotUser, "URL: https://example.com/post")
	require.Contains(t, llm.gotUser, "Title: Post")
	require.Less(t, len(llm.gotUser), MaxPromptChars+200)
}

func TestService_EnrichError(t *testing.T) {
	svc := NewService(&fakeLLM{err: errors.New("rate limited")})

	_, err := svc.Enrich(context.Background(), Request{URL: "https://example.com"})
	require.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		svc, err := New(config.DefaultConfig())
		require.NoError(t, err)
		require.Nil(t, svc)
	})

	t.Run("openai", func(t *testing.T) {
		t.Setenv("LENS_TEST_LLM_KEY", "sk-test")
		cfg := config.DefaultConfig()
		cfg.LLMProvider = config.LLMOpenAI
		cfg.LLMAPIKeyEnv = "LENS_TEST_LLM_KEY"

		svc, err := New(cfg)
		require.NoError(t, err)
		require.Equal(t, DefaultOpenAIModel, svc.Model())
	})

	t.Run("anthropic with model", func(t *testing.T) {
		t.Setenv("LENS_TEST_LLM_KEY", "sk-test")
		cfg := config.DefaultConfig()
		cfg.LLMProvider = config.LLMAnthropic
		cfg.LLMAPIKeyEnv = "LENS_TEST_LLM_KEY"
		cfg.LLMModel = "claude-test"

		svc, err := New(cfg)
		require.NoError(t, err)
		require.Equal(t, "claude-test", svc.Model())
	})

	t.Run("missing key", func(t *testing.T) {
		t.Setenv("LENS_TEST_LLM_KEY", "")
		cfg := config.DefaultConfig()
		cfg.LLMProvider = config.LLMAnthropic
		cfg.LLMAPIKeyEnv = "LENS_TEST_LLM_KEY"

		_, err := New(cfg)
		require.Error(t, err)
	})

	t.Run("google", func(t *testing.T) {
		t.Setenv("LENS_TEST_GEMINI_KEY", "k")
		svc, err := New(&config.Config{LLMProvider: config.LLMGoogle, LLMAPIKeyEnv: "LENS_TEST_GEMINI_KEY"})
		require.NoError(t, err)
		require.Equal(t, DefaultGoogleModel, svc.Model())
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLMProvider = "gemini"

		_, err := New(cfg)
		require.Error(t, err)
	})
}
