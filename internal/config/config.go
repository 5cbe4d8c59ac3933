package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RepoDirName is the per-repository config directory searched by LoadWithRepo.
const RepoDirName = ".bookmark-lens"

// Embedding providers.
const (
	EmbeddingLocal  = "local"  // offline feature-hashing embedder
	EmbeddingOpenAI = "openai" // OpenAI embeddings API
	EmbeddingOllama = "ollama" // Ollama through its OpenAI-compatible endpoint
)

// LLM providers for enrichment. An empty provider disables enrichment.
const (
	LLMOpenAI    = "openai"
	LLMAnthropic = "anthropic"
	LLMGoogle    = "google"
)

// MaxSearchOverfetch bounds SearchOverfetch so a filtered search at the
// largest limit stays within the vector index's KNN cap.
const MaxSearchOverfetch = 50

// Config holds application configuration.
type Config struct {
	// EmbeddingProvider selects the embedding backend: local, openai, or ollama.
	EmbeddingProvider string `json:"embedding_provider,omitempty"`

	// EmbeddingModel is the provider model name. Empty uses the provider default.
	EmbeddingModel string `json:"embedding_model,omitempty"`

	// EmbeddingDimension fixes the vector size for this deployment.
	// 0 uses the default for the provider/model. Changing it after vectors
	// exist makes the vector index refuse to open.
	EmbeddingDimension int `json:"embedding_dimension,omitempty"`

	// EmbeddingBaseURL overrides the API endpoint (OpenAI-compatible servers, tests).
	EmbeddingBaseURL string `json:"embedding_base_url,omitempty"`

	// EmbeddingAPIKeyEnv names the environment variable holding the embedding API key.
	EmbeddingAPIKeyEnv string `json:"embedding_api_key_env,omitempty"`

	// LLMProvider enables enrichment (summary, topic, auto-tags): openai, anthropic or google.
	// Empty disables enrichment entirely; that is not an error.
	LLMProvider string `json:"llm_provider,omitempty"`

	// LLMModel is the chat model used for enrichment. Empty uses the provider default.
	LLMModel string `json:"llm_model,omitempty"`

	// LLMBaseURL overrides the LLM API endpoint.
	LLMBaseURL string `json:"llm_base_url,omitempty"`

	// LLMAPIKeyEnv names the environment variable holding the LLM API key.
	LLMAPIKeyEnv string `json:"llm_api_key_env,omitempty"`

	// Per-call timeouts for the external services, in seconds.
	FetchTimeoutSeconds  int `json:"fetch_timeout_seconds,omitempty"`
	EmbedTimeoutSeconds  int `json:"embed_timeout_seconds,omitempty"`
	EnrichTimeoutSeconds int `json:"enrich_timeout_seconds,omitempty"`

	// FetchRetries is how often a transient fetch failure is retried. Negative disables retries.
	FetchRetries int `json:"fetch_retries,omitempty"`

	// MaxFetchBytes caps the response body read from a fetched URL.
	MaxFetchBytes int64 `json:"max_fetch_bytes,omitempty"`

	// MaxContentChars caps the extracted text persisted with a bookmark.
	MaxContentChars int `json:"max_content_chars,omitempty"`

	// MaxEmbedChars caps the text sent to the embedding service.
	MaxEmbedChars int `json:"max_embed_chars,omitempty"`

	// SearchOverfetch multiplies the neighbour count when search filters are present,
	// to make up for hits the filters drop. Must be in [2, MaxSearchOverfetch].
	SearchOverfetch int `json:"search_overfetch,omitempty"`

	// FetchCacheTTLHours is how long fetched pages are reused. Negative disables the cache.
	FetchCacheTTLHours int `json:"fetch_cache_ttl_hours,omitempty"`

	// UserAgent is sent with every fetch.
	UserAgent string `json:"user_agent,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open metadata database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle metadata database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "bookmark".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingProvider:    EmbeddingLocal,
		FetchTimeoutSeconds:  15,
		EmbedTimeoutSeconds:  30,
		EnrichTimeoutSeconds: 30,
		FetchRetries:         2,
		MaxFetchBytes:        5 << 20,
		MaxContentChars:      20000,
		MaxEmbedChars:        8000,
		SearchOverfetch:      4,
		FetchCacheTTLHours:   24,
		UserAgent:            "bookmark-lens/1.0 (+https://github.com/hpungsan/bookmark-lens)",
		LogLevel:             "info",
	}
}

// BaseDir returns $BOOKMARK_LENS_HOME, or ~/.bookmark-lens when unset.
func BaseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("BOOKMARK_LENS_HOME")); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".bookmark-lens"), nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both the global dir and the nearest
// repo .bookmark-lens/config.json found walking upward from startDir.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .bookmark-lens/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, RepoDirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw returns a zero-valued config (not defaults) if the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	return &Config{
		EmbeddingProvider:    pickString(overlay.EmbeddingProvider, base.EmbeddingProvider),
		EmbeddingModel:       pickString(overlay.EmbeddingModel, base.EmbeddingModel),
		EmbeddingDimension:   pick(overlay.EmbeddingDimension, base.EmbeddingDimension),
		EmbeddingBaseURL:     pickString(overlay.EmbeddingBaseURL, base.EmbeddingBaseURL),
		EmbeddingAPIKeyEnv:   pickString(overlay.EmbeddingAPIKeyEnv, base.EmbeddingAPIKeyEnv),
		LLMProvider:          pickString(overlay.LLMProvider, base.LLMProvider),
		LLMModel:             pickString(overlay.LLMModel, base.LLMModel),
		LLMBaseURL:           pickString(overlay.LLMBaseURL, base.LLMBaseURL),
		LLMAPIKeyEnv:         pickString(overlay.LLMAPIKeyEnv, base.LLMAPIKeyEnv),
		FetchTimeoutSeconds:  pick(overlay.FetchTimeoutSeconds, base.FetchTimeoutSeconds),
		EmbedTimeoutSeconds:  pick(overlay.EmbedTimeoutSeconds, base.EmbedTimeoutSeconds),
		EnrichTimeoutSeconds: pick(overlay.EnrichTimeoutSeconds, base.EnrichTimeoutSeconds),
		FetchRetries:         pick(overlay.FetchRetries, base.FetchRetries),
		MaxFetchBytes:        pick(overlay.MaxFetchBytes, base.MaxFetchBytes),
		MaxContentChars:      pick(overlay.MaxContentChars, base.MaxContentChars),
		MaxEmbedChars:        pick(overlay.MaxEmbedChars, base.MaxEmbedChars),
		SearchOverfetch:      pick(overlay.SearchOverfetch, base.SearchOverfetch),
		FetchCacheTTLHours:   pick(overlay.FetchCacheTTLHours, base.FetchCacheTTLHours),
		UserAgent:            pickString(overlay.UserAgent, base.UserAgent),
		LogLevel:             pickString(overlay.LogLevel, base.LogLevel),
		DBMaxOpenConns:       pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:       pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		DisabledTools:        mergeStringSlice(base.DisabledTools, overlay.DisabledTools),
		DisabledTypes:        mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes),
	}
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	switch c.EmbeddingProvider {
	case EmbeddingLocal, EmbeddingOpenAI, EmbeddingOllama:
	default:
		return fmt.Errorf("embedding_provider must be one of: local, openai, ollama (got %q)", c.EmbeddingProvider)
	}
	switch c.LLMProvider {
	case "", LLMOpenAI, LLMAnthropic, LLMGoogle:
	default:
		return fmt.Errorf("llm_provider must be empty or one of: openai, anthropic, google (got %q)", c.LLMProvider)
	}
	if c.EmbeddingDimension < 0 {
		return fmt.Errorf("embedding_dimension must be non-negative")
	}
	if c.FetchTimeoutSeconds <= 0 || c.EmbedTimeoutSeconds <= 0 || c.EnrichTimeoutSeconds <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.SearchOverfetch < 2 || c.SearchOverfetch > MaxSearchOverfetch {
		return fmt.Errorf("search_overfetch must be between 2 and %d", MaxSearchOverfetch)
	}
	if c.MaxFetchBytes <= 0 || c.MaxContentChars <= 0 || c.MaxEmbedChars <= 0 {
		return fmt.Errorf("size limits must be positive")
	}
	return nil
}

// FetchTimeout returns the per-fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// EmbedTimeout returns the per-embedding timeout.
func (c *Config) EmbedTimeout() time.Duration {
	return time.Duration(c.EmbedTimeoutSeconds) * time.Second
}

// EnrichTimeout returns the per-enrichment timeout.
func (c *Config) EnrichTimeout() time.Duration {
	return time.Duration(c.EnrichTimeoutSeconds) * time.Second
}

// FetchCacheTTL returns the fetch cache lifetime; 0 means the cache is disabled.
func (c *Config) FetchCacheTTL() time.Duration {
	if c.FetchCacheTTLHours <= 0 {
		return 0
	}
	return time.Duration(c.FetchCacheTTLHours) * time.Hour
}

// pick returns overlay if non-zero, else base.
func pick[T int | int64](overlay, base T) T {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return strings.TrimSpace(overlay)
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string(nil), a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
