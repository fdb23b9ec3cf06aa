// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (DATABASE_URL, HAKU_* overrides)
//  2. Config file (~/.haku/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, model, temperature, embedder model
//   - Retrieval: chunk size/overlap, top-k, history bound
//   - Storage: PostgreSQL connection (see storage.go)
//   - Web: crawler limits for URL ingestion (see web.go)
//   - Tracing: OTLP exporter settings (see observability.go)
//
// Sensitive values (the database password) are masked in MarshalJSON and
// String; validation lives in validation.go and returns sentinel errors
// usable with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidChunking indicates chunk size or overlap is out of range.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidTopK indicates the retrieval top-k value is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultModelName is the default chat model.
	DefaultModelName = "gpt-4o-mini"

	// DefaultEmbedderModel is the default embedding model. It outputs
	// 1536-dimension vectors; the pgvector schema is fixed to match
	// (see knowledge.VectorDim).
	DefaultEmbedderModel = "text-embedding-3-small"

	// DefaultChunkSize is the default chunk size in characters for
	// document splitting.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the default overlap in characters between
	// consecutive chunks.
	DefaultChunkOverlap = 200

	// DefaultTopK is the default number of documents retrieved per query.
	DefaultTopK = 4

	// DefaultMaxHistory is the default number of conversation exchanges
	// (question + answer pairs) kept in memory.
	DefaultMaxHistory = 10

	// MaxAllowedHistory is the absolute maximum to prevent unbounded
	// prompt growth.
	MaxAllowedHistory = 500
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON as well.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "openai" (default), "googleai", "ollama"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // e.g. "gpt-4o-mini", "gemini-2.5-flash", "llama3.3"
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// SystemPrompt overrides the built-in assistant prompt when non-empty.
	SystemPrompt string `mapstructure:"system_prompt" json:"system_prompt"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Embedding and retrieval configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	ChunkSize     int    `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap  int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	TopK          int    `mapstructure:"top_k" json:"top_k"`

	// MaxHistory bounds the conversation history in exchanges.
	MaxHistory int `mapstructure:"max_history" json:"max_history"`

	// Lang selects the CLI/TUI language ("en" or "fi"). Assistant answers
	// follow the question's language regardless.
	Lang string `mapstructure:"lang" json:"lang"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Serve mode configuration
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`
	TrustProxy     bool    `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Forwarded-For (set true behind reverse proxy)

	// Web crawler configuration for URL ingestion (see web.go)
	Web WebConfig `mapstructure:"web" json:"web"`

	// Tracing configuration (see observability.go)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	// Configuration directory: ~/.haku/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".haku")

	// Ensure directory exists (0750: owner and group only)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// A missing file is not an error, defaults apply
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL wins over individual postgres_* values
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Fail fast on invalid values
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults. Temperature 0 keeps answers grounded in the retrieved
	// context rather than the model's imagination.
	viper.SetDefault("provider", ProviderOpenAI)
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("temperature", 0.0)
	viper.SetDefault("max_tokens", 2048)
	viper.SetDefault("system_prompt", "")

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Embedding and retrieval defaults
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("chunk_size", DefaultChunkSize)
	viper.SetDefault("chunk_overlap", DefaultChunkOverlap)
	viper.SetDefault("top_k", DefaultTopK)
	viper.SetDefault("max_history", DefaultMaxHistory)
	viper.SetDefault("lang", "fi")

	// PostgreSQL defaults for a local development database
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "haku")
	viper.SetDefault("postgres_password", "haku_dev_password")
	viper.SetDefault("postgres_db_name", "haku")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Serve mode defaults
	viper.SetDefault("rate_limit_rps", 10.0)
	viper.SetDefault("rate_limit_burst", 20)
	viper.SetDefault("trust_proxy", false)

	// Web crawler defaults
	viper.SetDefault("web.parallelism", 2)
	viper.SetDefault("web.delay_ms", 1000)
	viper.SetDefault("web.timeout_ms", 30000)
	viper.SetDefault("web.max_pages", 10)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "localhost:4318")
	viper.SetDefault("tracing.insecure", true)
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "haku")
}

// bindEnvVariables binds environment variable overrides explicitly.
//
// API keys are NOT bound here: OPENAI_API_KEY and GEMINI_API_KEY are read
// directly by the Genkit provider plugins. Validation checks their presence
// based on the selected provider.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics it's a bug in this file, not a runtime condition.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// AI provider and model overrides
	mustBind("provider", "HAKU_PROVIDER")
	mustBind("model_name", "HAKU_MODEL_NAME")
	mustBind("embedder_model", "HAKU_EMBEDDER_MODEL")
	mustBind("ollama_host", "HAKU_OLLAMA_HOST")

	// UI language
	mustBind("lang", "HAKU_LANG")

	// Serve mode (behind reverse proxy)
	mustBind("trust_proxy", "HAKU_TRUST_PROXY")

	// Standard OTLP endpoint variable
	mustBind("tracing.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	// NOTE: DATABASE_URL is handled separately in parseDatabaseURL because
	// it fans out into five postgres_* fields.
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) cannot collide with substrings of real secrets
// the way "****" or "[REDACTED]" can.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets keep the
// first and last 2 characters for debug utility.
//
// This defends against accidental logging of real secrets, nothing more.
// If logs are compromised, rotate the secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//
// When adding new sensitive fields, update this method or the nested struct's
// MarshalJSON.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "openai/gpt-4o-mini", "googleai/gemini-2.5-flash",
// "ollama/llama3.3". If ModelName already contains a "/", it is returned
// as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderGoogleAI:
		return ProviderGoogleAI + "/" + c.ModelName
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	default:
		return ProviderOpenAI + "/" + c.ModelName
	}
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
