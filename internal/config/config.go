// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.calm/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, generation model, intermediate (judge/router) model, embedder
//   - Loop: relevance threshold, retry budget, document quota, temperature
//   - Storage: PostgreSQL + pgvector connection (see storage.go)
//   - Serve: HTTP address, rate limiting, proxy trust
//   - Observability: OTLP trace export (see observability.go)
//
// Security: sensitive values (passwords) are masked in MarshalJSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates a model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidThreshold indicates the relevance threshold is out of [0,1].
	ErrInvalidThreshold = errors.New("invalid relevance threshold")

	// ErrInvalidMaxRetries indicates the retry budget is out of range.
	ErrInvalidMaxRetries = errors.New("invalid max retries")

	// ErrInvalidDocNumber indicates the document quota is out of range.
	ErrInvalidDocNumber = errors.New("invalid document quota")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Loop parameter bounds. Requests outside these bounds are rejected at the
// API boundary before the agent engine ever sees them.
const (
	MinMaxRetries = 1
	MaxMaxRetries = 5

	MinDocNumber = 1
	MaxDocNumber = 10
)

// DefaultGeminiEmbedderModel is the default Gemini embedder model.
// gemini-embedding-001 supports truncation to 768 dimensions via
// OutputDimensionality, matching the pgvector schema in db/migrations.
const DefaultGeminiEmbedderModel = "gemini-embedding-001"

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// AI provider and model configuration
	Provider          string  `mapstructure:"provider" json:"provider"`                     // "gemini" (default), "ollama", "openai"
	ModelName         string  `mapstructure:"model_name" json:"model_name"`                 // Final answer synthesis model
	IntermediateModel string  `mapstructure:"intermediate_model" json:"intermediate_model"` // Routing / grading / expansion model
	EmbedderModel     string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature       float64 `mapstructure:"temperature" json:"temperature"`

	// Retrieval loop defaults (overridable per request)
	Threshold  float64 `mapstructure:"threshold" json:"threshold"`     // Relevance acceptance threshold in [0,1]
	MaxRetries int     `mapstructure:"max_retries" json:"max_retries"` // Retrieval attempts budget
	DocNumber  int     `mapstructure:"doc_number" json:"doc_number"`   // Accepted document quota

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Serve configuration
	ServeAddr  string  `mapstructure:"serve_addr" json:"serve_addr"`
	RateLimit  float64 `mapstructure:"rate_limit" json:"rate_limit"`   // Requests per second per IP
	RateBurst  int     `mapstructure:"rate_burst" json:"rate_burst"`   // Token bucket burst per IP
	TrustProxy bool    `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (behind a reverse proxy)

	// Observability configuration (see observability.go)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".calm")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("intermediate_model", "gemini-2.5-flash-lite")
	viper.SetDefault("embedder_model", DefaultGeminiEmbedderModel)
	viper.SetDefault("temperature", 0.65)

	// Loop defaults (mirroring the request body defaults)
	viper.SetDefault("threshold", 0.65)
	viper.SetDefault("max_retries", 2)
	viper.SetDefault("doc_number", 4)

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "calm")
	viper.SetDefault("postgres_password", "calm_dev_password")
	viper.SetDefault("postgres_db_name", "calm")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Serve defaults
	viper.SetDefault("serve_addr", "127.0.0.1:3400")
	viper.SetDefault("rate_limit", 2.0)
	viper.SetDefault("rate_burst", 5)
	viper.SetDefault("trust_proxy", false)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "localhost:4318")
	viper.SetDefault("tracing.service_name", "calm-agent")
	viper.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds environment variables explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via viper.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "CALM_PROVIDER")
	mustBind("model_name", "CALM_MODEL_NAME")
	mustBind("intermediate_model", "CALM_INTERMEDIATE_MODEL")
	mustBind("embedder_model", "CALM_EMBEDDER_MODEL")
	mustBind("ollama_host", "CALM_OLLAMA_HOST")
	mustBind("postgres_password", "CALM_POSTGRES_PASSWORD")
	mustBind("serve_addr", "CALM_SERVE_ADDR")
	mustBind("rate_limit", "CALM_RATE_LIMIT")
	mustBind("rate_burst", "CALM_RATE_BURST")
	mustBind("trust_proxy", "CALM_TRUST_PROXY")
	mustBind("tracing.enabled", "CALM_TRACING_ENABLED")
	mustBind("tracing.endpoint", "CALM_TRACING_ENDPOINT")
}

// MarshalJSON masks sensitive fields when the configuration is serialized
// (e.g. for debug dumps).
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "********"
	}
	return json.Marshal(masked)
}
