package domain

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete CAPINTEL configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// LLM holds the text generation backend settings
	LLM LLMConfig `json:"llm"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// AsyncAudit moves audit persistence off the request path onto the
	// event bus worker.
	AsyncAudit bool `json:"asyncAudit"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LLMConfig holds the chat-completions backend settings. The backend speaks
// the OpenAI-compatible wire shape; OpenRouter is the default provider.
type LLMConfig struct {
	APIKey         string  `json:"-"`
	BaseURL        string  `json:"baseUrl"`
	Model          string  `json:"model"`
	Temperature    float64 `json:"temperature"`
	TopP           float64 `json:"topP"`
	MaxTokens      int     `json:"maxTokens"`
	TimeoutSeconds float64 `json:"timeoutSeconds"`
	AppTitle       string  `json:"appTitle"`
}

// Timeout returns the configured request timeout as a duration.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// DefaultConfig returns the single-node default configuration:
// SQLite repository, in-memory cache, channel event bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 60,
		},
		LLM: LLMConfig{
			BaseURL:        "https://openrouter.ai/api/v1",
			Model:          "mistralai/mistral-7b-instruct",
			Temperature:    0.0,
			TopP:           1.0,
			MaxTokens:      350,
			TimeoutSeconds: 30.0,
			AppTitle:       "CAPINTEL",
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./capintel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "capintel",
		},
	}
}

// LoadConfig builds the configuration from the environment on top of the
// defaults. A missing OPENROUTER_API_KEY is a fatal startup condition, never
// a per-request error.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	cfg.LLM.APIKey = strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is not set")
	}

	envString(&cfg.LLM.BaseURL, "OPENROUTER_BASE_URL")
	envString(&cfg.LLM.Model, "OPENROUTER_MODEL")
	envFloat(&cfg.LLM.Temperature, "LLM_TEMPERATURE")
	envFloat(&cfg.LLM.TopP, "LLM_TOP_P")
	envInt(&cfg.LLM.MaxTokens, "LLM_MAX_TOKENS")
	envFloat(&cfg.LLM.TimeoutSeconds, "LLM_TIMEOUT_SECONDS")

	envString(&cfg.Server.Host, "CAPINTEL_HOST")
	envInt(&cfg.Server.Port, "CAPINTEL_PORT")

	envString(&cfg.Repository.Driver, "CAPINTEL_DB_DRIVER")
	envString(&cfg.Repository.SQLitePath, "CAPINTEL_SQLITE_PATH")
	envString(&cfg.Repository.PostgresHost, "CAPINTEL_PG_HOST")
	envInt(&cfg.Repository.PostgresPort, "CAPINTEL_PG_PORT")
	envString(&cfg.Repository.PostgresUser, "CAPINTEL_PG_USER")
	envString(&cfg.Repository.PostgresPassword, "CAPINTEL_PG_PASSWORD")
	envString(&cfg.Repository.PostgresDB, "CAPINTEL_PG_DB")
	envString(&cfg.Repository.PostgresSSLMode, "CAPINTEL_PG_SSLMODE")

	envString(&cfg.Cache.Type, "CAPINTEL_CACHE")
	envString(&cfg.Cache.RedisAddr, "CAPINTEL_REDIS_ADDR")
	envString(&cfg.Cache.RedisPassword, "CAPINTEL_REDIS_PASSWORD")
	envInt(&cfg.Cache.RedisDB, "CAPINTEL_REDIS_DB")

	envString(&cfg.EventBus.Type, "CAPINTEL_BUS")
	envString(&cfg.EventBus.NATSUrl, "CAPINTEL_NATS_URL")
	envString(&cfg.EventBus.NATSToken, "CAPINTEL_NATS_TOKEN")

	cfg.AsyncAudit = os.Getenv("CAPINTEL_ASYNC_AUDIT") == "true"

	envString(&cfg.Logging.Level, "LOG_LEVEL")
	cfg.Tracing.Enabled = os.Getenv("CAPINTEL_TRACING") == "true"

	return cfg, nil
}

func envString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
