package config

import "time"

// Config holds all application configuration, grouped by concern.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	LLM     LLMConfig     `mapstructure:"llm" validate:"required"`
	Task    TaskConfig    `mapstructure:"task" validate:"required"`
	Dedup   DedupConfig   `mapstructure:"dedup" validate:"required"`
	Matcher MatcherConfig `mapstructure:"matcher" validate:"required"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// LLMConfig contains the reason-generation backend settings. Provider picks
// the primary backend; FallbackProvider is optional and is tried when the
// primary fails.
type LLMConfig struct {
	// Provider is the primary backend: "openai", "spark", "qwen" use the
	// chat-completion wire format, "gemini" the Gemini API.
	Provider string `mapstructure:"provider" validate:"required,oneof=openai spark qwen gemini"`

	APIKey string `mapstructure:"api_key" validate:"required"`

	// BaseURL overrides the backend endpoint. Required for spark and qwen,
	// which serve the chat-completion contract on vendor hosts.
	BaseURL string `mapstructure:"base_url"`

	Model       string  `mapstructure:"model" validate:"required"`
	Temperature float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `mapstructure:"max_tokens" validate:"gte=0"`

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`

	// RetryDelay is the base backoff delay between attempts.
	RetryDelay time.Duration `mapstructure:"retry_delay" validate:"gte=0"`

	// CallTimeout bounds a single backend attempt.
	CallTimeout time.Duration `mapstructure:"call_timeout" validate:"gt=0"`

	// TotalBudget bounds the whole retry sequence for one book.
	TotalBudget time.Duration `mapstructure:"total_budget" validate:"gt=0"`

	// FallbackProvider optionally names a second backend tried when the
	// primary fails. Empty disables fallback.
	FallbackProvider string `mapstructure:"fallback_provider" validate:"omitempty,oneof=openai spark qwen gemini"`
	FallbackAPIKey   string `mapstructure:"fallback_api_key"`
	FallbackBaseURL  string `mapstructure:"fallback_base_url"`
	FallbackModel    string `mapstructure:"fallback_model"`
}

// TaskConfig contains the background task pipeline settings.
type TaskConfig struct {
	WorkerCount     int           `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize       int           `mapstructure:"queue_size" validate:"required,gt=0"`
	RetentionWindow time.Duration `mapstructure:"retention_window" validate:"required,gt=0"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval" validate:"required,gt=0"`
}

// DedupConfig contains the duplicate-submission suppression settings.
type DedupConfig struct {
	Window time.Duration `mapstructure:"window" validate:"required,gt=0"`
}

// MatcherConfig contains the fuzzy matcher policy.
type MatcherConfig struct {
	MinQueryRunes  int     `mapstructure:"min_query_runes" validate:"required,gt=0"`
	ScoreThreshold float64 `mapstructure:"score_threshold" validate:"required,gt=0,lte=1"`
}
