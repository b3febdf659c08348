package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from an optional config file and from SHELF_
// environment variables, with env taking precedence. It returns a validated
// Config or an error describing what is missing or malformed.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("SHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults suffice.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateProviderSettings(&cfg.LLM); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the defaults every deployment can run with, short
// of backend credentials.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("llm.provider", "openai")
	// Empty defaults keep these keys visible to AutomaticEnv during Unmarshal.
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.fallback_provider", "")
	v.SetDefault("llm.fallback_api_key", "")
	v.SetDefault("llm.fallback_base_url", "")
	v.SetDefault("llm.fallback_model", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_delay", "2s")
	v.SetDefault("llm.call_timeout", "10s")
	v.SetDefault("llm.total_budget", "20s")

	v.SetDefault("task.worker_count", 3)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.retention_window", "1h")
	v.SetDefault("task.sweep_interval", "1m")

	v.SetDefault("dedup.window", "10s")

	v.SetDefault("matcher.min_query_runes", 3)
	v.SetDefault("matcher.score_threshold", 0.30)
}

// validateProviderSettings enforces the per-provider constraints that struct
// tags cannot express.
func validateProviderSettings(llm *LLMConfig) error {
	if (llm.Provider == "spark" || llm.Provider == "qwen") && llm.BaseURL == "" {
		return fmt.Errorf("llm provider %q requires base_url", llm.Provider)
	}
	if llm.FallbackProvider != "" {
		if llm.FallbackProvider == llm.Provider {
			return errors.New("fallback provider must differ from the primary provider")
		}
		if llm.FallbackAPIKey == "" {
			return errors.New("fallback provider requires fallback_api_key")
		}
		if llm.FallbackModel == "" {
			return errors.New("fallback provider requires fallback_model")
		}
		if (llm.FallbackProvider == "spark" || llm.FallbackProvider == "qwen") &&
			llm.FallbackBaseURL == "" {
			return fmt.Errorf("fallback provider %q requires fallback_base_url", llm.FallbackProvider)
		}
	}
	return nil
}
