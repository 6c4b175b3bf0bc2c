// Package config provides configuration loading.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration with priority: defaults -> env-specific file -> env vars.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if err := loadConfigFile(v, "configs/config.yaml", false); err != nil {
		return nil, err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := fmt.Sprintf("configs/config.%s.yaml", env)
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile reads a file, expands env placeholders, and merges it into viper.
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := expandEnv(string(content))

	reader := strings.NewReader(expanded)
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv replaces ${VAR} / ${VAR:default} placeholders in s.
func expandEnv(s string) string {
	re := regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		submatch := re.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		val, ok := os.LookupEnv(key)
		if ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		return match
	})
}

// MustLoad loads configuration, panicking on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults seeds viper with fallback values for every config leaf.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "summary-orchestrator")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "120s")
	v.SetDefault("server.http.idle_timeout", "120s")

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "summary_orchestrator")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 50)
	v.SetDefault("database.postgres.max_idle_conns", 10)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")
	v.SetDefault("database.postgres.conn_max_idle_time", "5m")

	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 100)
	v.SetDefault("cache.redis.min_idle_conns", 10)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	// LLM: "small" ~4k context, "large" ~16k context, mirroring the
	// GPT-3.5-turbo / GPT-3.5-turbo-16k pair the prompts were tuned against.
	v.SetDefault("llm.default_provider", "small")
	v.SetDefault("llm.providers.small.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.providers.small.model", "gpt-3.5-turbo")
	v.SetDefault("llm.providers.small.max_tokens", 4096)
	v.SetDefault("llm.providers.small.token_budget", 3584)
	v.SetDefault("llm.providers.small.top_p_deterministic", 0.1)
	v.SetDefault("llm.providers.small.top_p_freeform", 0.8)
	v.SetDefault("llm.providers.large.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.providers.large.model", "gpt-3.5-turbo-16k")
	v.SetDefault("llm.providers.large.max_tokens", 16384)
	v.SetDefault("llm.providers.large.token_budget", 14336)
	v.SetDefault("llm.providers.large.top_p_deterministic", 0.1)
	v.SetDefault("llm.providers.large.top_p_freeform", 0.8)
	v.SetDefault("llm.control_timeout", "10s")
	v.SetDefault("llm.call_timeout", "90s")
	v.SetDefault("llm.retry_attempts", 5)
	v.SetDefault("llm.retry_wait", "1s")
	v.SetDefault("llm.transport_retry", 2)

	v.SetDefault("captions.language_preference", []string{
		"en", "es", "pt", "hi", "ko", "zh-Hans", "zh-Hant",
		"zh-CN", "zh-HK", "zh-TW", "zh", "ar", "id", "fr", "ja", "ru", "de",
	})
	v.SetDefault("captions.fetch_timeout", "15s")

	v.SetDefault("summarize.summarizing_ttl", "300s")
	v.SetDefault("summarize.no_captions_ttl", "24h")
	v.SetDefault("summarize.subscribe_idle", "300s")
	v.SetDefault("summarize.resummarize_min_total", 10)
	v.SetDefault("summarize.resummarize_bad_ratio", 0.20)
	v.SetDefault("summarize.refine_concurrency", 8)

	v.SetDefault("messaging.redis_stream.max_len", 10000)
	v.SetDefault("messaging.redis_stream.consumer_group_prefix", "vidsum")
	v.SetDefault("messaging.redis_stream.block_timeout", "5s")
	v.SetDefault("messaging.redis_stream.claim_interval", "30s")
	v.SetDefault("messaging.redis_stream.retry_limit", 3)
	v.SetDefault("messaging.redis_stream.retry_backoff.initial", "1s")
	v.SetDefault("messaging.redis_stream.retry_backoff.max", "30s")
	v.SetDefault("messaging.redis_stream.retry_backoff.multiplier", 2.0)

	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.logging.output", "stdout")
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.exporter", "otlp")
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.port", 9464)
	v.SetDefault("observability.metrics.path", "/metrics")

	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"*"})
}
