package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/structchat/structchat"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Transport TransportConfig `mapstructure:"transport"`
	Audit     AuditConfig     `mapstructure:"audit"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
	Schemas   SchemasConfig   `mapstructure:"schemas"`
}

// EngineConfig stores retry budgets and audit labelling for the chat engine.
type EngineConfig struct {
	NetworkAttempts    int           `mapstructure:"network_attempts"`     // Attempts per exchange before an Http error
	CorrectionAttempts int           `mapstructure:"correction_attempts"`  // Self-correction rounds per chat
	DefaultLabel       string        `mapstructure:"default_label"`        // Audit label when no instruction is given
	RetryBackoff       time.Duration `mapstructure:"retry_backoff"`        // Base delay between attempts (0 = back-to-back)
	RetryJitterPercent int           `mapstructure:"retry_jitter_percent"` // Jitter applied when RetryBackoff > 0
}

// TransportConfig stores model endpoint details.
type TransportConfig struct {
	Provider string        `mapstructure:"provider"` // "gemini"
	BaseURL  string        `mapstructure:"base_url"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuditConfig selects where finished exchanges are persisted.
type AuditConfig struct {
	Store    string        `mapstructure:"store"` // "none", "libsql", "sqlite", "postgres", "redis"
	DSN      string        `mapstructure:"dsn"`
	RedisURL string        `mapstructure:"redis_url"`
	RedisTTL time.Duration `mapstructure:"redis_ttl"`
}

// RateLimitConfig throttles outbound model requests.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// MetricsConfig controls Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// LogConfig controls the root zerolog logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// SchemasConfig points at the schema registry directory.
type SchemasConfig struct {
	Dir string `mapstructure:"dir"`
}

var auditStores = map[string]bool{
	"none":     true,
	"libsql":   true,
	"sqlite":   true,
	"postgres": true,
	"redis":    true,
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.AutomaticEnv()
	// engine.network_attempts becomes STRUCTCHAT_ENGINE_NETWORK_ATTEMPTS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.network_attempts", internal.DefaultAttempts)
	v.SetDefault("engine.correction_attempts", internal.DefaultAttempts)
	v.SetDefault("engine.default_label", internal.DefaultLabel)
	v.SetDefault("engine.retry_backoff", "0s")
	v.SetDefault("engine.retry_jitter_percent", 10)

	v.SetDefault("transport.provider", "gemini")
	v.SetDefault("transport.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("transport.model", "gemini-2.0-flash")
	v.SetDefault("transport.api_key", "")
	v.SetDefault("transport.timeout", "60s")

	v.SetDefault("audit.store", internal.DefaultDatabaseType)
	v.SetDefault("audit.dsn", internal.DefaultDatabaseDSN)
	v.SetDefault("audit.redis_url", "redis://localhost:6379/0")
	v.SetDefault("audit.redis_ttl", "0s") // no expiry

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 5.0)
	v.SetDefault("rate_limit.burst", 5)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", internal.DefaultAppName)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("schemas.dir", internal.DefaultSchemaDir)
}

// Validate rejects settings the engine cannot run with. Attempt budgets are
// clamped later by the factory, so only structural errors are reported here.
func (c *Config) Validate() error {
	if !auditStores[c.Audit.Store] {
		return fmt.Errorf("unknown audit store %q", c.Audit.Store)
	}
	if c.Transport.Provider != "gemini" {
		return fmt.Errorf("unknown transport provider %q", c.Transport.Provider)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive when enabled, got %v", c.RateLimit.RequestsPerSecond)
	}
	return nil
}
