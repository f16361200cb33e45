// Package config provides configuration loading and validation for the matcher service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
// Values come from (highest first) bound flags, environment variables, the
// optional YAML file and the defaults in setDefaults.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// StoreConfig selects and locates the backing store
type StoreConfig struct {
	Driver      string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Driver postgres"`
	SQLitePath  string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Mode     string `mapstructure:"mode" validate:"oneof=dev prod"`
	HashSalt string `mapstructure:"hash_salt"`
	Debug    bool   `mapstructure:"debug"`
}

// MatchingConfig tunes the matching engine
type MatchingConfig struct {
	EmbeddingDimension  int           `mapstructure:"embedding_dimension" validate:"min=1"`
	Workers             int           `mapstructure:"workers" validate:"min=1"`
	ScoringConcurrency  int           `mapstructure:"scoring_concurrency" validate:"min=1"`
	RunTimeout          time.Duration `mapstructure:"run_timeout"`
	ResultWriteAttempts int           `mapstructure:"result_write_attempts" validate:"min=1,max=10"`
}

// DispatchConfig selects how started jobs reach a runner
type DispatchConfig struct {
	Mode    string `mapstructure:"mode" validate:"oneof=pool amqp"`
	AMQPURL string `mapstructure:"amqp_url" validate:"required_if=Mode amqp"`
	Queue   string `mapstructure:"queue" validate:"required"`
}

// TracingConfig controls OpenTelemetry tracing
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter" validate:"oneof=stdout otlp"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
	ServiceName string  `mapstructure:"service_name" validate:"required"`
}

// RateLimitConfig holds request rate limits
type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DefaultLimit  int           `mapstructure:"default_limit" validate:"min=0"`
	DefaultWindow time.Duration `mapstructure:"default_window"`
	StartLimit    int           `mapstructure:"start_limit" validate:"min=0"`
	StartWindow   time.Duration `mapstructure:"start_window"`
}

// flagBindings maps CLI flag names onto config keys
var flagBindings = map[string]string{
	"port":         "server.port",
	"database-url": "store.database_url",
	"store":        "store.driver",
	"sqlite-path":  "store.sqlite_path",
	"log-mode":     "log.mode",
	"debug":        "log.debug",
	"dispatch":     "dispatch.mode",
}

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "matcher.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.mode", "dev")
	v.SetDefault("log.debug", false)
	v.SetDefault("log.hash_salt", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("matching.embedding_dimension", 1536)
	v.SetDefault("matching.workers", 4)
	v.SetDefault("matching.scoring_concurrency", 8)
	v.SetDefault("matching.run_timeout", 10*time.Minute)
	v.SetDefault("matching.result_write_attempts", 3)
	v.SetDefault("dispatch.mode", "pool")
	v.SetDefault("dispatch.amqp_url", "")
	v.SetDefault("dispatch.queue", "matching_jobs")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.sample_ratio", 0.1)
	v.SetDefault("tracing.service_name", "cofounder-matcher")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.default_limit", 1000)
	v.SetDefault("rate_limit.default_window", time.Minute)
	v.SetDefault("rate_limit.start_limit", 10)
	v.SetDefault("rate_limit.start_window", time.Hour)
}

// Load reads configuration from the optional YAML file at path, the environment
// and any recognised flags in flags (which may be nil).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("store.database_url", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// JWT settings are checked separately by the commands that need them.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.Matching.RunTimeout < 0 {
		return fmt.Errorf("config error: 'matching.run_timeout' must be non-negative")
	}
	if c.RateLimit.Enabled && (c.RateLimit.DefaultWindow <= 0 || c.RateLimit.StartWindow <= 0) {
		return fmt.Errorf("config error: rate limit windows must be positive")
	}
	return nil
}
