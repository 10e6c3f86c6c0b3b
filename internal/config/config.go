package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Generation  GenerationConfig `mapstructure:"generation"`
	Telemetry   TelemetryConfig  `mapstructure:"telemetry"`
	Influx      InfluxConfig     `mapstructure:"influx"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GenerationConfig holds service limits and the defaults the CLI and batch
// endpoints start from. Per-request options are still required on the
// single-generation API.
type GenerationConfig struct {
	DefaultLength  int     `mapstructure:"default_length"`
	MaxLength      int     `mapstructure:"max_length"`
	MaxBatch       int     `mapstructure:"max_batch"`
	Concurrency    int     `mapstructure:"concurrency"`
	TrendExp       bool    `mapstructure:"trend_exp"`
	NoiseLowRatio  float64 `mapstructure:"noise_low_ratio"`
	NoiseModRatio  float64 `mapstructure:"noise_moderate_ratio"`
	Transition     bool    `mapstructure:"transition"`
	RandomWalk     bool    `mapstructure:"random_walk"`
	CacheTTL       string  `mapstructure:"cache_ttl"`
	OutputDecimals int32   `mapstructure:"output_decimals"`
}

type TelemetryConfig struct {
	SentryEnabled  bool    `mapstructure:"sentry_enabled"`
	SentryDSN      string  `mapstructure:"sentry_dsn"`
	SampleRate     float64 `mapstructure:"sample_rate"`
	OTLPEnabled    bool    `mapstructure:"otlp_enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	TraceExporter  string  `mapstructure:"trace_exporter"`
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
}

type InfluxConfig struct {
	URL         string `mapstructure:"url"`
	Token       string `mapstructure:"token" json:"-" yaml:"-"`
	Org         string `mapstructure:"org"`
	Bucket      string `mapstructure:"bucket"`
	Measurement string `mapstructure:"measurement"`
}

// CacheTTLDuration returns the parsed cache TTL
func (g GenerationConfig) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(g.CacheTTL)
	if err != nil {
		return 0
	}
	return d
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("influx.token", "INFLUXDB_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind INFLUXDB_TOKEN environment variable: %w", err)
	}
	if err := v.BindEnv("telemetry.sentry_dsn", "SENTRY_DSN"); err != nil {
		return nil, fmt.Errorf("failed to bind SENTRY_DSN environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks cross-field constraints that viper cannot express
func (c *Config) Validate() error {
	g := c.Generation
	if g.DefaultLength <= 0 {
		return fmt.Errorf("generation.default_length must be positive, got %d", g.DefaultLength)
	}
	if g.MaxLength < g.DefaultLength {
		return fmt.Errorf("generation.max_length (%d) must be >= default_length (%d)", g.MaxLength, g.DefaultLength)
	}
	if g.MaxBatch <= 0 {
		return fmt.Errorf("generation.max_batch must be positive, got %d", g.MaxBatch)
	}
	if g.Concurrency <= 0 {
		return fmt.Errorf("generation.concurrency must be positive, got %d", g.Concurrency)
	}
	if g.NoiseLowRatio < 0 || g.NoiseModRatio < 0 || g.NoiseLowRatio+g.NoiseModRatio > 1 {
		return fmt.Errorf("generation noise ratios must be non-negative and sum to at most 1, got (%g, %g)",
			g.NoiseLowRatio, g.NoiseModRatio)
	}
	if g.CacheTTL != "" {
		if _, err := time.ParseDuration(g.CacheTTL); err != nil {
			return fmt.Errorf("invalid generation.cache_ttl: %w", err)
		}
	}
	if g.OutputDecimals < 0 {
		return errors.New("generation.output_decimals must not be negative")
	}
	switch c.Telemetry.TraceExporter {
	case "", "none", "otlp", "stdout":
	default:
		return fmt.Errorf("unknown telemetry.trace_exporter %q", c.Telemetry.TraceExporter)
	}
	if c.Telemetry.SentryEnabled && c.Telemetry.SentryDSN == "" && c.Environment != "development" {
		return errors.New("SENTRY_DSN environment variable is required when sentry is enabled outside development")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Environment
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Generation
	v.SetDefault("generation.default_length", 100)
	v.SetDefault("generation.max_length", 100000)
	v.SetDefault("generation.max_batch", 256)
	v.SetDefault("generation.concurrency", 8)
	v.SetDefault("generation.trend_exp", true)
	v.SetDefault("generation.noise_low_ratio", 0.6)
	v.SetDefault("generation.noise_moderate_ratio", 0.3)
	v.SetDefault("generation.transition", true)
	v.SetDefault("generation.random_walk", false)
	v.SetDefault("generation.cache_ttl", "1h")
	v.SetDefault("generation.output_decimals", 6)

	// Telemetry
	v.SetDefault("telemetry.sentry_enabled", false)
	v.SetDefault("telemetry.sentry_dsn", "")
	v.SetDefault("telemetry.sample_rate", 0.2)
	v.SetDefault("telemetry.otlp_enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.trace_exporter", "none")
	v.SetDefault("telemetry.service_name", "synthseries")
	v.SetDefault("telemetry.service_version", "1.0.0")

	// Influx
	v.SetDefault("influx.url", "http://localhost:8086")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "")
	v.SetDefault("influx.bucket", "synthetic")
	v.SetDefault("influx.measurement", "synthetic_series")
}
