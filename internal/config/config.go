// Package config loads the server's typed Config from defaults, an
// optional YAML file, and SYMCACHED_-prefixed environment variables, in
// ascending precedence, then validates it with struct tags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the top-level, static configuration for symcache-server.
type Config struct {
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	SymbolServer SymbolServerConfig `mapstructure:"symbol_server" yaml:"symbol_server"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	Transcoder   TranscoderConfig   `mapstructure:"transcoder" yaml:"transcoder"`
	Queue        QueueConfig        `mapstructure:"queue" yaml:"queue"`
	Sweep        SweepConfig        `mapstructure:"sweep" yaml:"sweep"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics      MetricsConfig      `mapstructure:"metrics" yaml:"metrics"`
	Auth         AuthConfig         `mapstructure:"auth" yaml:"auth"`
}

// ServerConfig controls the HTTP artifact-serving listener.
type ServerConfig struct {
	// ListenAddress is the host:port the artifact-serving HTTP listener binds.
	ListenAddress string `mapstructure:"listen_address" validate:"required" yaml:"listen_address"`

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// RequestTimeout bounds one HTTP request end to end, including a
	// synchronous transcode; it is intentionally generous.
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"required,gt=0" yaml:"request_timeout"`

	// MinFormatVersion is the configured minimum supported format version
	// (the §4.1 version gate). Required as a semver string.
	MinFormatVersion string `mapstructure:"min_format_version" validate:"required" yaml:"min_format_version"`

	// AsyncThreshold is the configured async-eligibility threshold version
	// (exclusive).
	AsyncThreshold string `mapstructure:"async_threshold" validate:"required" yaml:"async_threshold"`
}

// SymbolServerConfig configures the upstream symbol-server client.
type SymbolServerConfig struct {
	// BaseURL is the upstream symbol server's base address. One of the
	// four options spec.md §6 requires.
	BaseURL string `mapstructure:"base_url" validate:"required,url" yaml:"base_url"`

	// RateLimitPerSecond bounds outbound requests; 0 disables limiting.
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second" validate:"gte=0" yaml:"rate_limit_per_second"`

	// RateLimitBurst is the limiter's instantaneous burst allowance.
	RateLimitBurst int `mapstructure:"rate_limit_burst" validate:"gte=0" yaml:"rate_limit_burst"`
}

// CacheConfig configures the filesystem cache repository.
type CacheConfig struct {
	// Root is the cache root directory. One of the four required options
	// (spec.md §6's SymCacheDirectory); must exist at startup.
	Root string `mapstructure:"root" validate:"required" yaml:"root"`
}

// TranscoderConfig configures the external transcoder binary.
type TranscoderConfig struct {
	// Path is the transcoder binary's path. One of the four required
	// options (spec.md §6's TranscoderPath); must exist at startup.
	Path string `mapstructure:"path" validate:"required" yaml:"path"`

	// Version is the exact format version the configured binary emits.
	// One of the four required options (spec.md §6's TranscoderVersion).
	// This, not the client's requested version, is what populates every
	// artifact.Key the orchestrator and cache construct.
	Version string `mapstructure:"version" validate:"required" yaml:"version"`
}

// QueueConfig configures the background work queue.
type QueueConfig struct {
	// WorkerCount overrides the worker pool size; 0 means runtime.NumCPU().
	WorkerCount int `mapstructure:"worker_count" validate:"gte=0" yaml:"worker_count"`
}

// SweepConfig configures the orphaned-staging-directory sweeper.
type SweepConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// CronSchedule is a robfig/cron expression; default "@hourly".
	CronSchedule string `mapstructure:"cron_schedule" validate:"required" yaml:"cron_schedule"`

	// MaxAge is how old a .temp/<random> directory must be before the
	// sweeper considers it orphaned rather than in-flight.
	MaxAge time.Duration `mapstructure:"max_age" validate:"required,gt=0" yaml:"max_age"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry tracing and continuous profiling.
type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	ServiceName    string  `mapstructure:"service_name" yaml:"service_name"`
	Endpoint       string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure       bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate     float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
	ProfilingURL   string  `mapstructure:"profiling_url" yaml:"profiling_url"`
	ProfilingEnabled bool  `mapstructure:"profiling_enabled" yaml:"profiling_enabled"`
}

// MetricsConfig configures the Prometheus scrape listener, mounted
// separately from the artifact-serving listener so scraping never
// contends with its connection pool.
type MetricsConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	ListenAddress string `mapstructure:"listen_address" validate:"omitempty" yaml:"listen_address"`
}

// AuthConfig optionally configures a bearer (JWT/HS256) middleware mounted
// in front of the artifact routes; the core protocol is unaffected either way.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Secret  string `mapstructure:"secret" validate:"required_if=Enabled true" yaml:"secret"`
	Issuer  string `mapstructure:"issuer" yaml:"issuer"`
}

// Load reads configuration from configPath (if non-empty) layered over
// SYMCACHED_-prefixed environment variables and compiled-in defaults,
// applies defaults for unset optional fields, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	applyDefaults(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// setupViper wires environment-variable binding and, when a config file is
// in play, file discovery. AutomaticEnv only merges a SYMCACHED_-prefixed
// environment variable into Unmarshal's output for a key viper already
// knows about (from a default, a bound env, a flag, or the config file) —
// bindEnvKeys registers every nested key up front so an env-only
// deployment (no config file at all) still decodes correctly.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SYMCACHED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("symcached")
		v.SetConfigType("yaml")
	}
}

// bindEnvKeys explicitly binds every mapstructure key the Config tree
// exposes, by mapstructure tag path, so SYMCACHED_<SECTION>_<FIELD> is
// recognized regardless of whether a config file is present.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"server.listen_address", "server.shutdown_timeout", "server.request_timeout",
		"server.min_format_version", "server.async_threshold",
		"symbol_server.base_url", "symbol_server.rate_limit_per_second", "symbol_server.rate_limit_burst",
		"cache.root",
		"transcoder.path", "transcoder.version",
		"queue.worker_count",
		"sweep.enabled", "sweep.cron_schedule", "sweep.max_age",
		"logging.level", "logging.format", "logging.output",
		"telemetry.enabled", "telemetry.service_name", "telemetry.endpoint", "telemetry.insecure",
		"telemetry.sample_rate", "telemetry.profiling_url", "telemetry.profiling_enabled",
		"metrics.enabled", "metrics.listen_address",
		"auth.enabled", "auth.secret", "auth.issuer",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: reading config file: %w", err)
	}
	return true, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress:     ":8080",
			ShutdownTimeout:   10 * time.Second,
			RequestTimeout:    5 * time.Minute,
			MinFormatVersion:  "3.0.0",
			AsyncThreshold:    "3.1.0",
		},
		SymbolServer: SymbolServerConfig{
			RateLimitPerSecond: 50,
			RateLimitBurst:     100,
		},
		Sweep: SweepConfig{
			Enabled:      false,
			CronSchedule: "@hourly",
			MaxAge:       time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "symcached",
			Endpoint:    "localhost:4317",
			Insecure:    true,
			SampleRate:  1.0,
		},
		Metrics: MetricsConfig{
			Enabled:       true,
			ListenAddress: ":9090",
		},
	}
}

// applyDefaults fills zero-valued optional fields that weren't set by a
// config file or environment variable, mirroring the decode-then-backfill
// shape the same loader uses for every section.
func applyDefaults(cfg *Config) {
	defaults := defaultConfig()

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = defaults.Server.ListenAddress
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = defaults.Server.RequestTimeout
	}
	if cfg.Server.MinFormatVersion == "" {
		cfg.Server.MinFormatVersion = defaults.Server.MinFormatVersion
	}
	if cfg.Server.AsyncThreshold == "" {
		cfg.Server.AsyncThreshold = defaults.Server.AsyncThreshold
	}
	if cfg.SymbolServer.RateLimitBurst == 0 {
		cfg.SymbolServer.RateLimitBurst = defaults.SymbolServer.RateLimitBurst
	}
	if cfg.Sweep.CronSchedule == "" {
		cfg.Sweep.CronSchedule = defaults.Sweep.CronSchedule
	}
	if cfg.Sweep.MaxAge == 0 {
		cfg.Sweep.MaxAge = defaults.Sweep.MaxAge
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = defaults.Logging.Output
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = defaults.Telemetry.ServiceName
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = defaults.Telemetry.Endpoint
	}
	if cfg.Metrics.ListenAddress == "" {
		cfg.Metrics.ListenAddress = defaults.Metrics.ListenAddress
	}
}
