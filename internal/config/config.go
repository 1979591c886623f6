// Package config provides configuration management for the citegraph service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CITEGRAPH"

// Cache backend names.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendBadger = "badger"
)

// Config holds all configuration for the citegraph service.
type Config struct {
	// Server contains HTTP and metrics server configuration.
	Server ServerConfig `mapstructure:"server"`

	// Logging contains logging configuration.
	Logging LoggingConfig `mapstructure:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Cache selects and configures the cache backend.
	Cache CacheConfig `mapstructure:"cache"`

	// OpenAlex configures the upstream API client.
	OpenAlex OpenAlexConfig `mapstructure:"openalex"`

	// Graph configures citation graph assembly.
	Graph GraphConfig `mapstructure:"graph"`

	// Search configures the search endpoint.
	Search SearchConfig `mapstructure:"search"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	// Host is the server host address.
	Host string `mapstructure:"host"`

	// HTTPPort is the port for the HTTP API.
	HTTPPort int `mapstructure:"http_port"`

	// MetricsPort is the port for the Prometheus metrics endpoint.
	MetricsPort int `mapstructure:"metrics_port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Graph assembly can page through thousands of citations, so this must
	// exceed Graph.Timeout.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `mapstructure:"format"`

	// Output is the output destination (stdout, stderr).
	Output string `mapstructure:"output"`

	// AddSource adds source file and line number to log entries.
	AddSource bool `mapstructure:"add_source"`

	// TimeFormat is the time format for timestamps.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled indicates whether metrics collection is enabled.
	Enabled bool `mapstructure:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`

	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// CacheConfig holds cache configuration.
type CacheConfig struct {
	// Backend is one of memory, redis, badger.
	Backend string `mapstructure:"backend"`

	// PaperTTL is the lifetime of cached papers. Search pages live half as long.
	PaperTTL time.Duration `mapstructure:"paper_ttl"`

	// SweepInterval is how often the memory backend evicts expired entries.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// Redis configures the redis backend.
	Redis RedisConfig `mapstructure:"redis"`

	// Badger configures the badger backend.
	Badger BadgerConfig `mapstructure:"badger"`
}

// SearchTTL returns the lifetime of cached search pages.
func (c CacheConfig) SearchTTL() time.Duration {
	return c.PaperTTL / 2
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr string `mapstructure:"addr"`

	// Password is loaded exclusively from CITEGRAPH_CACHE_REDIS_PASSWORD.
	Password string `mapstructure:"-"`

	DB int `mapstructure:"db"`
}

// BadgerConfig holds embedded store settings.
type BadgerConfig struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

// OpenAlexConfig holds upstream client settings.
type OpenAlexConfig struct {
	// BaseURL is the OpenAlex API base URL.
	BaseURL string `mapstructure:"base_url"`

	// Email identifies the service for the polite pool.
	Email string `mapstructure:"email"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout"`

	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`

	// BurstSize is the rate limiter burst.
	BurstSize int `mapstructure:"burst_size"`

	// MaxRetries bounds retries of transient failures.
	MaxRetries int `mapstructure:"max_retries"`

	// RetryDelay is the initial backoff delay.
	RetryDelay time.Duration `mapstructure:"retry_delay"`

	// MaxRetryDelay caps the backoff delay.
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay"`
}

// GraphConfig holds citation graph assembly settings.
type GraphConfig struct {
	// ReferenceBatchSize is the number of ids per reference lookup.
	ReferenceBatchSize int `mapstructure:"reference_batch_size"`

	// CitationPerPage is the citation page size.
	CitationPerPage int `mapstructure:"citation_per_page"`

	// CitationWindow is the number of citation pages fetched concurrently.
	CitationWindow int `mapstructure:"citation_window"`

	// WindowDelay is the pause between citation windows.
	WindowDelay time.Duration `mapstructure:"window_delay"`

	// MaxBatchIDs bounds the number of ids accepted by the batch endpoint.
	MaxBatchIDs int `mapstructure:"max_batch_ids"`

	// Timeout bounds a whole graph assembly. Zero disables the deadline.
	Timeout time.Duration `mapstructure:"timeout"`
}

// SearchConfig holds search settings.
type SearchConfig struct {
	DefaultPerPage int `mapstructure:"default_per_page"`
	MaxPerPage     int `mapstructure:"max_per_page"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load reads configuration from defaults, an optional config.yaml, and
// CITEGRAPH_* environment variables.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is like Load but reads the config file at path when non-empty.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/citegraph-service")
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Cache.Redis.Password = os.Getenv(EnvPrefix + "_CACHE_REDIS_PASSWORD")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 5000)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "3m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "citegraph")
	v.SetDefault("metrics.path", "/metrics")

	// Cache defaults
	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("cache.paper_ttl", "1h")
	v.SetDefault("cache.sweep_interval", "1m")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.badger.path", "data/cache")
	v.SetDefault("cache.badger.in_memory", false)

	// OpenAlex defaults
	v.SetDefault("openalex.base_url", "https://api.openalex.org")
	v.SetDefault("openalex.email", "")
	v.SetDefault("openalex.timeout", "30s")
	v.SetDefault("openalex.rate_limit", 10.0)
	v.SetDefault("openalex.burst_size", 10)
	v.SetDefault("openalex.max_retries", 3)
	v.SetDefault("openalex.retry_delay", "1s")
	v.SetDefault("openalex.max_retry_delay", "30s")

	// Graph assembly defaults
	v.SetDefault("graph.reference_batch_size", 25)
	v.SetDefault("graph.citation_per_page", 200)
	v.SetDefault("graph.citation_window", 10)
	v.SetDefault("graph.window_delay", "1s")
	v.SetDefault("graph.max_batch_ids", 50)
	v.SetDefault("graph.timeout", "2m")

	// Search defaults
	v.SetDefault("search.default_per_page", 25)
	v.SetDefault("search.max_per_page", 200)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}
	if c.Server.HTTPPort == c.Server.MetricsPort {
		return fmt.Errorf("HTTP and metrics ports must differ: %d", c.Server.HTTPPort)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "warning": true, "error": true,
		"fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch strings.ToLower(c.Cache.Backend) {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.New("cache.redis.addr is required for the redis backend")
		}
	case CacheBackendBadger:
		if c.Cache.Badger.Path == "" && !c.Cache.Badger.InMemory {
			return errors.New("cache.badger.path is required unless in_memory is set")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s", c.Cache.Backend)
	}
	if c.Cache.PaperTTL <= 0 {
		return fmt.Errorf("cache.paper_ttl must be positive: %s", c.Cache.PaperTTL)
	}

	if c.OpenAlex.BaseURL == "" {
		return errors.New("openalex.base_url is required")
	}
	if c.OpenAlex.RateLimit <= 0 {
		return fmt.Errorf("openalex.rate_limit must be positive: %v", c.OpenAlex.RateLimit)
	}
	if c.OpenAlex.MaxRetries < 0 {
		return fmt.Errorf("openalex.max_retries must not be negative: %d", c.OpenAlex.MaxRetries)
	}

	if c.Graph.ReferenceBatchSize <= 0 {
		return fmt.Errorf("graph.reference_batch_size must be positive: %d", c.Graph.ReferenceBatchSize)
	}
	if c.Graph.CitationPerPage <= 0 || c.Graph.CitationPerPage > 200 {
		return fmt.Errorf("graph.citation_per_page must be between 1 and 200: %d", c.Graph.CitationPerPage)
	}
	if c.Graph.CitationWindow <= 0 {
		return fmt.Errorf("graph.citation_window must be positive: %d", c.Graph.CitationWindow)
	}
	if c.Graph.MaxBatchIDs <= 0 {
		return fmt.Errorf("graph.max_batch_ids must be positive: %d", c.Graph.MaxBatchIDs)
	}

	if c.Search.MaxPerPage <= 0 || c.Search.MaxPerPage > 200 {
		return fmt.Errorf("search.max_per_page must be between 1 and 200: %d", c.Search.MaxPerPage)
	}
	if c.Search.DefaultPerPage <= 0 || c.Search.DefaultPerPage > c.Search.MaxPerPage {
		return fmt.Errorf("search.default_per_page must be between 1 and %d: %d", c.Search.MaxPerPage, c.Search.DefaultPerPage)
	}

	return nil
}
