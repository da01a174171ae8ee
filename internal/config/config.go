package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/hostgate/domain-proxy/internal/domain"
	"github.com/hostgate/domain-proxy/internal/middleware"
	"github.com/hostgate/domain-proxy/internal/store"
)

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig                     `yaml:"server"`
	Probe     domain.ProbeConfig               `yaml:"probe"`
	Index     domain.IndexConfig               `yaml:"index"`
	Breaker   domain.BreakerConfig             `yaml:"circuit_breaker"`
	Cache     CacheConfig                      `yaml:"cache"`
	Writer    domain.RateWriterConfig          `yaml:"rate_writer"`
	Redis     store.RedisConfig                `yaml:"redis"`
	RateLimit middleware.ClientRateLimitConfig `yaml:"rate_limit"`
	Admin     middleware.AdminAuthConfig       `yaml:"admin"`
	Logging   LoggingConfig                    `yaml:"logging"`
}

// ServerConfig contains HTTP server specific configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CacheConfig contains the per-class cache layers
type CacheConfig struct {
	Routes    domain.CacheConfig `yaml:"routes"`
	Snapshots domain.CacheConfig `yaml:"snapshots"`
	Hashes    domain.CacheConfig `yaml:"hashes"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	File   string `yaml:"file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Probe: domain.ProbeConfig{
			Timeout:      5 * time.Second,
			ManifestPath: "/manifest.json",
			PluginPrefix: "os-",
		},
		Index: domain.IndexConfig{
			AttemptTimeout: 3 * time.Second,
			SnapshotTTL:    72 * time.Hour,
		},
		Breaker: domain.BreakerConfig{
			Enabled:          true,
			FailureThreshold: 3,
			OpenDuration:     30 * time.Second,
			Window:           60 * time.Second,
		},
		Cache: CacheConfig{
			Routes:    domain.CacheConfig{TTL: 10 * time.Minute, Prefix: "proxy:route:"},
			Snapshots: domain.CacheConfig{TTL: 72 * time.Hour, Prefix: "proxy:snapshot:"},
			Hashes:    domain.CacheConfig{TTL: 24 * time.Hour, Prefix: "proxy:hash:"},
		},
		Writer: domain.RateWriterConfig{
			BaseInterval:      10 * time.Second,
			MinInterval:       time.Second,
			MaxInterval:       5 * time.Minute,
			TargetDailyWrites: 5000,
		},
		RateLimit: middleware.ClientRateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 100,
			BurstSize:         200,
		},
		Admin: middleware.AdminAuthConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadFromEnv loads configuration from environment variables with defaults
func LoadFromEnv() (*Config, error) {
	config := DefaultConfig()
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// applyEnv overrides file values with environment variables when set.
func (c *Config) applyEnv() {
	if port := os.Getenv("PROXY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if addr := os.Getenv("PROXY_REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("PROXY_REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if primary := os.Getenv("PROXY_PRIMARY_URL_TEMPLATE"); primary != "" {
		c.Probe.PrimaryURLTemplate = primary
	}
	if secondary := os.Getenv("PROXY_SECONDARY_URL_TEMPLATE"); secondary != "" {
		c.Probe.SecondaryURLTemplate = secondary
	}
	if secret := os.Getenv("PROXY_ADMIN_SECRET"); secret != "" {
		c.Admin.Enabled = true
		c.Admin.SecretKey = secret
	}
	if logLevel := os.Getenv("PROXY_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Validate validates the configuration for correctness
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Probe.PrimaryURLTemplate == "" {
		return fmt.Errorf("probe.primary_url_template is required")
	}
	if c.Probe.SecondaryURLTemplate == "" {
		return fmt.Errorf("probe.secondary_url_template is required")
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive: %v", c.Probe.Timeout)
	}
	if c.Probe.PluginPrefix == "" {
		return fmt.Errorf("probe.plugin_prefix is required")
	}

	if c.Index.AttemptTimeout <= 0 {
		return fmt.Errorf("index.attempt_timeout must be positive")
	}

	if c.Breaker.Enabled {
		if c.Breaker.FailureThreshold <= 0 {
			return fmt.Errorf("circuit_breaker.failure_threshold must be positive")
		}
		if c.Breaker.OpenDuration <= 0 {
			return fmt.Errorf("circuit_breaker.open_duration must be positive")
		}
		if c.Breaker.Window <= 0 {
			return fmt.Errorf("circuit_breaker.window must be positive")
		}
	}

	for name, cache := range map[string]domain.CacheConfig{
		"routes":    c.Cache.Routes,
		"snapshots": c.Cache.Snapshots,
		"hashes":    c.Cache.Hashes,
	} {
		if cache.TTL <= 0 {
			return fmt.Errorf("cache.%s.ttl must be positive", name)
		}
		if cache.Prefix == "" {
			return fmt.Errorf("cache.%s.prefix cannot be empty", name)
		}
	}

	if c.Writer.BaseInterval <= 0 {
		return fmt.Errorf("rate_writer.base_interval must be positive")
	}
	if c.Writer.MinInterval <= 0 || c.Writer.MaxInterval < c.Writer.MinInterval {
		return fmt.Errorf("rate_writer intervals must satisfy 0 < min <= max")
	}
	if c.Writer.TargetDailyWrites <= 0 {
		return fmt.Errorf("rate_writer.target_daily_writes must be positive")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limit.requests_per_second must be positive")
		}
		if c.RateLimit.BurstSize <= 0 {
			return fmt.Errorf("rate_limit.burst_size must be positive")
		}
	}

	if c.Admin.Enabled && c.Admin.SecretKey == "" {
		return fmt.Errorf("admin.secret_key is required when admin API is enabled")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}
