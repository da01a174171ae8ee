package domain

import "time"

// BreakerConfig contains circuit breaker configuration
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	OpenDuration     time.Duration `yaml:"open_duration"`
	Window           time.Duration `yaml:"window"`
}

// CacheConfig contains per-domain cache configuration. Route, sitemap and
// plugin-map caches carry distinct TTLs and key prefixes.
type CacheConfig struct {
	TTL    time.Duration `yaml:"ttl"`
	Prefix string        `yaml:"prefix"`
}

// RateWriterConfig contains adaptive rate-limited writer configuration
type RateWriterConfig struct {
	BaseInterval      time.Duration `yaml:"base_interval"`
	MinInterval       time.Duration `yaml:"min_interval"`
	MaxInterval       time.Duration `yaml:"max_interval"`
	TargetDailyWrites int           `yaml:"target_daily_writes"`
}

// ProbeConfig contains existence probe configuration. The URL templates
// expand %s to the hostname (or resolved unit name) being probed.
type ProbeConfig struct {
	Timeout              time.Duration `yaml:"timeout"`
	PrimaryURLTemplate   string        `yaml:"primary_url_template"`
	SecondaryURLTemplate string        `yaml:"secondary_url_template"`
	ManifestPath         string        `yaml:"manifest_path"`
	PluginPrefix         string        `yaml:"plugin_prefix"`
}

// IndexConfig contains entry-document fallback configuration
type IndexConfig struct {
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	SnapshotTTL    time.Duration `yaml:"snapshot_ttl"`
}
