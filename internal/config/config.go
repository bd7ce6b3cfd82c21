// Package config provides configuration management for the search engine.
// It defines configuration structures and default values for crawling,
// indexing and query parameters.
package config

import "time"

// Config holds the full engine configuration.
type Config struct {
	// Crawling parameters
	SeedURLs       []string      `mapstructure:"seed_urls" yaml:"seed_urls"`             // Starting URLs for crawling
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`         // Number of concurrent fetch workers
	CrawlDelay     time.Duration `mapstructure:"crawl_delay" yaml:"crawl_delay"`         // Default minimum delay between requests to the same domain
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // HTTP request timeout
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`           // HTTP User-Agent header
	MaxPages       int           `mapstructure:"max_pages" yaml:"max_pages"`             // Stop after N pages (0=unlimited)

	// Content limits
	MaxContentBytes int64 `mapstructure:"max_content_bytes" yaml:"max_content_bytes"` // Abort fetches larger than this
	MaxContentChars int   `mapstructure:"max_content_chars" yaml:"max_content_chars"` // Truncate extracted text to this length

	// Link discovery
	AllowedExternalDomains []string `mapstructure:"allowed_external_domains" yaml:"allowed_external_domains"` // External domains worth following
	MaxPagesPerDomain      int      `mapstructure:"max_pages_per_domain" yaml:"max_pages_per_domain"`         // Stored-page cap per domain

	// Retry policy
	MaxRetries    int           `mapstructure:"max_retries" yaml:"max_retries"`       // Failed entries are retried up to this cap
	RetryCooldown time.Duration `mapstructure:"retry_cooldown" yaml:"retry_cooldown"` // Delay before a failed entry becomes eligible again

	// Database configuration
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"` // Path to SQLite database file

	// Logging
	LogLevel string `mapstructure:"log_level" yaml:"log_level"` // debug, info, warn, error
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`   // Optional log file path
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:       2,
		CrawlDelay:        1 * time.Second,
		RequestTimeout:    30 * time.Second,
		UserAgent:         "WebSearch/1.0",
		MaxPages:          0, // unlimited
		MaxContentBytes:   1 << 20,
		MaxContentChars:   10000,
		MaxPagesPerDomain: 1000,
		MaxRetries:        5,
		RetryCooldown:     1 * time.Hour,
		DatabasePath:      "./websearch.db",
		LogLevel:          "info",
		AllowedExternalDomains: []string{
			"wikipedia.org", "github.com", "stackoverflow.com", "medium.com",
			"bbc.com", "reuters.com", "theguardian.com", "news.ycombinator.com",
			"arxiv.org", "scholar.google.com", "jstor.org",
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Note: SeedURLs are optional - the scheduler can resume from an existing queue

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if c.MaxContentBytes <= 0 {
		return ErrInvalidContentLimit
	}

	// Enforce minimum delay of 100ms for proper queue coordination
	if c.CrawlDelay < 100*time.Millisecond {
		c.CrawlDelay = 100 * time.Millisecond
	}

	if c.DatabasePath == "" {
		return ErrEmptyDatabasePath
	}

	return nil
}
