// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Search  SearchConfig  `mapstructure:"search"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// FetchConfig governs the outbound fetch pipeline.
type FetchConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	MaxBytes       int64  `mapstructure:"max_bytes"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRedirects   int    `mapstructure:"max_redirects"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
}

// CacheConfig sets the snapshot store path and retention.
type CacheConfig struct {
	Path              string `mapstructure:"path"`
	DefaultTTLSeconds int    `mapstructure:"default_ttl_seconds"`
	MaxEntries        int64  `mapstructure:"max_entries"`
}

// BatchConfig bounds batch fan-out.
type BatchConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// SearchConfig configures the search provider and its result cache.
type SearchConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	APIKey          string `mapstructure:"api_key"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.user_agent", "webcache/1.0")
	v.SetDefault("fetch.max_bytes", 5*1024*1024)
	v.SetDefault("fetch.timeout_seconds", 20)
	v.SetDefault("fetch.max_redirects", 5)
	v.SetDefault("fetch.respect_robots", true)
	v.SetDefault("cache.path", "webcache.db")
	v.SetDefault("cache.default_ttl_seconds", 0)
	v.SetDefault("cache.max_entries", 0)
	v.SetDefault("batch.max_concurrency", 8)
	v.SetDefault("search.endpoint", "https://api.search.brave.com/res/v1/web/search")
	v.SetDefault("search.cache_ttl_seconds", 900)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch.max_bytes must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxRedirects < 0 {
		return fmt.Errorf("fetch.max_redirects must be >= 0")
	}
	if c.Cache.Path == "" {
		return fmt.Errorf("cache.path must be set")
	}
	if c.Batch.MaxConcurrency <= 0 {
		return fmt.Errorf("batch.max_concurrency must be > 0")
	}
	if c.Cache.DefaultTTLSeconds < 0 {
		return fmt.Errorf("cache.default_ttl_seconds must be >= 0")
	}
	return nil
}

// FetchTimeout converts the configured timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// DefaultTTL converts the snapshot TTL into a duration; zero means no expiry.
func (c Config) DefaultTTL() time.Duration {
	return time.Duration(c.Cache.DefaultTTLSeconds) * time.Second
}

// SearchCacheTTL converts the search cache TTL into a duration.
func (c Config) SearchCacheTTL() time.Duration {
	return time.Duration(c.Search.CacheTTLSeconds) * time.Second
}
