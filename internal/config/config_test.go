package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
fetch:
  user_agent: custom-agent
  max_bytes: 1048576
  timeout_seconds: 45
  max_redirects: 3
  respect_robots: false
cache:
  path: /tmp/snapshots.db
  default_ttl_seconds: 3600
  max_entries: 5000
batch:
  max_concurrency: 4
search:
  endpoint: https://search.example.com/v1
  api_key: secret
  cache_ttl_seconds: 120
logging:
  development: true
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Fetch.UserAgent != "custom-agent" || cfg.Fetch.MaxBytes != 1048576 {
		t.Fatalf("expected fetch overrides to apply: %+v", cfg.Fetch)
	}
	if cfg.Fetch.RespectRobots {
		t.Fatal("expected respect_robots override to false")
	}
	if cfg.Cache.Path != "/tmp/snapshots.db" || cfg.Cache.MaxEntries != 5000 {
		t.Fatalf("expected cache overrides to apply: %+v", cfg.Cache)
	}
	if cfg.Batch.MaxConcurrency != 4 {
		t.Fatalf("expected batch.max_concurrency 4, got %d", cfg.Batch.MaxConcurrency)
	}
	if cfg.Search.APIKey != "secret" {
		t.Fatal("expected search.api_key to be loaded")
	}
	if got := cfg.FetchTimeout(); got != 45*time.Second {
		t.Fatalf("expected fetch timeout 45s, got %v", got)
	}
	if got := cfg.DefaultTTL(); got != time.Hour {
		t.Fatalf("expected default TTL 1h, got %v", got)
	}
	if got := cfg.SearchCacheTTL(); got != 2*time.Minute {
		t.Fatalf("expected search cache TTL 2m, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Fetch.UserAgent != "webcache/1.0" {
		t.Fatalf("expected default user agent, got %q", cfg.Fetch.UserAgent)
	}
	if cfg.Fetch.MaxBytes != 5*1024*1024 {
		t.Fatalf("expected default max_bytes 5MiB, got %d", cfg.Fetch.MaxBytes)
	}
	if !cfg.Fetch.RespectRobots {
		t.Fatal("expected robots compliance on by default")
	}
	if cfg.DefaultTTL() != 0 {
		t.Fatalf("expected no default TTL, got %v", cfg.DefaultTTL())
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server: ServerConfig{Port: 8080},
		Fetch:  FetchConfig{MaxBytes: 1024, TimeoutSeconds: 10},
		Cache:  CacheConfig{Path: "cache.db"},
		Batch:  BatchConfig{MaxConcurrency: 2},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "invalid max bytes",
			cfg: func() Config {
				c := base
				c.Fetch.MaxBytes = 0
				return c
			}(),
			want: "fetch.max_bytes",
		},
		{
			name: "invalid timeout",
			cfg: func() Config {
				c := base
				c.Fetch.TimeoutSeconds = 0
				return c
			}(),
			want: "fetch.timeout_seconds",
		},
		{
			name: "negative redirects",
			cfg: func() Config {
				c := base
				c.Fetch.MaxRedirects = -1
				return c
			}(),
			want: "fetch.max_redirects",
		},
		{
			name: "missing cache path",
			cfg: func() Config {
				c := base
				c.Cache.Path = ""
				return c
			}(),
			want: "cache.path",
		},
		{
			name: "invalid batch concurrency",
			cfg: func() Config {
				c := base
				c.Batch.MaxConcurrency = 0
				return c
			}(),
			want: "batch.max_concurrency",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
