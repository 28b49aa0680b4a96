// Package main hosts the webcache service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes open, batch, search, cache and
//     health endpoints over chi. Errors carry typed kinds that map onto HTTP
//     statuses at the edge.
//   - Fetch pipeline: internal/fetch canonicalizes URLs, enforces the SSRF
//     guard at dial time, checks robots.txt through a 24h in-process cache,
//     and caps response size and redirects.
//   - Persistence: internal/cache stores content-addressed snapshots and
//     cached search responses in a single SQLite file (WAL). Migrations run
//     on open.
//   - Configuration & plumbing: Viper populates config from env/files with
//     the WEBCACHE_ prefix; zap provides structured logging; Prometheus
//     metrics are exported on /metrics.
package main

import (
	"os"

	"github.com/webcache-io/webcache/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
