package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalFetches tracks the number of pipeline fetches attempted.
	TotalFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webcache_fetches_total",
		Help: "The total number of fetch pipeline requests.",
	})
	// TotalFetchErrors tracks fetches that ended in any error kind.
	TotalFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webcache_fetch_errors_total",
		Help: "The total number of failed fetch pipeline requests.",
	})
	// TotalRobotsDenied tracks refusals by robots.txt policy.
	TotalRobotsDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webcache_robots_denied_total",
		Help: "The total number of fetches denied by robots.txt.",
	})
	// TotalSSRFBlocked tracks refusals by the address guard.
	TotalSSRFBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webcache_ssrf_blocked_total",
		Help: "The total number of fetches blocked by SSRF protection.",
	})
)
