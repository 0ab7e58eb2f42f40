package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by the journal API.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "watchctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	watchlistRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchctl",
			Subsystem: "watchlist",
			Name:      "runs_total",
			Help:      "Watchlist generation runs by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	symbolsAnalyzed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchctl",
			Subsystem: "watchlist",
			Name:      "symbols_analyzed_total",
			Help:      "Symbols analyzed by setup outcome.",
		},
		[]string{"outcome"},
	)
	discordPosts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchctl",
			Subsystem: "notify",
			Name:      "discord_posts_total",
			Help:      "Discord webhook posts by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)
	polygonRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchctl",
			Subsystem: "polygon",
			Name:      "requests_total",
			Help:      "Polygon API requests by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)
	polygonDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "watchctl",
			Subsystem: "polygon",
			Name:      "request_duration_seconds",
			Help:      "Polygon API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			watchlistRuns,
			symbolsAnalyzed,
			discordPosts,
			polygonRequests,
			polygonDuration,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordWatchlistRun(kind, outcome string) {
	RegisterMetrics()
	watchlistRuns.WithLabelValues(kind, outcome).Inc()
}

func RecordSymbolAnalyzed(outcome string) {
	RegisterMetrics()
	symbolsAnalyzed.WithLabelValues(outcome).Inc()
}

func RecordDiscordPost(channel string, success bool) {
	RegisterMetrics()
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	discordPosts.WithLabelValues(channel, outcome).Inc()
}

func RecordPolygonRequest(endpoint string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	polygonRequests.WithLabelValues(endpoint, statusLabel).Inc()
	polygonDuration.WithLabelValues(endpoint, statusLabel).Observe(duration.Seconds())
}
