package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders committed",
	}, []string{"backend"})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected or rolled back orders",
	}, []string{"backend", "reason"})

	OrderLineItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_line_items_total",
		Help: "Total number of line-item rows written, one per unit",
	}, []string{"backend"})

	OrderWriteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_write_latency_seconds",
		Help:    "Latency of the order write transaction",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})

	SourceProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "source_probes_total",
		Help: "Schema probes by resolved source variant",
	}, []string{"variant"})

	SourceCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "source_cache_hits_total",
		Help: "Source variant lookups served from a cache",
	}, []string{"layer"})

	ConsoleCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "console_commands_total",
		Help: "Console commands executed",
	}, []string{"backend", "operation", "status"})

	StatsRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monthly_stats_refresh_total",
		Help: "Materialized view refresh attempts",
	}, []string{"status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
