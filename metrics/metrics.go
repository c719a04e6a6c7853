// Package metrics provides Prometheus metrics for the substance mapper.
// HTTP metrics cover the tool server:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Mapping metrics cover the upstream calls and the lookup caches:
//   - upstream_requests_total: Counter with service and outcome labels
//   - upstream_request_duration_seconds: Histogram with service label
//   - cache_lookups_total: Counter with cache and result labels
//   - match_strategy_total: Counter of the strategy that resolved a substance
//   - atc_source_total: Counter of where ATC codes came from
//   - tool_invocations_total: Counter with tool and outcome labels
//   - upstream_up: Gauge set by the probe job, 1 when reachable
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	UpstreamRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Requests sent to the terminology server and the ATC register",
		},
		[]string{"service", "outcome"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream request latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Lookups in the SNOMED CT and ATC caches",
		},
		[]string{"cache", "result"},
	)

	MatchStrategyTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_strategy_total",
			Help: "Substances resolved per matching strategy",
		},
		[]string{"strategy"},
	)

	ATCSourceTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atc_source_total",
			Help: "ATC resolutions per source",
		},
		[]string{"source"},
	)

	ToolInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_invocations_total",
			Help: "Tool invocations by tool name and outcome",
		},
		[]string{"tool", "outcome"},
	)

	UpstreamUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upstream_up",
			Help: "Whether the last probe reached the upstream (1) or not (0)",
		},
		[]string{"service"},
	)
)

// Service labels for upstream metrics
const (
	ServiceTerminology = "terminology"
	ServiceATC         = "atc"
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(UpstreamRequestTotals)
	prometheus.MustRegister(UpstreamRequestDuration)
	prometheus.MustRegister(CacheLookups)
	prometheus.MustRegister(MatchStrategyTotals)
	prometheus.MustRegister(ATCSourceTotals)
	prometheus.MustRegister(ToolInvocations)
	prometheus.MustRegister(UpstreamUp)
}

// ObserveUpstream records one upstream call. outcome is a status code
// class ("2xx", "4xx", "5xx") or "error" for transport failures.
func ObserveUpstream(service, outcome string, seconds float64) {
	UpstreamRequestTotals.WithLabelValues(service, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(service).Observe(seconds)
}

// StatusClass maps an HTTP status code to its metrics label
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "error"
	}
}

// ObserveCache records a lookup in the named cache
func ObserveCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}
