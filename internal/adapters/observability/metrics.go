package observability

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "peakstay", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "peakstay", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "peakstay", Name: "provider_requests_total", Help: "Outbound provider requests."},
		[]string{"endpoint", "status"},
	)
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "peakstay", Name: "provider_request_duration_seconds",
			Help:    "Outbound provider request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "peakstay", Name: "cache_events_total", Help: "Cache hits/misses/sets/evictions per tier."},
		[]string{"tier", "event"}, // event: hit|miss|set|evict|error
	)
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "peakstay", Name: "rate_limited_total", Help: "Requests rejected by the rate limiter."},
	)
	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "peakstay", Name: "tool_calls_total", Help: "MCP tool invocations."},
		[]string{"tool", "outcome"}, // outcome: ok|error
	)
)

func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ProviderRequests, ProviderLatency, CacheEvents, RateLimited, ToolCalls)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveProvider(endpoint string, status int, dur time.Duration) {
	ProviderRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	ProviderLatency.WithLabelValues(endpoint).Observe(dur.Seconds())
}

func ObserveCache(tier, event string) { // event: hit|miss|set|evict|error
	CacheEvents.WithLabelValues(tier, event).Inc()
}

func ObserveRateLimited() { RateLimited.Inc() }

func ObserveTool(tool, outcome string) { ToolCalls.WithLabelValues(tool, outcome).Inc() }
