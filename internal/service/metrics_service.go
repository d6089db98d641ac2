package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// points ledger.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	awardsTotal     prometheus.Counter
	awardedPoints   prometheus.Counter
	redemptionTotal prometheus.Counter
	redeemedPoints  prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	awardsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "point_awards_total",
		Help: "Total number of committed point awards",
	})

	awardedPoints := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "points_awarded_total",
		Help: "Sum of absolute point deltas committed",
	})

	redemptionTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redemptions_total",
		Help: "Total number of committed redemptions",
	})

	redeemedPoints := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "points_redeemed_total",
		Help: "Sum of points spent through redemptions",
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		awardsTotal, awardedPoints, redemptionTotal, redeemedPoints)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		awardsTotal:     awardsTotal,
		awardedPoints:   awardedPoints,
		redemptionTotal: redemptionTotal,
		redeemedPoints:  redeemedPoints,
	}
}

// Handler exposes the /metrics scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one HTTP request observation.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, fmt.Sprintf("%d", status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordCacheOperation tracks a cache lookup.
func (s *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	s.cacheLatency.Observe(duration.Seconds())
	if hit {
		s.cacheHits.Inc()
	} else {
		s.cacheMisses.Inc()
	}
}

// RecordAward tracks a committed point award.
func (s *MetricsService) RecordAward(delta int) {
	s.awardsTotal.Inc()
	if delta < 0 {
		delta = -delta
	}
	s.awardedPoints.Add(float64(delta))
}

// RecordRedemption tracks a committed redemption.
func (s *MetricsService) RecordRedemption(cost int) {
	s.redemptionTotal.Inc()
	s.redeemedPoints.Add(float64(cost))
}
