// Package metrics holds the process-wide Prometheus collectors. Libraries
// record through the helpers here; only watchdogd actually serves /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	recordsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustchain_records_emitted_total",
		Help: "Total ledger records emitted by receipt type.",
	}, []string{"receipt_type"})

	appendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trustchain_ledger_append_failures_total",
		Help: "Total durable-append failures (non-fatal by contract).",
	})

	scoresComputedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustchain_scores_computed_total",
		Help: "Total trust scores computed by resulting level.",
	}, []string{"level"})

	scoreValue = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trustchain_score_value",
		Help:    "Distribution of computed trust scores.",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	simCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustchain_sim_cycles_total",
		Help: "Total simulation cycles completed by scenario.",
	}, []string{"scenario"})

	simViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustchain_sim_violations_total",
		Help: "Total criteria violations recorded by scenario.",
	}, []string{"scenario"})

	watchdogChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustchain_watchdog_checks_total",
		Help: "Total watchdog probe results by check and outcome.",
	}, []string{"check", "result"})

	watchdogHealthy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trustchain_watchdog_healthy",
		Help: "1 when the last full watchdog sweep passed, else 0.",
	})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustchain_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trustchain_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		requestsTotal.WithLabelValues(method, path, status).Inc()
		requestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// Handler returns a Gin handler that serves Prometheus metrics.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordEmit records one emitted ledger record.
func RecordEmit(receiptType string) {
	recordsEmittedTotal.WithLabelValues(receiptType).Inc()
}

// RecordAppendFailure records a failed durable append.
func RecordAppendFailure() {
	appendFailuresTotal.Inc()
}

// RecordScore records a computed trust score and its level.
func RecordScore(score int, level string) {
	scoresComputedTotal.WithLabelValues(level).Inc()
	scoreValue.Observe(float64(score))
}

// RecordSimCycle records one completed simulation cycle.
func RecordSimCycle(scenario string) {
	simCyclesTotal.WithLabelValues(scenario).Inc()
}

// RecordSimViolations records criteria violations for a scenario run.
func RecordSimViolations(scenario string, n int) {
	simViolationsTotal.WithLabelValues(scenario).Add(float64(n))
}

// RecordWatchdogCheck records a single watchdog probe result.
func RecordWatchdogCheck(check string, passed bool) {
	result := "pass"
	if !passed {
		result = "fail"
	}
	watchdogChecksTotal.WithLabelValues(check, result).Inc()
}

// SetWatchdogHealthy sets the overall watchdog health gauge.
func SetWatchdogHealthy(healthy bool) {
	if healthy {
		watchdogHealthy.Set(1)
	} else {
		watchdogHealthy.Set(0)
	}
}
