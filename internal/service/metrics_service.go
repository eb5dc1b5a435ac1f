package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, the ledger cache and fee postings.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	payments        *prometheus.CounterVec
	paymentAmount   *prometheus.CounterVec
	adjustments     prometheus.Counter
	reconcileRuns   *prometheus.CounterVec
	recordsCreated  prometheus.Counter
	ledgerFailures  *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_cache_latency_seconds",
			Help:    "Latency for ledger cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_cache_write_seconds",
			Help:    "Latency for ledger cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_cache_misses_total",
			Help: "Total cache misses",
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fee_payments_total",
			Help: "Fee payments posted, by method",
		}, []string{"method"}),
		paymentAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fee_payment_amount_total",
			Help: "Sum of posted payment amounts, by method",
		}, []string{"method"}),
		adjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fee_bill_adjustments_total",
			Help: "Bill adjustments applied",
		}),
		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fee_reconcile_runs_total",
			Help: "Fee ledger reconciliation runs, by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		recordsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fee_records_created_total",
			Help: "Fee records created by reconciliation",
		}),
		ledgerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fee_ledger_persistence_failures_total",
			Help: "Ledger operations aborted by the record store",
		}, []string{"operation"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheWrite,
		m.cacheHitRatio, m.cacheHits, m.cacheMisses, m.payments, m.paymentAmount, m.adjustments, m.reconcileRuns,
		m.recordsCreated, m.ledgerFailures, goroutines)

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordPayment counts a posted payment.
func (m *MetricsService) RecordPayment(method string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(method).Inc()
	m.paymentAmount.WithLabelValues(method).Add(amount.InexactFloat64())
}

// RecordAdjustment counts a bill adjustment.
func (m *MetricsService) RecordAdjustment() {
	if m == nil {
		return
	}
	m.adjustments.Inc()
}

// RecordReconcile counts a reconciliation run and the records it created.
func (m *MetricsService) RecordReconcile(trigger string, created int, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.reconcileRuns.WithLabelValues(trigger, outcome).Inc()
	if created > 0 {
		m.recordsCreated.Add(float64(created))
	}
}

// RecordLedgerFailure counts an operation aborted by the record store.
func (m *MetricsService) RecordLedgerFailure(operation string) {
	if m == nil {
		return
	}
	m.ledgerFailures.WithLabelValues(operation).Inc()
}
