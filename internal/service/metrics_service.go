package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer,
// the cache and the fee ledger. All methods are safe on a nil receiver.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	paymentsTotal    *prometheus.CounterVec
	paymentAmount    *prometheus.CounterVec
	paymentLines     prometheus.Histogram
	feesCreated      *prometheus.CounterVec
	lateFeeUpdates   prometheus.Counter
	receiptsRendered *prometheus.CounterVec
	noticesSent      *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
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

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	paymentsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fee_payments_total",
		Help: "Payments recorded by payment method",
	}, []string{"method"})

	paymentAmount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fee_payment_amount_total",
		Help: "Sum of amounts applied by payment method",
	}, []string{"method"})

	paymentLines := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fee_payment_records",
		Help:    "Fee records settled per payment",
		Buckets: []float64{1, 2, 3, 5, 8},
	})

	feesCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fee_records_created_total",
		Help: "Fee records created by source",
	}, []string{"source"})

	lateFeeUpdates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fee_late_fee_updates_total",
		Help: "Fee records updated by late fee accrual",
	})

	receiptsRendered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fee_receipts_rendered_total",
		Help: "Receipt PDFs rendered by outcome",
	}, []string{"outcome"})

	noticesSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fee_notices_sent_total",
		Help: "Fee notices dispatched by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		paymentsTotal, paymentAmount, paymentLines, feesCreated, lateFeeUpdates, receiptsRendered, noticesSent,
		goroutines,
	)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		paymentsTotal:    paymentsTotal,
		paymentAmount:    paymentAmount,
		paymentLines:     paymentLines,
		feesCreated:      feesCreated,
		lateFeeUpdates:   lateFeeUpdates,
		receiptsRendered: receiptsRendered,
		noticesSent:      noticesSent,
	}
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

// Registry exposes the underlying registry for tests.
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
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
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
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
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

// RecordPayment counts a committed payment.
func (m *MetricsService) RecordPayment(method string, amount int64, lines int) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(method).Inc()
	m.paymentAmount.WithLabelValues(method).Add(float64(amount))
	m.paymentLines.Observe(float64(lines))
}

// RecordFeesCreated counts fee records created by demand generation or manual entry.
func (m *MetricsService) RecordFeesCreated(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.feesCreated.WithLabelValues(source).Add(float64(n))
}

// RecordLateFeeSweep counts records touched by a late fee sweep.
func (m *MetricsService) RecordLateFeeSweep(updated int) {
	if m == nil || updated <= 0 {
		return
	}
	m.lateFeeUpdates.Add(float64(updated))
}

// RecordReceipt counts a receipt render attempt.
func (m *MetricsService) RecordReceipt(success bool) {
	if m == nil {
		return
	}
	m.receiptsRendered.WithLabelValues(outcomeLabel(success)).Inc()
}

// RecordNotification counts a fee notice delivery attempt.
func (m *MetricsService) RecordNotification(success bool) {
	if m == nil {
		return
	}
	m.noticesSent.WithLabelValues(outcomeLabel(success)).Inc()
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
