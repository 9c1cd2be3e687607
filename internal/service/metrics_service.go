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

// Upload outcomes reported by RecordUpload.
const (
	UploadResultUploaded     = "uploaded"
	UploadResultDeduplicated = "deduplicated"
	UploadResultFailed       = "failed"
)

// MetricsSnapshot is a lightweight JSON view of the counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	StockMutations           uint64    `json:"stock_mutations"`
	Uploads                  uint64    `json:"uploads"`
	DeduplicatedUploads      uint64    `json:"deduplicated_uploads"`
	FailedUploads            uint64    `json:"failed_uploads"`
	BlobIndexHitRatio        float64   `json:"blob_index_hit_ratio"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	stockMutations    *prometheus.CounterVec
	attachmentUploads *prometheus.CounterVec
	blobDuration      *prometheus.HistogramVec
	blobIndexLookups  *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	mutationCount        uint64
	uploadCount          uint64
	dedupCount           uint64
	failedUploadCount    uint64
	indexHitCount        uint64
	indexMissCount       uint64
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

	stockMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_mutations_total",
		Help: "Committed stock ledger mutations",
	}, []string{"operation"})

	attachmentUploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attachment_uploads_total",
		Help: "File attachment uploads by outcome",
	}, []string{"result"})

	blobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blob_operation_duration_seconds",
		Help:    "Duration of blob storage calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	blobIndexLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blob_index_lookups_total",
		Help: "Blob existence index lookups by outcome",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, stockMutations, attachmentUploads, blobDuration, blobIndexLookups, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		stockMutations:    stockMutations,
		attachmentUploads: attachmentUploads,
		blobDuration:      blobDuration,
		blobIndexLookups:  blobIndexLookups,
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordStockMutation counts a committed ADD, REMOVE or MOVE.
func (m *MetricsService) RecordStockMutation(operation string) {
	if m == nil {
		return
	}
	m.stockMutations.WithLabelValues(operation).Inc()
	atomic.AddUint64(&m.mutationCount, 1)
}

// RecordUpload counts a file upload by outcome.
func (m *MetricsService) RecordUpload(result string) {
	if m == nil {
		return
	}
	m.attachmentUploads.WithLabelValues(result).Inc()
	switch result {
	case UploadResultUploaded:
		atomic.AddUint64(&m.uploadCount, 1)
	case UploadResultDeduplicated:
		atomic.AddUint64(&m.dedupCount, 1)
	case UploadResultFailed:
		atomic.AddUint64(&m.failedUploadCount, 1)
	}
}

// ObserveBlobOperation records the duration of one blob storage call.
func (m *MetricsService) ObserveBlobOperation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.blobDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBlobIndexLookup records whether the existence index answered a lookup.
func (m *MetricsService) RecordBlobIndexLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.blobIndexLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.indexHitCount, 1)
		return
	}
	m.blobIndexLookups.WithLabelValues("miss").Inc()
	atomic.AddUint64(&m.indexMissCount, 1)
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	hits := atomic.LoadUint64(&m.indexHitCount)
	misses := atomic.LoadUint64(&m.indexMissCount)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var hitRatio float64
	if total := hits + misses; total > 0 {
		hitRatio = float64(hits) / float64(total)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		StockMutations:           atomic.LoadUint64(&m.mutationCount),
		Uploads:                  atomic.LoadUint64(&m.uploadCount),
		DeduplicatedUploads:      atomic.LoadUint64(&m.dedupCount),
		FailedUploads:            atomic.LoadUint64(&m.failedUploadCount),
		BlobIndexHitRatio:        hitRatio,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
