// Package metrics provides Prometheus metrics for the storage backend and its
// HTTP gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Storage operation metrics
	storageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "azstorage_operations_total",
			Help: "Total number of storage operations by result",
		},
		[]string{"op", "result"},
	)

	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "azstorage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	storageBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "azstorage_bytes_total",
			Help: "Total bytes moved to or from the blob store",
		},
		[]string{"direction"},
	)

	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "azstorage_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "azstorage_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Directions for RecordBytes.
const (
	Upload   = "upload"
	Download = "download"
)

// RecordOperation records one storage operation. result is "ok" or an error
// kind label.
func RecordOperation(op, result string, duration time.Duration) {
	storageOperationsTotal.WithLabelValues(op, result).Inc()
	storageOperationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordBytes adds n transferred bytes in the given direction.
func RecordBytes(direction string, n int) {
	if n <= 0 {
		return
	}
	storageBytesTotal.WithLabelValues(direction).Add(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// Recorder forwards storage events to the package-level collectors.
type Recorder struct{}

func (Recorder) ObserveOperation(op, result string, duration time.Duration) {
	RecordOperation(op, result, duration)
}

func (Recorder) AddBytes(direction string, n int) {
	RecordBytes(direction, n)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
