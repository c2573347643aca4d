package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry アプリケーション固有のPrometheusコレクター
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes_app",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notes_app",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	remoteCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notes_app",
			Subsystem: "remote",
			Name:      "calls_total",
			Help:      "Total number of calls to the data gateway and object store.",
		},
		[]string{"service", "operation", "success"},
	)

	remoteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notes_app",
			Subsystem: "remote",
			Name:      "call_duration_seconds",
			Help:      "Duration of calls to the data gateway and object store.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"service", "operation"},
	)

	notesPublished = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "notes_app",
			Subsystem: "notes",
			Name:      "last_published_count",
			Help:      "Number of notes in the most recently published list.",
		},
	)
)

func init() {
	Registry.MustRegister(httpRequests, httpDuration, remoteCalls, remoteDuration, notesPublished)
}

// Handler /metrics用のHTTPハンドラー
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest HTTPリクエストを記録
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveRemoteCall リモート呼び出しの結果と所要時間を記録
func ObserveRemoteCall(service, operation string, start time.Time, err error) {
	remoteCalls.WithLabelValues(service, operation, strconv.FormatBool(err == nil)).Inc()
	remoteDuration.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
}

// SetPublishedNotes 公開されたメモ件数を記録
func SetPublishedNotes(count int) {
	notesPublished.Set(float64(count))
}
