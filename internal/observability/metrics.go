package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fm_http_requests_total",
			Help: "Total HTTP requests handled by the files API",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fm_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)
)

// Pipeline metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fm_uploads_total",
			Help: "Uploads by kind and result",
		},
		[]string{"kind", "result"},
	)

	UploadedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fm_uploaded_bytes_total",
			Help: "Decoded bytes written to blob storage by uploads",
		},
	)

	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fm_jobs_total",
			Help: "Background jobs by kind and final status of the attempt",
		},
		[]string{"kind", "status"},
	)

	ThumbnailDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fm_thumbnail_duration_seconds",
			Help:    "Time to generate every variant of one image",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// StartMetricsServer serves /metrics and /health on port in the background.
func StartMetricsServer(port string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		logger.Info("starting metrics server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
