package httpapi

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type httpMetrics struct {
	// ---------------------------
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	// ---------------------------
	// Number of prediction rows pushed through the distance kernel
	predictionRows *prometheus.CounterVec
	// ---------------------------
	registry *prometheus.Registry
}

func newHttpMetrics() *httpMetrics {
	reg := prometheus.NewRegistry()
	metrics := &httpMetrics{
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_request_count",
				Help: "Total number of HTTP requests made.",
			},
			[]string{"code", "method", "handler"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"code", "method", "handler"},
		),
		responseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response sizes in bytes.",
				Buckets: []float64{0, 1 << 10, 1 << 15, 1 << 20},
			},
			[]string{"code", "method", "handler"},
		),
		predictionRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "knn_prediction_rows_total",
				Help: "Total number of prediction rows compared against a training set.",
			},
			[]string{"handler"},
		),
		registry: reg,
	}
	reg.MustRegister(metrics.requestCount)
	reg.MustRegister(metrics.requestDuration)
	reg.MustRegister(metrics.responseSize)
	reg.MustRegister(metrics.predictionRows)
	return metrics
}

func (m *httpMetrics) observePredictionRows(handler string, rows int) {
	if m == nil {
		return
	}
	m.predictionRows.WithLabelValues(handler).Add(float64(rows))
}

func setupAndListenMetrics(cfg HttpApiConfig) *httpMetrics {
	metrics := newHttpMetrics()
	// ---------------------------
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{Registry: metrics.registry}))
	metricsServer := &http.Server{
		Addr:    cfg.HttpHost + ":" + strconv.Itoa(cfg.MetricsHttpPort),
		Handler: mux,
	}
	// ---------------------------
	// We start the server in the background, it lives as long as the process.
	go func() {
		log.Info().Str("httpAddr", metricsServer.Addr).Msg("HTTPAPI.ServeMetrics")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start metrics server")
		}
	}()
	// ---------------------------
	return metrics
}
