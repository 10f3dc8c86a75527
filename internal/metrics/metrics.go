// Package metrics counts uploads with Prometheus and can expose them on /metrics.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docupload/docupload/internal/logging"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the upload collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	documentsTotal   *prometheus.CounterVec
	filesTotal       *prometheus.CounterVec
	bytesTotal       *prometheus.CounterVec
	documentDuration *prometheus.HistogramVec
	batchesTotal     prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		documentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docupload_documents_total",
				Help: "Document folders processed, by backend and result",
			},
			[]string{"backend", "result"},
		),
		filesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docupload_files_total",
				Help: "Payload files uploaded, by backend and result",
			},
			[]string{"backend", "result"},
		),
		bytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docupload_uploaded_bytes_total",
				Help: "Bytes of payload files successfully uploaded",
			},
			[]string{"backend"},
		),
		documentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docupload_document_duration_seconds",
				Help:    "Time to upload one document folder",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			},
			[]string{"backend", "result"},
		),
		batchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docupload_batches_total",
				Help: "Upload actions run",
			},
		),
	}

	m.registry.MustRegister(m.documentsTotal, m.filesTotal, m.bytesTotal, m.documentDuration, m.batchesTotal)
	return m
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

// ObserveDocument records one finished document folder.
func (m *Metrics) ObserveDocument(backend string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.documentsTotal.WithLabelValues(backend, result(ok)).Inc()
	m.documentDuration.WithLabelValues(backend, result(ok)).Observe(d.Seconds())
}

// ObserveFile records one file upload attempt.
func (m *Metrics) ObserveFile(backend string, ok bool, size int64) {
	if m == nil {
		return
	}
	m.filesTotal.WithLabelValues(backend, result(ok)).Inc()
	if ok {
		m.bytesTotal.WithLabelValues(backend).Add(float64(size))
	}
}

// ObserveBatch records one upload action.
func (m *Metrics) ObserveBatch() {
	if m == nil {
		return
	}
	m.batchesTotal.Inc()
}

// Registry exposes the registry for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done. It returns once the
// listener is bound; serving continues in the background.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *logging.Logger) (net.Addr, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", listener.Addr().String()).Msg("Serving metrics")
	return listener.Addr(), nil
}
