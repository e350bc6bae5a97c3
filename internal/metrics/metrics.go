// Package metrics counts backend operations and exports them in the Prometheus
// text format, for node_exporter's textfile collector.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/pkg/secretstore"
)

const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultError    = "error"
)

// Metrics holds the collectors for one invocation.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New creates a private registry with the chamber collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chamber_backend_operations_total",
				Help: "Total number of backend operations by result",
			},
			[]string{"backend", "operation", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chamber_backend_operation_duration_seconds",
				Help:    "Duration of backend operations in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"backend", "operation"},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Count returns the counter for one backend/operation/result combination.
func (m *Metrics) Count(backend, operation, result string) prometheus.Counter {
	return m.operations.WithLabelValues(backend, operation, result)
}

func (m *Metrics) observe(backend, operation string, start time.Time, err error) {
	result := resultOK
	switch {
	case err == nil:
	case dserrors.IsNotFound(err):
		result = resultNotFound
	default:
		result = resultError
	}
	m.operations.WithLabelValues(backend, operation, result).Inc()
	m.duration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes every metric to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Instrument wraps b so that every call is counted and timed.
func Instrument(b secretstore.Backend, m *Metrics) secretstore.Backend {
	return &instrumented{inner: b, m: m}
}

type instrumented struct {
	inner secretstore.Backend
	m     *Metrics
}

func (i *instrumented) Name() string { return i.inner.Name() }

func (i *instrumented) ListServices(ctx context.Context) ([]string, error) {
	start := time.Now()
	out, err := i.inner.ListServices(ctx)
	i.m.observe(i.inner.Name(), "list_services", start, err)
	return out, err
}

func (i *instrumented) ListSecrets(ctx context.Context, service string) (map[string]string, error) {
	start := time.Now()
	out, err := i.inner.ListSecrets(ctx, service)
	i.m.observe(i.inner.Name(), "list_secrets", start, err)
	return out, err
}

func (i *instrumented) ListMetadata(ctx context.Context, service string) (map[string]secretstore.Metadata, error) {
	start := time.Now()
	out, err := i.inner.ListMetadata(ctx, service)
	i.m.observe(i.inner.Name(), "list_metadata", start, err)
	return out, err
}

func (i *instrumented) Read(ctx context.Context, service, key string) (secretstore.Secret, error) {
	start := time.Now()
	out, err := i.inner.Read(ctx, service, key)
	i.m.observe(i.inner.Name(), "read", start, err)
	return out, err
}

func (i *instrumented) Write(ctx context.Context, service, key, value string) error {
	start := time.Now()
	err := i.inner.Write(ctx, service, key, value)
	i.m.observe(i.inner.Name(), "write", start, err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, service, key string) error {
	start := time.Now()
	err := i.inner.Delete(ctx, service, key)
	i.m.observe(i.inner.Name(), "delete", start, err)
	return err
}

func (i *instrumented) Close() error {
	start := time.Now()
	err := i.inner.Close()
	i.m.observe(i.inner.Name(), "close", start, err)
	return err
}
