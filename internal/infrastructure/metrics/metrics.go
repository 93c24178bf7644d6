// Package metrics expone los contadores Prometheus del motor de stock y de la capa HTTP.
// Cada instancia tiene su propio registry; no hay estado global.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/endmill-ledger/internal/application/inventory"
)

var _ inventory.MovementObserver = (*Metrics)(nil)

// Metrics colectores de la aplicación.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	MovementsCommitted  *prometheus.CounterVec
	MovementsAborted    *prometheus.CounterVec
	Compensations       *prometheus.CounterVec
	HistoryLinkFailures prometheus.Counter
	DriftCorrections    prometheus.Counter
	DriftUnits          prometheus.Counter
}

// Config namespace de las métricas.
type Config struct {
	Namespace string
}

// DefaultConfig namespace "endmill".
func DefaultConfig() Config {
	return Config{Namespace: "endmill"}
}

// New crea y registra todos los colectores.
func New(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	m.MovementsCommitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "stock_movements_committed_total",
			Help:      "Stock movements committed, by movement type and operation",
		},
		[]string{"type", "operation"},
	)
	m.MovementsAborted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "stock_movements_aborted_total",
			Help:      "Stock movements aborted, by movement type, operation and reason",
		},
		[]string{"type", "operation", "reason"},
	)
	m.Compensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "stock_compensations_total",
			Help:      "Compensating actions run after a failed step",
		},
		[]string{"step"},
	)
	m.HistoryLinkFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "tool_change_link_failures_total",
			Help:      "Tool-change history writes that failed after a committed movement",
		},
	)
	m.DriftCorrections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "reconcile_corrections_total",
			Help:      "Aggregates whose stock was rewritten by reconciliation",
		},
	)
	m.DriftUnits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "reconcile_drift_units_total",
			Help:      "Absolute stock units corrected by reconciliation",
		},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal, m.HTTPRequestDuration, m.HTTPRequestsInFlight,
		m.MovementsCommitted, m.MovementsAborted, m.Compensations,
		m.HistoryLinkFailures, m.DriftCorrections, m.DriftUnits,
	)
	return m
}

// Handler handler HTTP para /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry devuelve el registry (tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest registra una petición terminada.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) MovementCommitted(movementType, operation string) {
	m.MovementsCommitted.WithLabelValues(movementType, operation).Inc()
}

func (m *Metrics) MovementAborted(movementType, operation, reason string) {
	m.MovementsAborted.WithLabelValues(movementType, operation, reason).Inc()
}

func (m *Metrics) Compensated(step string) {
	m.Compensations.WithLabelValues(step).Inc()
}

func (m *Metrics) HistoryLinkFailed() {
	m.HistoryLinkFailures.Inc()
}

// DriftCorrected no etiqueta por agregado para no disparar la cardinalidad.
func (m *Metrics) DriftCorrected(_ string, drift int) {
	m.DriftCorrections.Inc()
	if drift < 0 {
		drift = -drift
	}
	m.DriftUnits.Add(float64(drift))
}
