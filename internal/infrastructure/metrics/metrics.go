// Package metrics instrumentación Prometheus del ledger.
//
// Se monta en GET /metrics:
//
//	m := metrics.New()
//	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jhoicas/bar-ledger/internal/application/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ ledger.Metrics = (*Metrics)(nil)

const namespace = "barledger"

// Metrics colectores del ledger sobre un registry propio (uno por proceso; en tests uno por test).
type Metrics struct {
	registry *prometheus.Registry

	changes       *prometheus.CounterVec
	conflicts     prometheus.Counter
	applyDuration prometheus.Histogram
	cache         *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

// New crea y registra los colectores, más los de runtime de Go y del proceso.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "changes_total",
			Help:      "Solicitudes de cambio de remaining por resultado.",
		}, []string{"result"}), // changed | noop | not_found | invalid_quantity | out_of_range | conflict | error
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "conflicts_total",
			Help:      "Cambios rechazados por escritura concurrente.",
		}),
		applyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "apply_duration_seconds",
			Help:      "Duración de ApplyChange, incluida la espera por el bloqueo de fila.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Consultas a la caché de stock bajo por resultado.",
		}, []string{"result"}), // hit | miss | error
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Peticiones HTTP por método, ruta y código.",
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.changes,
		m.conflicts,
		m.applyDuration,
		m.cache,
		m.httpRequests,
	)
	return m
}

// ObserveChange registra el resultado y la duración de un ApplyChange.
func (m *Metrics) ObserveChange(result string, elapsed time.Duration) {
	m.changes.WithLabelValues(result).Inc()
	if result == ledger.ResultConflict {
		m.conflicts.Inc()
	}
	m.applyDuration.Observe(elapsed.Seconds())
}

// CacheResult cuenta un acierto, fallo o error de la caché.
func (m *Metrics) CacheResult(result string) {
	m.cache.WithLabelValues(result).Inc()
}

// ObserveHTTP cuenta una petición; route es el patrón de la ruta, no la URL cruda.
func (m *Metrics) ObserveHTTP(method, route string, status int) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Registry expone el registry para tests o colectores adicionales.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler página de métricas en formato texto y OpenMetrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
