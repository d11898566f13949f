package obs

import (
	"net/http"
	"time"

	"dipbot/internal/adapter/enum"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const _namespace = "dipbot"

// Metrics collects ladder counters and poll latency. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ordersPlaced   *prometheus.CounterVec
	ordersCanceled *prometheus.CounterVec
	gatewayErrors  *prometheus.CounterVec
	replans        *prometheus.CounterVec
	outcomes       *prometheus.CounterVec
	activeSessions prometheus.Gauge
	filledVolume   *prometheus.GaugeVec
	pollLatency    *prometheus.HistogramVec
}

// NewMetrics allocates a metrics container on its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "orders_placed_total",
			Help:      "Orders placed, by symbol, ladder leg and order kind.",
		}, []string{"symbol", "leg", "kind"}),
		ordersCanceled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "orders_canceled_total",
			Help:      "Orders cancelled by cancel sweeps.",
		}, []string{"symbol"}),
		gatewayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "gateway_errors_total",
			Help:      "Failed gateway calls, by operation.",
		}, []string{"symbol", "op"}),
		replans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "replans_total",
			Help:      "Re-plans triggered by a filled dip-buy leg.",
		}, []string{"symbol", "leg"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "sessions_closed_total",
			Help:      "Closed sessions, by outcome.",
		}, []string{"symbol", "outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: _namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently running.",
		}),
		filledVolume: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: _namespace,
			Name:      "filled_volume",
			Help:      "Cumulative filled entry volume of the running session.",
		}, []string{"symbol"}),
		pollLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: _namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of one fill detection poll.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"symbol"}),
	}
	m.registry.MustRegister(
		m.ordersPlaced,
		m.ordersCanceled,
		m.gatewayErrors,
		m.replans,
		m.outcomes,
		m.activeSessions,
		m.filledVolume,
		m.pollLatency,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveOrderPlaced(symbol string, leg enum.Leg, kind enum.OrderKind) {
	if m == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(symbol, leg.String(), kind.String()).Inc()
}

func (m *Metrics) ObserveOrderCanceled(symbol string) {
	if m == nil {
		return
	}
	m.ordersCanceled.WithLabelValues(symbol).Inc()
}

func (m *Metrics) ObserveGatewayError(symbol, op string) {
	if m == nil {
		return
	}
	m.gatewayErrors.WithLabelValues(symbol, op).Inc()
}

func (m *Metrics) ObserveReplan(symbol string, leg enum.Leg) {
	if m == nil {
		return
	}
	m.replans.WithLabelValues(symbol, leg.String()).Inc()
}

func (m *Metrics) ObserveFilledVolume(symbol string, volume float64) {
	if m == nil {
		return
	}
	m.filledVolume.WithLabelValues(symbol).Set(volume)
}

func (m *Metrics) ObservePoll(symbol string, d time.Duration) {
	if m == nil {
		return
	}
	m.pollLatency.WithLabelValues(symbol).Observe(d.Seconds())
}

// SessionStarted marks a session as running.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed records the outcome and releases the running mark.
func (m *Metrics) SessionClosed(symbol string, outcome enum.Outcome) {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
	m.outcomes.WithLabelValues(symbol, outcome.String()).Inc()
}
