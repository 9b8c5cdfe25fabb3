package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the gateway.
type Metrics struct {
	ActiveSessions   prometheus.Gauge
	SessionEvents    *prometheus.CounterVec
	StateTransitions *prometheus.CounterVec
	CaptureRestarts  prometheus.Counter
	ProviderErrors   *prometheus.CounterVec
	WSMessages       *prometheus.CounterVec
	DispatchLatency  prometheus.Histogram

	window *latencyWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active voice sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		StateTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Turn-taking controller transitions by from/to state.",
		}, []string{"from", "to"}),
		CaptureRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_restarts_total",
			Help:      "Automatic capture restarts after unexpected end events.",
		}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Capability provider errors by provider and code.",
		}, []string{"provider", "code"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_latency_ms",
			Help:      "Latency from user transcript to assistant reply in milliseconds.",
			Buckets:   []float64{200, 500, 900, 1400, 2000, 3000, 5000, 8000},
		}),
		window: newLatencyWindow(256),
	}
}

func (m *Metrics) ObserveDispatchLatency(d time.Duration) {
	m.DispatchLatency.Observe(float64(d.Milliseconds()))
	m.ObserveTurnStage("dispatch", d)
}

// ObserveTurnStage records a stage latency into the in-process stats window.
func (m *Metrics) ObserveTurnStage(stage string, d time.Duration) {
	if m == nil || m.window == nil {
		return
	}
	m.window.Observe(stage, float64(d.Milliseconds()))
}

// ObserveTurnIndicator bumps a named turn indicator counter in the stats window.
func (m *Metrics) ObserveTurnIndicator(name string) {
	if m == nil || m.window == nil {
		return
	}
	m.window.ObserveIndicator(name)
}

// StatsSnapshot returns the current in-process latency window snapshot.
func (m *Metrics) StatsSnapshot() StatsSnapshot {
	if m == nil || m.window == nil {
		return StatsSnapshot{}
	}
	return m.window.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
