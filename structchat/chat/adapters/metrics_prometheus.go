package adapters

import (
	"strconv"

	ports "github.com/ZanzyTHEbar/structchat/structchat/chat/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics exposes engine counters as Prometheus collectors.
type PrometheusMetrics struct {
	attempts    *prometheus.CounterVec
	corrections prometheus.Counter
	outcomes    *prometheus.CounterVec
}

// NewPrometheusMetrics creates the collectors under namespace and registers
// them with reg.
func NewPrometheusMetrics(namespace string, reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transport_attempts_total",
				Help:      "Total number of transport attempts by status code (0 for transport errors).",
			},
			[]string{"status"},
		),
		corrections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "corrections_total",
				Help:      "Total number of correction turns sent to the model.",
			},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_outcomes_total",
				Help:      "Total number of finished chats by outcome.",
			},
			[]string{"outcome"},
		),
	}

	for _, c := range []prometheus.Collector{m.attempts, m.corrections, m.outcomes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) ObserveAttempt(status int) {
	m.attempts.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *PrometheusMetrics) ObserveCorrection() {
	m.corrections.Inc()
}

func (m *PrometheusMetrics) ObserveOutcome(outcome string) {
	m.outcomes.WithLabelValues(outcome).Inc()
}

// Ensure PrometheusMetrics implements the Metrics interface.
var _ ports.Metrics = (*PrometheusMetrics)(nil)
