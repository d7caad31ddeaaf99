package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts engine activity. A nil *Metrics records nothing.
type Metrics struct {
	executions *prometheus.CounterVec
	polls      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	volume     *prometheus.GaugeVec
}

// NewMetrics creates the engine metrics and registers them on reg. A nil
// registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blitzbar",
			Name:      "executions_total",
			Help:      "Executions by variant and final state",
		}, []string{"variant", "state"}),
		polls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blitzbar",
			Name:      "polls_total",
			Help:      "Job status polls by variant",
		}, []string{"variant"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "blitzbar",
			Name:      "execution_duration_seconds",
			Help:      "Wall clock time from login to a terminal state",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"variant"}),
		volume: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "blitzbar",
			Name:      "rush_volume",
			Help:      "Concurrency of the latest rush timeline point",
		}, []string{"region"}),
	}
}

func (m *Metrics) observeExecution(variant, state string, seconds float64) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(variant, state).Inc()
	m.duration.WithLabelValues(variant).Observe(seconds)
}

func (m *Metrics) observePoll(variant string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(variant).Inc()
}

func (m *Metrics) observeVolume(region string, volume float64) {
	if m == nil {
		return
	}
	m.volume.WithLabelValues(region).Set(volume)
}
