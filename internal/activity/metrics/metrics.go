package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the activity lifecycle.
type Metrics struct {
	// Lifecycle transitions by resulting status
	Transitions *prometheus.CounterVec

	// Signed settlement outcomes
	Outcomes *prometheus.CounterVec

	// Capital currently deployed into non-terminal activities
	DeployedCapital prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amana_activity_transitions_total",
			Help: "Activity lifecycle transitions by resulting status",
		}, []string{"status"}),

		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amana_activity_outcomes_total",
			Help: "Settled activities by outcome sign",
		}, []string{"result"}), // result: "profit", "loss", "neutral"

		DeployedCapital: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amana_activity_deployed_capital",
			Help: "Capital currently deployed into non-terminal activities",
		}),
	}
}

// IncrementTransition records one lifecycle transition.
func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}

// IncrementOutcome records one settlement by outcome sign.
func (m *Metrics) IncrementOutcome(outcome int64) {
	if m != nil {
		result := "neutral"
		switch {
		case outcome > 0:
			result = "profit"
		case outcome < 0:
			result = "loss"
		}
		m.Outcomes.WithLabelValues(result).Inc()
	}
}

// AddDeployedCapital adjusts the deployed-capital gauge.
func (m *Metrics) AddDeployedCapital(delta float64) {
	if m != nil {
		m.DeployedCapital.Add(delta)
	}
}
