package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the score engine.
type Metrics struct {
	// Current composite score in basis points
	Score prometheus.Gauge

	// Tracked activities by signal
	ActivitiesTracked *prometheus.CounterVec

	// Snapshots taken
	Snapshots prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Score: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amana_hai_score_basis_points",
			Help: "Current composite activity score in basis points",
		}),

		ActivitiesTracked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amana_hai_activities_tracked_total",
			Help: "Activities tracked into the score aggregate by compliance verdict",
		}, []string{"compliant"}),

		Snapshots: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amana_hai_snapshots_total",
			Help: "Score snapshots taken",
		}),
	}
}

// SetScore records the current composite score.
func (m *Metrics) SetScore(score uint64) {
	if m != nil {
		m.Score.Set(float64(score))
	}
}

// IncrementTracked records one tracked activity.
func (m *Metrics) IncrementTracked(compliant bool) {
	if m != nil {
		label := "false"
		if compliant {
			label = "true"
		}
		m.ActivitiesTracked.WithLabelValues(label).Inc()
	}
}

// IncrementSnapshots records one snapshot.
func (m *Metrics) IncrementSnapshots() {
	if m != nil {
		m.Snapshots.Inc()
	}
}
