package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the reserve ledger.
type Metrics struct {
	// Capital currently held by the reserve
	TotalCapital prometheus.Gauge

	// Active participant count
	Participants prometheus.Gauge

	// Capital movements by direction
	CapitalMovements *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		TotalCapital: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amana_reserve_total_capital",
			Help: "Capital currently held by the reserve",
		}),

		Participants: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amana_reserve_participants",
			Help: "Number of participants that have joined the reserve",
		}),

		CapitalMovements: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amana_reserve_capital_movements_total",
			Help: "Capital movements by direction",
		}, []string{"direction"}), // direction: "in", "out", "deployed", "settled"
	}
}

// SetTotalCapital records the reserve's held capital.
func (m *Metrics) SetTotalCapital(capital uint64) {
	if m != nil {
		m.TotalCapital.Set(float64(capital))
	}
}

// SetParticipants records the participant count.
func (m *Metrics) SetParticipants(count uint64) {
	if m != nil {
		m.Participants.Set(float64(count))
	}
}

// IncrementMovement records one capital movement.
func (m *Metrics) IncrementMovement(direction string) {
	if m != nil {
		m.CapitalMovements.WithLabelValues(direction).Inc()
	}
}
