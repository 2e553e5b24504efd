package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for governance activity.
type Metrics struct {
	// Proposals by lifecycle event
	Proposals *prometheus.CounterVec

	// Votes cast by choice
	Votes *prometheus.CounterVec

	// Board reviews by verdict
	Reviews *prometheus.CounterVec

	// Current board size
	BoardSize prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		Proposals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amana_governance_proposals_total",
			Help: "Governance proposals by lifecycle event",
		}, []string{"event"}),

		Votes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amana_governance_votes_total",
			Help: "Votes cast by choice",
		}, []string{"choice"}),

		Reviews: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amana_governance_reviews_total",
			Help: "Compliance board reviews by verdict",
		}, []string{"approved"}),

		BoardSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amana_governance_board_members",
			Help: "Current compliance board size",
		}),
	}
}

// IncrementProposals records one proposal lifecycle event.
func (m *Metrics) IncrementProposals(event string) {
	if m != nil {
		m.Proposals.WithLabelValues(event).Inc()
	}
}

// IncrementVotes records one cast vote.
func (m *Metrics) IncrementVotes(choice string) {
	if m != nil {
		m.Votes.WithLabelValues(choice).Inc()
	}
}

// IncrementReviews records one board review.
func (m *Metrics) IncrementReviews(approved bool) {
	if m != nil {
		label := "false"
		if approved {
			label = "true"
		}
		m.Reviews.WithLabelValues(label).Inc()
	}
}

// SetBoardSize records the current board size.
func (m *Metrics) SetBoardSize(size int) {
	if m != nil {
		m.BoardSize.Set(float64(size))
	}
}
