// Package compliance evaluates completed activities against the fixed
// compliance rule set and records the verdict. The gate itself is a pure
// function of the activity snapshot and the supplied time; governance and
// scoring only ever read its output.
package compliance

import (
	"time"

	"github.com/tawf-labs/amana-reserve/pkg/platform/safemath"
)

const (
	// MinHoldingPeriod is the shortest activity duration that does not count
	// as a speculative flip.
	MinHoldingPeriod = 24 * time.Hour

	// MaxProfitMarginPct is the highest permissible profit margin; anything
	// above is treated as excessive markup.
	MaxProfitMarginPct = 50
)

// Verdict reasons, stable strings carried into audit events.
const (
	ReasonExcessiveLoss   = "loss exceeds deployed capital"
	ReasonExcessiveMargin = "profit margin exceeds 50 percent"
	ReasonShortDuration   = "activity duration below minimum holding period"
)

// Snapshot is the slice of activity state the gate inspects.
type Snapshot struct {
	Outcome         int64
	CapitalRequired uint64
	CapitalDeployed uint64
	CreatedAt       time.Time
}

// Verdict is the gate's decision for one activity.
type Verdict struct {
	Compliant bool
	Reason    string
}

// Evaluate applies the rule set in order and returns the first failure, or a
// compliant verdict. Deterministic: identical inputs always produce identical
// verdicts. The margin computation uses checked arithmetic; an overflow there
// aborts the evaluation rather than producing a bogus verdict.
func Evaluate(snap Snapshot, now time.Time) (Verdict, error) {
	// Rule 1: a loss larger than the deployed capital signals
	// non-asset-backed speculation.
	if snap.Outcome < 0 {
		loss := uint64(-snap.Outcome)
		if loss > snap.CapitalDeployed {
			return Verdict{Compliant: false, Reason: ReasonExcessiveLoss}, nil
		}
	}

	// Rule 2: profit margin above 50% of required capital is disallowed.
	if snap.Outcome > 0 {
		scaled, err := safemath.Mul(uint64(snap.Outcome), 100)
		if err != nil {
			return Verdict{}, err
		}
		margin, err := safemath.Div(scaled, snap.CapitalRequired)
		if err != nil {
			return Verdict{}, err
		}
		if margin > MaxProfitMarginPct {
			return Verdict{Compliant: false, Reason: ReasonExcessiveMargin}, nil
		}
	}

	// Rule 3: a short-duration flip is impermissibly speculative.
	if now.Sub(snap.CreatedAt) < MinHoldingPeriod {
		return Verdict{Compliant: false, Reason: ReasonShortDuration}, nil
	}

	return Verdict{Compliant: true}, nil
}
