package activity

import "time"

// longTermThreshold is the duration past which an activity earns the
// long-term score bonus.
const longTermThreshold = 30 * 24 * time.Hour

// ScoreImpact derives the signed score delta a completed activity feeds into
// the realtime score path: validated profit earns a boost, any loss a
// reduction, and long-running activities a durability bonus.
func ScoreImpact(a *Activity, now time.Time) int64 {
	var impact int64

	if a.Outcome > 0 && a.IsValidated {
		impact += 50
	}
	if a.Outcome < 0 {
		impact -= 25
	}
	if now.Sub(a.CreatedAt) > longTermThreshold {
		impact += 25
	}
	return impact
}
