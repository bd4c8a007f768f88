package quiz

import "time"

const (
	GateNotYetOpen = "not yet open"
	GateClosed     = "closed"
)

// GateResult is the availability-window decision for a lesson.
// Locked reflects the window only; Bypassed is set when the role may enter anyway.
type GateResult struct {
	Locked   bool   `json:"locked"`
	Reason   string `json:"reason,omitempty"`
	Bypassed bool   `json:"bypassed,omitempty"`
}

// Evaluate checks now against the lesson's availability window.
func Evaluate(l Lesson, now time.Time, role Role) GateResult {
	var g GateResult
	switch {
	case l.AvailableFrom != nil && now.Before(*l.AvailableFrom):
		g = GateResult{Locked: true, Reason: GateNotYetOpen}
	case l.AvailableUntil != nil && now.After(*l.AvailableUntil):
		g = GateResult{Locked: true, Reason: GateClosed}
	default:
		return GateResult{}
	}
	g.Bypassed = role.Privileged()
	return g
}
