package quiz

import (
	"errors"
	"time"
)

const (
	DefaultMaxAttempts   = 2
	DefaultCooldownHours = 48
)

type DenyReason string

const (
	DenyLocked            DenyReason = "locked"
	DenyAttemptsExhausted DenyReason = "attempts_exhausted"
	DenyCooldown          DenyReason = "cooldown"
	DenyNoQuestions       DenyReason = "no_questions"
	DenyInvalidQuiz       DenyReason = "invalid_quiz"
)

// Limits are the attempt rules applied to non-privileged roles.
type Limits struct {
	MaxAttempts int
	Cooldown    time.Duration
	// CountPrivilegedAttempts controls whether instructor/admin attempts
	// are written to the ledger at all.
	CountPrivilegedAttempts bool
}

func DefaultLimits() Limits {
	return Limits{
		MaxAttempts:             DefaultMaxAttempts,
		Cooldown:                DefaultCooldownHours * time.Hour,
		CountPrivilegedAttempts: true,
	}
}

// Decision is the outcome of a start check. A denial is a normal value, not an error.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
	Detail  string     `json:"detail,omitempty"`
	Until   *time.Time `json:"until,omitempty"`
	// Banner is informational only: a lock a privileged role walked past.
	Banner string `json:"banner,omitempty"`
}

func allow(g GateResult) Decision {
	d := Decision{Allowed: true}
	if g.Locked {
		d.Banner = g.Reason
	}
	return d
}

func deny(r DenyReason, detail string) Decision {
	return Decision{Reason: r, Detail: detail}
}

// CanStart decides whether a new attempt may begin. It has no side effects
// and is meant to be called both when rendering and when starting.
func CanStart(l Ledger, lessonID string, g GateResult, role Role, now time.Time, lim Limits) Decision {
	if role.Privileged() {
		return allow(g)
	}
	if g.Locked {
		return deny(DenyLocked, g.Reason)
	}
	info := GetAttemptInfo(l, lessonID)
	if info.Attempts >= lim.MaxAttempts {
		return deny(DenyAttemptsExhausted, "")
	}
	if info.Attempts > 0 && info.LastAttemptAt != nil {
		until := info.LastAttemptAt.Add(lim.Cooldown)
		if now.Before(until) {
			d := deny(DenyCooldown, until.UTC().Format(time.RFC3339))
			d.Until = &until
			return d
		}
	}
	return allow(g)
}

// CheckStart runs the gate, the attempt policy and pool validation together,
// the same way for the status screen and for the start action.
func CheckStart(lesson Lesson, l Ledger, role Role, now time.Time, lim Limits) (GateResult, Decision) {
	g := Evaluate(lesson, now, role)
	d := CanStart(l, lesson.ID, g, role, now, lim)
	if !d.Allowed {
		return g, d
	}
	if err := ValidatePool(lesson.Pool); err != nil {
		var ce *ConfigurationError
		if errors.As(err, &ce) && ce.Reason == DenyNoQuestions {
			return g, deny(DenyNoQuestions, ce.Error())
		}
		return g, deny(DenyInvalidQuiz, err.Error())
	}
	return g, d
}
