package quiz_test

import (
	"testing"
	"time"

	"github.com/mind-engage/mindengage-classroom/internal/quiz"
)

func TestEvaluateWindow(t *testing.T) {
	from := t0.Add(-time.Hour)
	until := t0.Add(time.Hour)
	l := quiz.Lesson{ID: "l1", AvailableFrom: &from, AvailableUntil: &until}

	cases := []struct {
		name   string
		now    time.Time
		role   quiz.Role
		locked bool
		reason string
		bypass bool
	}{
		{"before open", from.Add(-time.Second), quiz.RoleStudent, true, quiz.GateNotYetOpen, false},
		{"at open", from, quiz.RoleStudent, false, "", false},
		{"inside", t0, quiz.RoleStudent, false, "", false},
		{"at close", until, quiz.RoleStudent, false, "", false},
		{"after close", until.Add(time.Second), quiz.RoleStudent, true, quiz.GateClosed, false},
		{"after close admin", until.Add(time.Second), quiz.RoleAdmin, true, quiz.GateClosed, true},
		{"before open instructor", from.Add(-time.Minute), quiz.RoleInstructor, true, quiz.GateNotYetOpen, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := quiz.Evaluate(l, tc.now, tc.role)
			if g.Locked != tc.locked || g.Reason != tc.reason || g.Bypassed != tc.bypass {
				t.Fatalf("got %+v, want locked=%v reason=%q bypassed=%v", g, tc.locked, tc.reason, tc.bypass)
			}
		})
	}

	if g := quiz.Evaluate(quiz.Lesson{ID: "open"}, t0, quiz.RoleStudent); g.Locked {
		t.Fatalf("lesson without window should be open, got %+v", g)
	}
}

func TestGetAttemptInfoMissingEntry(t *testing.T) {
	info := quiz.GetAttemptInfo(quiz.Ledger{}, "nope")
	if info.Attempts != 0 || info.LastAttemptAt != nil || info.Score != nil {
		t.Fatalf("want zero info, got %+v", info)
	}
	info = quiz.GetAttemptInfo(nil, "nope")
	if info.Attempts != 0 {
		t.Fatalf("nil ledger: want zero info, got %+v", info)
	}
}

func TestCanStart(t *testing.T) {
	lim := quiz.DefaultLimits()
	open := quiz.GateResult{}
	closed := quiz.GateResult{Locked: true, Reason: quiz.GateClosed}

	cases := []struct {
		name   string
		ledger quiz.Ledger
		gate   quiz.GateResult
		role   quiz.Role
		now    time.Time
		allow  bool
		reason quiz.DenyReason
	}{
		{"first attempt", quiz.Ledger{}, open, quiz.RoleStudent, t0, true, ""},
		{"inside cooldown", ledgerWith("l1", 1, t0), open, quiz.RoleStudent, t0.Add(40 * time.Hour), false, quiz.DenyCooldown},
		{"cooldown boundary", ledgerWith("l1", 1, t0), open, quiz.RoleStudent, t0.Add(48 * time.Hour), true, ""},
		{"after cooldown", ledgerWith("l1", 1, t0), open, quiz.RoleStudent, t0.Add(50 * time.Hour), true, ""},
		{"exhausted after cooldown", ledgerWith("l1", 2, t0), open, quiz.RoleStudent, t0.Add(500 * time.Hour), false, quiz.DenyAttemptsExhausted},
		{"exhausted inside cooldown", ledgerWith("l1", 2, t0), open, quiz.RoleStudent, t0.Add(time.Hour), false, quiz.DenyAttemptsExhausted},
		{"locked student", quiz.Ledger{}, closed, quiz.RoleStudent, t0, false, quiz.DenyLocked},
		{"locked wins over exhausted", ledgerWith("l1", 2, t0), closed, quiz.RoleStudent, t0, false, quiz.DenyLocked},
		{"admin past everything", ledgerWith("l1", 7, t0), closed, quiz.RoleAdmin, t0.Add(time.Minute), true, ""},
		{"instructor in cooldown", ledgerWith("l1", 1, t0), open, quiz.RoleInstructor, t0.Add(time.Minute), true, ""},
		{"other lesson untouched", ledgerWith("other", 2, t0), open, quiz.RoleStudent, t0, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := quiz.CanStart(tc.ledger, "l1", tc.gate, tc.role, tc.now, lim)
			if d.Allowed != tc.allow || d.Reason != tc.reason {
				t.Fatalf("got %+v, want allowed=%v reason=%q", d, tc.allow, tc.reason)
			}
		})
	}
}

func TestCanStartCooldownUntil(t *testing.T) {
	d := quiz.CanStart(ledgerWith("l1", 1, t0), "l1", quiz.GateResult{}, quiz.RoleStudent, t0.Add(40*time.Hour), quiz.DefaultLimits())
	if d.Reason != quiz.DenyCooldown || d.Until == nil {
		t.Fatalf("want cooldown with until, got %+v", d)
	}
	if want := t0.Add(48 * time.Hour); !d.Until.Equal(want) {
		t.Fatalf("until = %v, want %v", d.Until, want)
	}
}

func TestCanStartLockedDetailAndBanner(t *testing.T) {
	closed := quiz.GateResult{Locked: true, Reason: quiz.GateClosed}

	d := quiz.CanStart(quiz.Ledger{}, "l1", closed, quiz.RoleStudent, t0, quiz.DefaultLimits())
	if d.Allowed || d.Reason != quiz.DenyLocked || d.Detail != quiz.GateClosed {
		t.Fatalf("student: got %+v", d)
	}
	d = quiz.CanStart(quiz.Ledger{}, "l1", closed, quiz.RoleAdmin, t0, quiz.DefaultLimits())
	if !d.Allowed || d.Banner != quiz.GateClosed {
		t.Fatalf("admin: got %+v", d)
	}
}

func TestCheckStartScenarios(t *testing.T) {
	past := t0.Add(-24 * time.Hour)
	lim := quiz.DefaultLimits()

	t.Run("E closed window", func(t *testing.T) {
		l := quizLesson("l1", 90, makePool(3))
		l.AvailableUntil = &past
		_, d := quiz.CheckStart(l, quiz.Ledger{}, quiz.RoleStudent, t0, lim)
		if d.Allowed || d.Reason != quiz.DenyLocked {
			t.Fatalf("student: got %+v", d)
		}
		g, d := quiz.CheckStart(l, quiz.Ledger{}, quiz.RoleAdmin, t0, lim)
		if !d.Allowed || d.Banner != quiz.GateClosed || !g.Bypassed {
			t.Fatalf("admin: gate %+v decision %+v", g, d)
		}
	})

	t.Run("F empty pool", func(t *testing.T) {
		l := quizLesson("l1", 90, quiz.QuestionPool{})
		_, d := quiz.CheckStart(l, quiz.Ledger{}, quiz.RoleStudent, t0, lim)
		if d.Allowed || d.Reason != quiz.DenyNoQuestions {
			t.Fatalf("got %+v", d)
		}
		_, d = quiz.CheckStart(l, quiz.Ledger{}, quiz.RoleAdmin, t0, lim)
		if d.Allowed || d.Reason != quiz.DenyNoQuestions {
			t.Fatalf("admin: got %+v", d)
		}
	})

	t.Run("malformed question", func(t *testing.T) {
		p := makePool(2)
		for i := range p.Questions[1].Options {
			p.Questions[1].Options[i].IsCorrect = false
		}
		_, d := quiz.CheckStart(quizLesson("l1", 10, p), quiz.Ledger{}, quiz.RoleStudent, t0, lim)
		if d.Allowed || d.Reason != quiz.DenyInvalidQuiz {
			t.Fatalf("got %+v", d)
		}
	})
}

func TestValidatePool(t *testing.T) {
	two := 2
	cases := []struct {
		name string
		pool quiz.QuestionPool
		ok   bool
	}{
		{"valid", makePool(3), true},
		{"empty", quiz.QuestionPool{}, false},
		{"no options", quiz.QuestionPool{Questions: []quiz.Question{{ID: "a"}}}, false},
		{"two correct", quiz.QuestionPool{Questions: []quiz.Question{{ID: "a", Options: []quiz.Option{{Text: "x", IsCorrect: true}, {Text: "y", IsCorrect: true}}}}}, false},
		{"index in range", quiz.QuestionPool{Questions: []quiz.Question{{ID: "a", CorrectIndex: &two, Options: []quiz.Option{{Text: "x"}, {Text: "y"}, {Text: "z"}}}}}, true},
		{"index out of range", quiz.QuestionPool{Questions: []quiz.Question{{ID: "a", CorrectIndex: &two, Options: []quiz.Option{{Text: "x"}}}}}, false},
		{"true_false with three options", quiz.QuestionPool{Questions: []quiz.Question{{ID: "a", Kind: "true_false", Options: []quiz.Option{{Text: "t", IsCorrect: true}, {Text: "f"}, {Text: "?"}}}}}, false},
		{"unknown kind", quiz.QuestionPool{Questions: []quiz.Question{{ID: "a", Kind: "essay", Options: []quiz.Option{{Text: "t", IsCorrect: true}}}}}, false},
		{"predicate", quiz.QuestionPool{Questions: []quiz.Question{{ID: "a", Options: []quiz.Option{{Text: "1"}, {Text: "2"}}, CorrectPredicate: func(i int) bool { return i == 1 }}}}, true},
		{"predicate rejects all", quiz.QuestionPool{Questions: []quiz.Question{{ID: "a", Options: []quiz.Option{{Text: "1"}}, CorrectPredicate: func(int) bool { return false }}}}, false},
		{"duplicate ids", quiz.QuestionPool{Questions: append(makePool(1).Questions, makePool(1).Questions...)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := quiz.ValidatePool(tc.pool)
			if (err == nil) != tc.ok {
				t.Fatalf("ValidatePool err=%v, want ok=%v", err, tc.ok)
			}
		})
	}
}
