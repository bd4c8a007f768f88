package grading_test

import (
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-classroom/internal/grading"
)

func TestDefaultGraderSingleChoice(t *testing.T) {
	g := grading.NewDefaultGrader()
	q := grading.Q{OptionCount: 4, CorrectIndex: 2}

	cases := []struct {
		name string
		r    grading.Response
		want bool
	}{
		{"right", grading.Response{Selected: 2, Answered: true}, true},
		{"wrong", grading.Response{Selected: 1, Answered: true}, false},
		{"skipped", grading.Response{Selected: 2}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := g.Grade(q, tc.r)
			if err != nil {
				t.Fatal(err)
			}
			if res.Correct != tc.want {
				t.Fatalf("correct = %v, want %v", res.Correct, tc.want)
			}
		})
	}
}

func TestDefaultGraderValidate(t *testing.T) {
	g := grading.NewDefaultGrader()
	cases := []struct {
		name string
		q    grading.Q
		ok   bool
	}{
		{"single ok", grading.Q{OptionCount: 3, CorrectIndex: 0}, true},
		{"single no options", grading.Q{OptionCount: 0, CorrectIndex: 0}, false},
		{"single key out of range", grading.Q{OptionCount: 2, CorrectIndex: 2}, false},
		{"true_false ok", grading.Q{Kind: grading.KindTrueFalse, OptionCount: 2, CorrectIndex: 1}, true},
		{"true_false three options", grading.Q{Kind: grading.KindTrueFalse, OptionCount: 3, CorrectIndex: 1}, false},
		{"predicate ok", grading.Q{OptionCount: 3, CorrectIndex: -1, Predicate: func(i int) bool { return i == 2 }}, true},
		{"predicate none", grading.Q{OptionCount: 3, CorrectIndex: -1, Predicate: func(int) bool { return false }}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := g.Validate(tc.q); (err == nil) != tc.ok {
				t.Fatalf("err = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestUnknownKind(t *testing.T) {
	g := grading.NewDefaultGrader()
	_, err := g.Grade(grading.Q{Kind: "essay", OptionCount: 1}, grading.Response{Answered: true})
	if !errors.Is(err, grading.ErrNoStrategy) {
		t.Fatalf("err = %v", err)
	}
}

type alwaysRight struct{}

func (alwaysRight) Grade(grading.Q, grading.Response) grading.Result {
	return grading.Result{Correct: true}
}
func (alwaysRight) Validate(grading.Q) error { return nil }

func TestWithStrategy(t *testing.T) {
	g := grading.NewDefaultGrader(grading.WithStrategy("survey", alwaysRight{}))
	res, err := g.Grade(grading.Q{Kind: "survey"}, grading.Response{})
	if err != nil || !res.Correct {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}

func TestPredicateIgnoresOutOfRange(t *testing.T) {
	g := grading.NewDefaultGrader()
	q := grading.Q{OptionCount: 2, Predicate: func(int) bool { return true }}
	res, err := g.Grade(q, grading.Response{Selected: 5, Answered: true})
	if err != nil || res.Correct {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}
