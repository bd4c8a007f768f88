package grading

import (
	"errors"
	"fmt"
)

const (
	KindSingleChoice = "single_choice"
	KindTrueFalse    = "true_false"
)

var ErrNoStrategy = errors.New("no strategy available")

// Q is the minimal view of a question needed for grading.
// Options are index-addressed; CorrectIndex is the resolved key.
type Q struct {
	Kind         string
	OptionCount  int
	CorrectIndex int
	Predicate    func(optionIndex int) bool
}

// Response is the learner's pick for one question. Answered=false means skipped.
type Response struct {
	Selected int
	Answered bool
}

// Result is the outcome of grading a single question response.
type Result struct {
	Correct  bool
	Feedback []string
}

// Strategy grades a single question.
type Strategy interface {
	Grade(q Q, r Response) Result
	Validate(q Q) error
}

// Grader routes by question kind to the correct Strategy.
type Grader interface {
	Grade(q Q, r Response) (Result, error)
	Validate(q Q) error
}

type defaultGrader struct {
	strategies map[string]Strategy
	predicate  Strategy
}

func (g *defaultGrader) strategyFor(q Q) (Strategy, error) {
	if q.Predicate != nil {
		return g.predicate, nil
	}
	kind := q.Kind
	if kind == "" {
		kind = KindSingleChoice
	}
	s, ok := g.strategies[kind]
	if !ok {
		return nil, fmt.Errorf("%w for kind %q", ErrNoStrategy, kind)
	}
	return s, nil
}

func (g *defaultGrader) Grade(q Q, r Response) (Result, error) {
	s, err := g.strategyFor(q)
	if err != nil {
		return Result{Feedback: []string{err.Error()}}, err
	}
	return s.Grade(q, r), nil
}

func (g *defaultGrader) Validate(q Q) error {
	s, err := g.strategyFor(q)
	if err != nil {
		return err
	}
	return s.Validate(q)
}

// Engine options

type Option func(*config)

type config struct {
	extra map[string]Strategy
}

// WithStrategy installs or replaces the strategy for a question kind.
func WithStrategy(kind string, s Strategy) Option {
	return func(c *config) { c.extra[kind] = s }
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{extra: map[string]Strategy{}}
	for _, o := range opts {
		o(cfg)
	}
	g := &defaultGrader{
		strategies: map[string]Strategy{
			KindSingleChoice: singleChoiceStrategy{minOptions: 1},
			KindTrueFalse:    singleChoiceStrategy{minOptions: 2, maxOptions: 2},
		},
		predicate: predicateStrategy{},
	}
	for k, s := range cfg.extra {
		g.strategies[k] = s
	}
	return g
}

// --- Strategies ---

type singleChoiceStrategy struct{ minOptions, maxOptions int }

func (singleChoiceStrategy) Grade(q Q, r Response) Result {
	if !r.Answered {
		return Result{Feedback: []string{"unanswered"}}
	}
	return Result{Correct: r.Selected == q.CorrectIndex}
}

func (s singleChoiceStrategy) Validate(q Q) error {
	if q.OptionCount < s.minOptions {
		return fmt.Errorf("needs at least %d option(s), has %d", s.minOptions, q.OptionCount)
	}
	if s.maxOptions > 0 && q.OptionCount > s.maxOptions {
		return fmt.Errorf("allows at most %d options, has %d", s.maxOptions, q.OptionCount)
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= q.OptionCount {
		return fmt.Errorf("correct index %d out of range [0,%d)", q.CorrectIndex, q.OptionCount)
	}
	return nil
}

type predicateStrategy struct{}

func (predicateStrategy) Grade(q Q, r Response) Result {
	if !r.Answered || r.Selected < 0 || r.Selected >= q.OptionCount {
		return Result{}
	}
	return Result{Correct: q.Predicate(r.Selected)}
}

// Validate requires at least one option the predicate accepts.
func (predicateStrategy) Validate(q Q) error {
	for i := 0; i < q.OptionCount; i++ {
		if q.Predicate(i) {
			return nil
		}
	}
	return errors.New("predicate accepts none of the options")
}
