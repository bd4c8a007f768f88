package quiz

import (
	"fmt"

	"github.com/mind-engage/mindengage-classroom/internal/grading"
)

var defaultGrader = grading.NewDefaultGrader()

// ValidatePool rejects pools that cannot be started. An empty pool is
// reported with reason no_questions, anything else as invalid_quiz.
func ValidatePool(p QuestionPool) error {
	if len(p.Questions) == 0 {
		return &ConfigurationError{Reason: DenyNoQuestions, Msg: "no questions configured"}
	}
	if p.Settings.DrawCount < 0 {
		return &ConfigurationError{Reason: DenyInvalidQuiz, Msg: "draw_count must be >= 0"}
	}
	seen := make(map[string]bool, len(p.Questions))
	for i, q := range p.Questions {
		id := q.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i+1)
		}
		if q.ID != "" && seen[q.ID] {
			return &ConfigurationError{Reason: DenyInvalidQuiz, QuestionID: id, Msg: "duplicate question id"}
		}
		seen[q.ID] = true
		if len(q.Options) == 0 {
			return &ConfigurationError{Reason: DenyInvalidQuiz, QuestionID: id, Msg: "no options"}
		}
		gq, err := q.gradingView()
		if err != nil {
			return &ConfigurationError{Reason: DenyInvalidQuiz, QuestionID: id, Msg: err.Error()}
		}
		if err := defaultGrader.Validate(gq); err != nil {
			return &ConfigurationError{Reason: DenyInvalidQuiz, QuestionID: id, Msg: err.Error()}
		}
	}
	return nil
}

// resolveCorrect returns the index of the correct option: the explicit
// correct_index when present, otherwise the single is_correct marker.
func (q Question) resolveCorrect() (int, error) {
	if q.CorrectIndex != nil {
		return *q.CorrectIndex, nil
	}
	idx := -1
	for i, o := range q.Options {
		if !o.IsCorrect {
			continue
		}
		if idx >= 0 {
			return -1, fmt.Errorf("more than one option marked correct")
		}
		idx = i
	}
	if idx < 0 {
		return -1, fmt.Errorf("no option marked correct")
	}
	return idx, nil
}

func (q Question) gradingView() (grading.Q, error) {
	gq := grading.Q{Kind: q.Kind, OptionCount: len(q.Options), CorrectIndex: -1}
	if q.CorrectPredicate != nil {
		gq.Predicate = q.CorrectPredicate
		return gq, nil
	}
	idx, err := q.resolveCorrect()
	if err != nil {
		return gq, err
	}
	gq.CorrectIndex = idx
	return gq, nil
}
