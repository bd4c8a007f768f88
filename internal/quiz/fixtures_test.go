package quiz_test

import (
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-classroom/internal/quiz"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// makePool builds n three-option questions; question i has option i%3 correct.
func makePool(n int) quiz.QuestionPool {
	p := quiz.QuestionPool{}
	for i := 0; i < n; i++ {
		q := quiz.Question{ID: fmt.Sprintf("q%d", i+1), Text: fmt.Sprintf("question %d", i+1)}
		for j := 0; j < 3; j++ {
			q.Options = append(q.Options, quiz.Option{Text: fmt.Sprintf("opt %d", j), IsCorrect: j == i%3})
		}
		p.Questions = append(p.Questions, q)
	}
	return p
}

func correctIndex(q quiz.Question) int {
	if q.CorrectIndex != nil {
		return *q.CorrectIndex
	}
	for i, o := range q.Options {
		if o.IsCorrect {
			return i
		}
	}
	return -1
}

func wrongIndex(q quiz.Question) int {
	return (correctIndex(q) + 1) % len(q.Options)
}

func allCorrect(qs []quiz.Question) map[int]int {
	out := map[int]int{}
	for i, q := range qs {
		out[i] = correctIndex(q)
	}
	return out
}

func quizLesson(id string, points float64, pool quiz.QuestionPool) quiz.Lesson {
	return quiz.Lesson{ID: id, Type: quiz.LessonQuiz, Title: "Quiz " + id, Points: points, Pool: pool}
}

func ledgerWith(lessonID string, attempts int, last time.Time) quiz.Ledger {
	return quiz.Ledger{lessonID: {Attempts: attempts, LastAttemptAt: &last}}
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }
