package quiz

import (
	"math"

	"github.com/mind-engage/mindengage-classroom/internal/grading"
)

type ScoreResult struct {
	CorrectCount int     `json:"correct_count"`
	Total        int     `json:"total"`
	FinalScore   float64 `json:"final_score"`
}

// Score grades answers (question index -> option index) against the sampled
// questions. Missing answers count as wrong. The final score is
// round-half-up(correct/total * points), clamped to [0, points].
func Score(questions []Question, answers map[int]int, totalPoints float64) ScoreResult {
	res := ScoreResult{Total: len(questions)}
	if len(questions) == 0 {
		return res
	}
	for i, q := range questions {
		gq, err := q.gradingView()
		if err != nil {
			continue
		}
		sel, answered := answers[i]
		r, err := defaultGrader.Grade(gq, grading.Response{Selected: sel, Answered: answered})
		if err == nil && r.Correct {
			res.CorrectCount++
		}
	}
	raw := float64(res.CorrectCount) * totalPoints / float64(len(questions))
	res.FinalScore = clamp(math.Floor(raw+0.5), 0, math.Max(totalPoints, 0))
	return res
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
