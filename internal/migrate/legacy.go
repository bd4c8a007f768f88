// Package migrate converts quiz lessons that still keep their questions as
// JSON inside description into the quiz_data column.
package migrate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-classroom/internal/db"
	"github.com/mind-engage/mindengage-classroom/internal/quiz"
)

var ErrNotLegacyJSON = errors.New("description is not a JSON question list")

type legacyItem struct {
	ID       string            `json:"id"`
	Question string            `json:"question"`
	Text     string            `json:"text"`
	Options  []json.RawMessage `json:"options"`
	Correct  *int              `json:"correct"`
	Answer   *int              `json:"answer"`
}

type legacyDoc struct {
	Questions []legacyItem `json:"questions"`
	DrawCount int          `json:"draw_count"`
	Random    bool         `json:"random"`
}

// ParseLegacy reads either a bare array of items or {"questions":[...]}.
func ParseLegacy(description string) (quiz.QuestionPool, error) {
	s := strings.TrimSpace(description)
	var doc legacyDoc
	switch {
	case strings.HasPrefix(s, "["):
		if err := json.Unmarshal([]byte(s), &doc.Questions); err != nil {
			return quiz.QuestionPool{}, fmt.Errorf("%w: %v", ErrNotLegacyJSON, err)
		}
	case strings.HasPrefix(s, "{"):
		if err := json.Unmarshal([]byte(s), &doc); err != nil {
			return quiz.QuestionPool{}, fmt.Errorf("%w: %v", ErrNotLegacyJSON, err)
		}
	default:
		return quiz.QuestionPool{}, ErrNotLegacyJSON
	}

	pool := quiz.QuestionPool{Settings: quiz.SamplingSettings{Mode: quiz.SampleFixed}}
	if doc.Random || doc.DrawCount > 0 {
		pool.Settings = quiz.SamplingSettings{Mode: quiz.SampleRandomDraw, DrawCount: doc.DrawCount}
	}
	for i, it := range doc.Questions {
		q := quiz.Question{ID: it.ID, Text: it.Question}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		if q.Text == "" {
			q.Text = it.Text
		}
		for j, raw := range it.Options {
			o, err := parseOption(raw)
			if err != nil {
				return quiz.QuestionPool{}, fmt.Errorf("question %s option %d: %w", q.ID, j, err)
			}
			q.Options = append(q.Options, o)
		}
		idx := it.Correct
		if idx == nil {
			idx = it.Answer
		}
		if idx != nil {
			for j := range q.Options {
				q.Options[j].IsCorrect = j == *idx
			}
		}
		pool.Questions = append(pool.Questions, q)
	}
	return pool, nil
}

func parseOption(raw json.RawMessage) (quiz.Option, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return quiz.Option{Text: text}, nil
	}
	var o quiz.Option
	if err := json.Unmarshal(raw, &o); err != nil {
		return quiz.Option{}, err
	}
	return o, nil
}

type Report struct {
	Scanned  int
	Migrated int
	Skipped  map[string]string // lessonID -> why
}

// Run migrates every quiz lesson with empty quiz_data. Lessons whose legacy
// pool does not validate are reported and left alone.
func Run(ctx context.Context, h *sql.DB, dryRun bool) (Report, error) {
	rep := Report{Skipped: map[string]string{}}
	rows, err := h.QueryContext(ctx,
		`SELECT id, description FROM lessons WHERE type=$1 AND quiz_data=''`, string(quiz.LessonQuiz))
	if err != nil {
		return rep, err
	}
	pending := map[string]string{}
	for rows.Next() {
		var id, desc string
		if err := rows.Scan(&id, &desc); err != nil {
			rows.Close()
			return rep, err
		}
		rep.Scanned++
		pool, err := ParseLegacy(desc)
		if err == nil {
			err = quiz.ValidatePool(pool)
		}
		if err != nil {
			rep.Skipped[id] = err.Error()
			continue
		}
		buf, err := json.Marshal(pool)
		if err != nil {
			rep.Skipped[id] = err.Error()
			continue
		}
		pending[id] = string(buf)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return rep, err
	}
	if dryRun || len(pending) == 0 {
		rep.Migrated = len(pending)
		return rep, nil
	}
	err = db.WithTx(ctx, h, func(tx *sql.Tx) error {
		for id, data := range pending {
			if _, err := tx.ExecContext(ctx, `UPDATE lessons SET quiz_data=$1 WHERE id=$2 AND quiz_data=''`, data, id); err != nil {
				return fmt.Errorf("lesson %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return rep, err
	}
	rep.Migrated = len(pending)
	return rep, nil
}
