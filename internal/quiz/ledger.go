package quiz

import (
	"encoding/json"
	"fmt"
	"time"
)

// LedgerEntry is the per-lesson attempt record of one enrollment.
type LedgerEntry struct {
	Attempts      int
	LastAttemptAt *time.Time
	Score         *float64
	Completed     bool
}

// Ledger maps lessonID -> entry. It is owned by an Enrollment and only grows.
type Ledger map[string]LedgerEntry

type AttemptInfo struct {
	Attempts      int        `json:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	Score         *float64   `json:"score"`
	Completed     bool       `json:"completed"`
}

// GetAttemptInfo reads the entry for lessonID; a missing entry reads as zero attempts.
func GetAttemptInfo(l Ledger, lessonID string) AttemptInfo {
	e, ok := l[lessonID]
	if !ok {
		return AttemptInfo{}
	}
	return AttemptInfo{
		Attempts:      e.Attempts,
		LastAttemptAt: e.LastAttemptAt,
		Score:         e.Score,
		Completed:     e.Completed,
	}
}

// Commit records one finished attempt and returns the updated copy.
// The input ledger is left untouched. Only the latest score is kept.
func Commit(l Ledger, lessonID string, res ScoreResult, now time.Time) Ledger {
	out := l.Clone()
	e := out[lessonID]
	at := now.UTC()
	score := res.FinalScore
	e.Attempts++
	e.LastAttemptAt = &at
	e.Score = &score
	e.Completed = true
	out[lessonID] = e
	return out
}

func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l)+1)
	for k, e := range l {
		if e.LastAttemptAt != nil {
			t := *e.LastAttemptAt
			e.LastAttemptAt = &t
		}
		if e.Score != nil {
			s := *e.Score
			e.Score = &s
		}
		out[k] = e
	}
	return out
}

// ---- wire format ----
//
// The enrollment row stores the ledger with the field names the authoring
// and reporting tools read:
//
//	{"attempts":{"l1":1},"attempt_meta":{"l1":{"last_attempt_at":"..."}},
//	 "scores":{"l1":60},"completed":{"l1":true}}

type attemptMeta struct {
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

type ledgerWire struct {
	Attempts    map[string]int         `json:"attempts"`
	AttemptMeta map[string]attemptMeta `json:"attempt_meta"`
	Scores      map[string]float64     `json:"scores"`
	Completed   json.RawMessage        `json:"completed,omitempty"`
}

func (l Ledger) MarshalJSON() ([]byte, error) {
	w := struct {
		Attempts    map[string]int         `json:"attempts"`
		AttemptMeta map[string]attemptMeta `json:"attempt_meta"`
		Scores      map[string]float64     `json:"scores"`
		Completed   map[string]bool        `json:"completed"`
	}{
		Attempts:    map[string]int{},
		AttemptMeta: map[string]attemptMeta{},
		Scores:      map[string]float64{},
		Completed:   map[string]bool{},
	}
	for id, e := range l {
		w.Attempts[id] = e.Attempts
		if e.LastAttemptAt != nil {
			t := e.LastAttemptAt.UTC()
			w.AttemptMeta[id] = attemptMeta{LastAttemptAt: &t}
		}
		if e.Score != nil {
			w.Scores[id] = *e.Score
		}
		if e.Completed {
			w.Completed[id] = true
		}
	}
	return json.Marshal(w)
}

func (l *Ledger) UnmarshalJSON(b []byte) error {
	var w ledgerWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	out := Ledger{}
	touch := func(id string) LedgerEntry { return out[id] }

	for id, n := range w.Attempts {
		e := touch(id)
		e.Attempts = n
		out[id] = e
	}
	for id, m := range w.AttemptMeta {
		e := touch(id)
		e.LastAttemptAt = m.LastAttemptAt
		out[id] = e
	}
	for id, s := range w.Scores {
		e := touch(id)
		v := s
		e.Score = &v
		out[id] = e
	}
	completed, err := decodeCompleted(w.Completed)
	if err != nil {
		return err
	}
	for _, id := range completed {
		e := touch(id)
		e.Completed = true
		out[id] = e
	}
	*l = out
	return nil
}

// completed is a {lesson:true} object; older rows carry a plain list of lesson IDs.
func decodeCompleted(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var asMap map[string]bool
	if err := json.Unmarshal(raw, &asMap); err == nil {
		ids := make([]string, 0, len(asMap))
		for id, done := range asMap {
			if done {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}
	var asList []string
	if err := json.Unmarshal(raw, &asList); err != nil {
		return nil, fmt.Errorf("ledger: completed: %w", err)
	}
	return asList, nil
}
