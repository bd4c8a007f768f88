package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-classroom/internal/quiz"
)

// SQLStore serves lessons and enrollments from the classroom schema
// created by db.Open (sqlite or postgres).
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutLesson(ctx context.Context, l quiz.Lesson) error {
	pool, err := json.Marshal(l.Pool)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO lessons (id,class_id,type,title,points,available_from,available_until,quiz_data,description)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'')
		ON CONFLICT (id) DO UPDATE SET class_id=EXCLUDED.class_id, type=EXCLUDED.type, title=EXCLUDED.title,
			points=EXCLUDED.points, available_from=EXCLUDED.available_from,
			available_until=EXCLUDED.available_until, quiz_data=EXCLUDED.quiz_data`,
		l.ID, l.ClassID, string(l.Type), l.Title, l.Points, unixMilliOrNull(l.AvailableFrom), unixMilliOrNull(l.AvailableUntil), string(pool))
	return err
}

func (s *SQLStore) FetchLesson(ctx context.Context, id string) (quiz.Lesson, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,class_id,type,title,points,available_from,available_until,quiz_data
		FROM lessons WHERE id=$1`, id)
	var (
		l        quiz.Lesson
		typ      string
		from, to sql.NullInt64
		pool     string
	)
	if err := row.Scan(&l.ID, &l.ClassID, &typ, &l.Title, &l.Points, &from, &to, &pool); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.Lesson{}, quiz.ErrLessonNotFound
		}
		return quiz.Lesson{}, err
	}
	l.Type = quiz.LessonType(typ)
	l.AvailableFrom = timeFromMilli(from)
	l.AvailableUntil = timeFromMilli(to)
	if pool != "" {
		if err := json.Unmarshal([]byte(pool), &l.Pool); err != nil {
			return quiz.Lesson{}, fmt.Errorf("lesson %s: quiz_data: %w", id, err)
		}
	}
	return l, nil
}

func (s *SQLStore) PutEnrollment(ctx context.Context, e quiz.Enrollment) error {
	buf, err := json.Marshal(e.Ledger)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO enrollments (id,user_id,class_id,ledger_json,version,created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET user_id=EXCLUDED.user_id, class_id=EXCLUDED.class_id,
			ledger_json=EXCLUDED.ledger_json, version=EXCLUDED.version`,
		e.ID, e.UserID, e.ClassID, string(buf), e.Version, time.Now().Unix())
	return err
}

func (s *SQLStore) FetchEnrollment(ctx context.Context, id string) (quiz.Enrollment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,user_id,class_id,ledger_json,version FROM enrollments WHERE id=$1`, id)
	var e quiz.Enrollment
	var ljson string
	if err := row.Scan(&e.ID, &e.UserID, &e.ClassID, &ljson, &e.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.Enrollment{}, quiz.ErrEnrollmentNotFound
		}
		return quiz.Enrollment{}, err
	}
	e.Ledger = quiz.Ledger{}
	if ljson != "" {
		if err := json.Unmarshal([]byte(ljson), &e.Ledger); err != nil {
			return quiz.Enrollment{}, fmt.Errorf("enrollment %s: %w", id, err)
		}
	}
	return e, nil
}

// UpdateLedger writes the whole ledger in one statement and bumps the version.
func (s *SQLStore) UpdateLedger(ctx context.Context, id string, l quiz.Ledger, cond quiz.WriteCondition) (int64, error) {
	buf, err := json.Marshal(l)
	if err != nil {
		return 0, err
	}
	q := `UPDATE enrollments SET ledger_json=$1, version=version+1 WHERE id=$2 RETURNING version`
	args := []any{string(buf), id}
	if cond.Enforce {
		q = `UPDATE enrollments SET ledger_json=$1, version=version+1 WHERE id=$2 AND version=$3 RETURNING version`
		args = append(args, cond.ExpectVersion)
	}
	var v int64
	err = s.db.QueryRowContext(ctx, q, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		var exists int
		if e := s.db.QueryRowContext(ctx, `SELECT 1 FROM enrollments WHERE id=$1`, id).Scan(&exists); e != nil {
			if errors.Is(e, sql.ErrNoRows) {
				return 0, quiz.ErrEnrollmentNotFound
			}
			return 0, e
		}
		return 0, quiz.ErrStaleLedger
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

// Availability bounds are stored as Unix milliseconds so the gate sees the
// same instant it was given.
func unixMilliOrNull(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func timeFromMilli(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
