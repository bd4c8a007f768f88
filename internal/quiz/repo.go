package quiz

import "context"

// WriteCondition guards a ledger write. With Enforce set the write only
// lands if the stored version still equals ExpectVersion.
type WriteCondition struct {
	ExpectVersion int64
	Enforce       bool
}

type LessonStore interface {
	FetchLesson(ctx context.Context, lessonID string) (Lesson, error)
}

type EnrollmentStore interface {
	FetchEnrollment(ctx context.Context, enrollmentID string) (Enrollment, error)
	// UpdateLedger replaces the enrollment's ledger in one write and returns
	// the new version. It fails with ErrStaleLedger when cond is violated.
	UpdateLedger(ctx context.Context, enrollmentID string, l Ledger, cond WriteCondition) (int64, error)
}

// EventSink receives a record of every confirmed commit.
type EventSink interface {
	AttemptCommitted(ctx context.Context, c Commitment) error
}

// Commitment describes one ledger write that the store confirmed.
type Commitment struct {
	EnrollmentID string      `json:"enrollment_id"`
	UserID       string      `json:"user_id"`
	LessonID     string      `json:"lesson_id"`
	Attempt      int         `json:"attempt"`
	Score        ScoreResult `json:"score"`
	Version      int64       `json:"version"`
}
