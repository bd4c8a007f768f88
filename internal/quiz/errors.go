package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	// ErrStaleLedger means a conditional ledger write lost to a concurrent writer.
	ErrStaleLedger = errors.New("ledger changed since it was read")

	ErrForbidden        = errors.New("enrollment belongs to another user")
	ErrNotOpen          = errors.New("no lesson open")
	ErrNotQuiz          = errors.New("lesson is not a quiz")
	ErrNotStarted       = errors.New("quiz session not started")
	ErrAlreadyStarted   = errors.New("quiz session already in progress")
	ErrAlreadySubmitted = errors.New("quiz session already submitted")
	ErrOptionOutOfRange = errors.New("option index out of range")
	ErrNothingToSave    = errors.New("no pending result to save")
	ErrSessionActive    = errors.New("another session is active for this lesson")
	ErrSessionNotFound  = errors.New("quiz session not found")
	ErrSessionExpired   = errors.New("quiz session expired")
)

// ConfigurationError reports a question pool that cannot be run.
type ConfigurationError struct {
	Reason     DenyReason
	QuestionID string
	Msg        string
}

func (e *ConfigurationError) Error() string {
	if e.QuestionID != "" {
		return fmt.Sprintf("question %s: %s", e.QuestionID, e.Msg)
	}
	return e.Msg
}

// DeniedError is returned by Start when the start check refuses the attempt.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	if e.Decision.Detail != "" {
		return fmt.Sprintf("start denied: %s (%s)", e.Decision.Reason, e.Decision.Detail)
	}
	return fmt.Sprintf("start denied: %s", e.Decision.Reason)
}

// PersistenceError is a failed ledger write. Result holds the computed
// outcome so the caller can offer a retry without re-scoring.
type PersistenceError struct {
	Result Result
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("save attempt: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Stale reports whether the write lost a version race.
func (e *PersistenceError) Stale() bool { return errors.Is(e.Err, ErrStaleLedger) }
