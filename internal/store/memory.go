package store

import (
	"context"
	"sync"

	"github.com/mind-engage/mindengage-classroom/internal/quiz"
)

// Memory is an in-process lesson and enrollment store for offline demos and tests.
type Memory struct {
	mu          sync.RWMutex
	lessons     map[string]quiz.Lesson
	enrollments map[string]quiz.Enrollment
}

func NewMemory() *Memory {
	return &Memory{
		lessons:     map[string]quiz.Lesson{},
		enrollments: map[string]quiz.Enrollment{},
	}
}

func (m *Memory) PutLesson(l quiz.Lesson) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lessons[l.ID] = l
}

func (m *Memory) PutEnrollment(e quiz.Enrollment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.Ledger == nil {
		e.Ledger = quiz.Ledger{}
	}
	m.enrollments[e.ID] = e
}

func (m *Memory) FetchLesson(_ context.Context, id string) (quiz.Lesson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lessons[id]
	if !ok {
		return quiz.Lesson{}, quiz.ErrLessonNotFound
	}
	return l, nil
}

func (m *Memory) FetchEnrollment(_ context.Context, id string) (quiz.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enrollments[id]
	if !ok {
		return quiz.Enrollment{}, quiz.ErrEnrollmentNotFound
	}
	e.Ledger = e.Ledger.Clone()
	return e, nil
}

func (m *Memory) UpdateLedger(_ context.Context, id string, l quiz.Ledger, cond quiz.WriteCondition) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[id]
	if !ok {
		return 0, quiz.ErrEnrollmentNotFound
	}
	if cond.Enforce && e.Version != cond.ExpectVersion {
		return 0, quiz.ErrStaleLedger
	}
	e.Ledger = l.Clone()
	e.Version++
	m.enrollments[id] = e
	return e.Version, nil
}
