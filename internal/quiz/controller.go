package quiz

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Result is what a finished attempt produced and whether it is durable yet.
type Result struct {
	LessonID    string      `json:"lesson_id"`
	Score       ScoreResult `json:"score"`
	Attempt     int         `json:"attempt"`
	SubmittedAt time.Time   `json:"submitted_at"`
	// Recorded is false for privileged attempts that are not counted.
	Recorded bool `json:"recorded"`
	Saved    bool `json:"saved"`
}

// Status is what the intro screen renders before an attempt.
type Status struct {
	LessonID    string      `json:"lesson_id"`
	Title       string      `json:"title,omitempty"`
	Points      float64     `json:"points"`
	Questions   int         `json:"questions"`
	Gate        GateResult  `json:"gate"`
	Decision    Decision    `json:"decision"`
	Attempt     AttemptInfo `json:"attempt"`
	MaxAttempts int         `json:"max_attempts"`
}

type pendingCommit struct {
	result Result
	ledger Ledger
	base   int64
	stale  bool
}

// Controller owns one learner's quiz for one lesson: it loads the lesson and
// enrollment, gates the start, drives the Session and commits the ledger.
// It is safe for concurrent use.
type Controller struct {
	lessons     LessonStore
	enrollments EnrollmentStore
	events      EventSink
	limits      Limits
	conditional bool
	now         func() time.Time
	sampleOpts  []SampleOption
	observer    func(from, to State)

	mu         sync.Mutex
	viewer     Viewer
	lesson     *Lesson
	enrollment *Enrollment
	session    *Session
	pending    *pendingCommit
}

type ControllerOption func(*Controller)

func WithLimits(l Limits) ControllerOption { return func(c *Controller) { c.limits = l } }

func WithClock(now func() time.Time) ControllerOption { return func(c *Controller) { c.now = now } }

func WithSampleOptions(opts ...SampleOption) ControllerOption {
	return func(c *Controller) { c.sampleOpts = opts }
}

func WithEventSink(s EventSink) ControllerOption { return func(c *Controller) { c.events = s } }

func WithStateObserver(fn func(from, to State)) ControllerOption {
	return func(c *Controller) { c.observer = fn }
}

// WithConditionalWrites makes every ledger write conditional on the version read.
func WithConditionalWrites(on bool) ControllerOption {
	return func(c *Controller) { c.conditional = on }
}

func NewController(lessons LessonStore, enrollments EnrollmentStore, opts ...ControllerOption) *Controller {
	c := &Controller{
		lessons:     lessons,
		enrollments: enrollments,
		limits:      DefaultLimits(),
		conditional: true,
		now:         time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open loads the lesson and enrollment for viewer and reports whether an
// attempt could start now.
func (c *Controller) Open(ctx context.Context, lessonID, enrollmentID string, v Viewer) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy() {
		return Status{}, ErrAlreadyStarted
	}
	lesson, err := c.lessons.FetchLesson(ctx, lessonID)
	if err != nil {
		return Status{}, err
	}
	if lesson.Type != LessonQuiz {
		return Status{}, ErrNotQuiz
	}
	enr, err := c.enrollments.FetchEnrollment(ctx, enrollmentID)
	if err != nil {
		return Status{}, err
	}
	if !v.Role.Privileged() && enr.UserID != v.Subject {
		return Status{}, ErrForbidden
	}
	c.viewer, c.lesson, c.enrollment = v, &lesson, &enr
	c.session, c.pending = nil, nil
	return c.status(), nil
}

func (c *Controller) Status() (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lesson == nil {
		return Status{}, ErrNotOpen
	}
	return c.status(), nil
}

func (c *Controller) status() Status {
	g, d := CheckStart(*c.lesson, c.enrollment.Ledger, c.viewer.Role, c.now(), c.limits)
	return Status{
		LessonID:    c.lesson.ID,
		Title:       c.lesson.Title,
		Points:      c.lesson.Points,
		Questions:   DrawLimit(c.lesson.Pool),
		Gate:        g,
		Decision:    d,
		Attempt:     GetAttemptInfo(c.enrollment.Ledger, c.lesson.ID),
		MaxAttempts: c.limits.MaxAttempts,
	}
}

func (c *Controller) busy() bool {
	return c.pending != nil || (c.session != nil && c.session.State() == InProgress)
}

// Start re-reads the enrollment, re-runs the start check and begins a new
// session with freshly sampled questions. Only the enrollment's own learner
// may start; privileged viewers of someone else's enrollment get Status only.
func (c *Controller) Start(ctx context.Context) ([]Question, Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lesson == nil {
		return nil, Decision{}, ErrNotOpen
	}
	if c.pending != nil {
		return nil, Decision{}, ErrAlreadySubmitted
	}
	if c.session != nil && c.session.State() == InProgress {
		return nil, Decision{}, ErrAlreadyStarted
	}
	// only the owner attempts; privilege is not ownership
	if c.enrollment.UserID != c.viewer.Subject {
		return nil, Decision{}, ErrForbidden
	}
	enr, err := c.enrollments.FetchEnrollment(ctx, c.enrollment.ID)
	if err != nil {
		return nil, Decision{}, err
	}
	c.enrollment = &enr

	_, d := CheckStart(*c.lesson, enr.Ledger, c.viewer.Role, c.now(), c.limits)
	if !d.Allowed {
		return nil, d, &DeniedError{Decision: d}
	}
	qs := Sample(c.lesson.Pool, c.sampleOpts...)
	s := NewSession()
	if c.observer != nil {
		s.OnStateChange(c.observer)
	}
	if err := s.Start(qs, c.lesson.Points); err != nil {
		return nil, d, err
	}
	c.session = s
	return s.Questions(), d, nil
}

func (c *Controller) SelectAnswer(optionIndex int) (Snapshot, error) {
	return c.step(func(s *Session) error { return s.SelectAnswer(optionIndex) })
}

func (c *Controller) Next() (Snapshot, error) { return c.step((*Session).Next) }

func (c *Controller) Prev() (Snapshot, error) { return c.step((*Session).Prev) }

func (c *Controller) Snapshot() (Snapshot, error) {
	return c.step(func(*Session) error { return nil })
}

// Current returns the question under the cursor.
func (c *Controller) Current() (int, Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return -1, Question{}, false
	}
	return c.session.Current()
}

func (c *Controller) step(fn func(*Session) error) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Snapshot{}, ErrNotStarted
	}
	if err := fn(c.session); err != nil {
		return c.session.Snapshot(), err
	}
	return c.session.Snapshot(), nil
}

// Finish submits the session, scores it and writes the updated ledger.
// On a failed write the result is kept and RetrySave can re-issue it.
func (c *Controller) Finish(ctx context.Context) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Result{}, ErrNotStarted
	}
	score, err := c.session.Finish()
	if err != nil {
		return Result{}, err
	}
	now := c.now()
	res := Result{LessonID: c.lesson.ID, Score: score, SubmittedAt: now.UTC()}

	if c.viewer.Role.Privileged() && !c.limits.CountPrivilegedAttempts {
		res.Attempt = GetAttemptInfo(c.enrollment.Ledger, c.lesson.ID).Attempts
		return res, nil
	}

	res.Recorded = true
	c.pending = &pendingCommit{
		result: res,
		ledger: Commit(c.enrollment.Ledger, c.lesson.ID, score, now),
		base:   c.enrollment.Version,
	}
	c.pending.result.Attempt = c.pending.ledger[c.lesson.ID].Attempts
	return c.save(ctx)
}

// RetrySave re-issues the pending write without re-scoring. After a lost
// version race the same score is applied on top of a fresh read, unless the
// fresh ledger no longer admits the attempt, in which case the result is
// dropped with a DeniedError.
func (c *Controller) RetrySave(ctx context.Context) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Result{}, ErrNothingToSave
	}
	if c.pending.stale {
		enr, err := c.enrollments.FetchEnrollment(ctx, c.enrollment.ID)
		if err != nil {
			return c.pending.result, &PersistenceError{Result: c.pending.result, Err: err}
		}
		c.enrollment = &enr
		// A concurrent attempt may have taken the last slot or started a
		// cooldown. The gate is not re-run: this attempt began while it was open.
		if d := CanStart(enr.Ledger, c.lesson.ID, GateResult{}, c.viewer.Role, c.now(), c.limits); !d.Allowed {
			if d.Detail == "" {
				d.Detail = "overtaken by a concurrent session"
			}
			res := c.pending.result
			c.pending = nil
			return res, &DeniedError{Decision: d}
		}
		c.pending.ledger = Commit(enr.Ledger, c.lesson.ID, c.pending.result.Score, c.pending.result.SubmittedAt)
		c.pending.base = enr.Version
		c.pending.result.Attempt = c.pending.ledger[c.lesson.ID].Attempts
		c.pending.stale = false
	}
	return c.save(ctx)
}

func (c *Controller) save(ctx context.Context) (Result, error) {
	p := c.pending
	// abandoned before the write went out: nothing reaches the store
	if err := ctx.Err(); err != nil {
		return p.result, &PersistenceError{Result: p.result, Err: err}
	}
	v, err := c.enrollments.UpdateLedger(ctx, c.enrollment.ID, p.ledger, WriteCondition{
		ExpectVersion: p.base,
		Enforce:       c.conditional,
	})
	if err != nil {
		p.stale = errors.Is(err, ErrStaleLedger)
		return p.result, &PersistenceError{Result: p.result, Err: err}
	}
	c.enrollment.Ledger = p.ledger
	c.enrollment.Version = v
	c.pending = nil

	res := p.result
	res.Saved = true
	if c.events != nil {
		cm := Commitment{
			EnrollmentID: c.enrollment.ID,
			UserID:       c.enrollment.UserID,
			LessonID:     c.lesson.ID,
			Attempt:      res.Attempt,
			Score:        res.Score,
			Version:      v,
		}
		if err := c.events.AttemptCommitted(ctx, cm); err != nil {
			log.Printf("quiz: event log append for enrollment %s failed: %v", cm.EnrollmentID, err)
		}
	}
	return res, nil
}

// Pending reports an unsaved result, if any.
func (c *Controller) Pending() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Result{}, false
	}
	return c.pending.result, true
}

// Close drops the session and any unsaved result. It reports whether an
// unsaved result was discarded.
func (c *Controller) Close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	discarded := c.pending != nil
	c.session, c.pending = nil, nil
	c.lesson, c.enrollment = nil, nil
	return discarded
}
