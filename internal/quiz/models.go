package quiz

import "time"

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Privileged roles bypass availability windows, attempt caps and cooldowns.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleInstructor
}

type LessonType string

const (
	LessonQuiz  LessonType = "quiz"
	LessonTask  LessonType = "task"
	LessonText  LessonType = "text"
	LessonVideo LessonType = "video"
)

type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct,omitempty"`
}

type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Kind    string   `json:"kind,omitempty"` // single_choice (default) | true_false
	Options []Option `json:"options"`

	// CorrectIndex overrides the is_correct markers when set.
	CorrectIndex *int `json:"correct_index,omitempty"`
	// CorrectPredicate is only set programmatically; it wins over both markers.
	CorrectPredicate func(optionIndex int) bool `json:"-"`
}

type SamplingMode string

const (
	SampleFixed      SamplingMode = "fixed"
	SampleRandomDraw SamplingMode = "random_draw"
)

type SamplingSettings struct {
	Mode      SamplingMode `json:"mode,omitempty"`
	DrawCount int          `json:"draw_count,omitempty"`
}

type QuestionPool struct {
	Questions []Question       `json:"questions"`
	Settings  SamplingSettings `json:"settings,omitempty"`
}

type Lesson struct {
	ID             string       `json:"id"`
	ClassID        string       `json:"class_id,omitempty"`
	Type           LessonType   `json:"type"`
	Title          string       `json:"title,omitempty"`
	Points         float64      `json:"points"`
	AvailableFrom  *time.Time   `json:"available_from,omitempty"`
	AvailableUntil *time.Time   `json:"available_until,omitempty"`
	Pool           QuestionPool `json:"quiz_data"`
}

type Enrollment struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	ClassID string `json:"class_id,omitempty"`
	Ledger  Ledger `json:"ledger"`
	Version int64  `json:"version"`
}

// Viewer is whoever is driving the session: the authenticated subject and role.
type Viewer struct {
	Subject string
	Role    Role
}
