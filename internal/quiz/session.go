package quiz

type State int

const (
	NotStarted State = iota
	InProgress
	Submitted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Submitted:
		return "submitted"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Session walks one learner through one attempt. It is in-memory only and
// not safe for concurrent use; Controller serializes access.
type Session struct {
	state     State
	questions []Question
	points    float64
	current   int
	answers   map[int]int
	result    ScoreResult

	onChange func(from, to State)
}

func NewSession() *Session { return &Session{answers: map[int]int{}} }

// OnStateChange registers fn for every state transition.
func (s *Session) OnStateChange(fn func(from, to State)) { s.onChange = fn }

func (s *Session) transition(to State) {
	from := s.state
	s.state = to
	if s.onChange != nil {
		s.onChange(from, to)
	}
}

func (s *Session) State() State { return s.state }

// Start moves NOT_STARTED -> IN_PROGRESS with the sampled questions.
func (s *Session) Start(questions []Question, totalPoints float64) error {
	switch s.state {
	case InProgress:
		return ErrAlreadyStarted
	case Submitted:
		return ErrAlreadySubmitted
	}
	if len(questions) == 0 {
		return &ConfigurationError{Reason: DenyNoQuestions, Msg: "no questions configured"}
	}
	s.questions = append([]Question(nil), questions...)
	s.points = totalPoints
	s.current = 0
	s.answers = map[int]int{}
	s.transition(InProgress)
	return nil
}

// SelectAnswer records optionIndex for the current question, replacing any
// earlier pick. It does not advance.
func (s *Session) SelectAnswer(optionIndex int) error {
	if err := s.requireInProgress(); err != nil {
		return err
	}
	q := s.questions[s.current]
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return ErrOptionOutOfRange
	}
	s.answers[s.current] = optionIndex
	return nil
}

// Next and Prev clamp at the ends.
func (s *Session) Next() error {
	if err := s.requireInProgress(); err != nil {
		return err
	}
	if s.current < len(s.questions)-1 {
		s.current++
	}
	return nil
}

func (s *Session) Prev() error {
	if err := s.requireInProgress(); err != nil {
		return err
	}
	if s.current > 0 {
		s.current--
	}
	return nil
}

// Finish moves IN_PROGRESS -> SUBMITTED and scores the answers.
// A second call fails with ErrAlreadySubmitted.
func (s *Session) Finish() (ScoreResult, error) {
	if err := s.requireInProgress(); err != nil {
		return ScoreResult{}, err
	}
	s.result = Score(s.questions, s.answers, s.points)
	s.transition(Submitted)
	return s.result, nil
}

func (s *Session) requireInProgress() error {
	switch s.state {
	case NotStarted:
		return ErrNotStarted
	case Submitted:
		return ErrAlreadySubmitted
	}
	return nil
}

func (s *Session) Current() (int, Question, bool) {
	if s.state == NotStarted || len(s.questions) == 0 {
		return -1, Question{}, false
	}
	return s.current, s.questions[s.current], true
}

func (s *Session) Questions() []Question { return append([]Question(nil), s.questions...) }

func (s *Session) Answers() map[int]int {
	out := make(map[int]int, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

type Snapshot struct {
	State        State        `json:"state"`
	CurrentIndex int          `json:"current_index"`
	Total        int          `json:"total"`
	Answers      map[int]int  `json:"answers"`
	Result       *ScoreResult `json:"result,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:        s.state,
		CurrentIndex: s.current,
		Total:        len(s.questions),
		Answers:      s.Answers(),
	}
	if s.state == Submitted {
		r := s.result
		snap.Result = &r
	}
	return snap
}
