package quiz_test

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-classroom/internal/quiz"
)

/* ---------------- sampling ---------------- */

func TestSampleDrawLimit(t *testing.T) {
	cases := []struct {
		name string
		set  quiz.SamplingSettings
		want int
	}{
		{"fixed uses all", quiz.SamplingSettings{Mode: quiz.SampleFixed, DrawCount: 3}, 5},
		{"draw subset", quiz.SamplingSettings{Mode: quiz.SampleRandomDraw, DrawCount: 3}, 3},
		{"draw larger than pool", quiz.SamplingSettings{Mode: quiz.SampleRandomDraw, DrawCount: 10}, 5},
		{"draw zero means all", quiz.SamplingSettings{Mode: quiz.SampleRandomDraw}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := makePool(5)
			p.Settings = tc.set
			got := quiz.Sample(p, quiz.WithSeed(1))
			if len(got) != tc.want {
				t.Fatalf("len = %d, want %d", len(got), tc.want)
			}
			seen := map[string]bool{}
			for _, q := range got {
				if seen[q.ID] {
					t.Fatalf("question %s drawn twice", q.ID)
				}
				seen[q.ID] = true
			}
		})
	}
}

func TestSampleLeavesPoolAlone(t *testing.T) {
	p := makePool(6)
	before := make([]string, len(p.Questions))
	for i, q := range p.Questions {
		before[i] = q.ID
	}
	for i := 0; i < 20; i++ {
		quiz.Sample(p)
	}
	for i, q := range p.Questions {
		if q.ID != before[i] {
			t.Fatalf("pool reordered at %d: %s != %s", i, q.ID, before[i])
		}
	}
}

func TestSampleEmptyPool(t *testing.T) {
	got := quiz.Sample(quiz.QuestionPool{})
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", got)
	}
}

func TestSampleSeedIsReproducible(t *testing.T) {
	p := makePool(8)
	a := quiz.Sample(p, quiz.WithSeed(42))
	b := quiz.Sample(p, quiz.WithSeed(42))
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("order differs at %d: %s vs %s", i, a[i].ID, b[i].ID)
		}
	}
}

// Every question should land in every position about equally often.
func TestSampleIsUnbiased(t *testing.T) {
	const n, trials = 4, 40000
	p := makePool(n)
	rng := rand.New(rand.NewPCG(2024, 7))

	counts := map[string][n]int{}
	for i := 0; i < trials; i++ {
		for pos, q := range quiz.Sample(p, quiz.WithRand(rng)) {
			c := counts[q.ID]
			c[pos]++
			counts[q.ID] = c
		}
	}
	want := trials / n
	tol := want / 20
	for id, c := range counts {
		for pos, got := range c {
			if got < want-tol || got > want+tol {
				t.Errorf("%s at position %d: %d times, want %d±%d", id, pos, got, want, tol)
			}
		}
	}
}

/* ---------------- scoring ---------------- */

func TestScore(t *testing.T) {
	qs := makePool(3).Questions
	two := makePool(2).Questions

	cases := []struct {
		name    string
		qs      []quiz.Question
		answers map[int]int
		points  float64
		correct int
		final   float64
	}{
		{"all correct", qs, allCorrect(qs), 90, 3, 90},
		{"two of three", qs, map[int]int{0: correctIndex(qs[0]), 1: correctIndex(qs[1]), 2: wrongIndex(qs[2])}, 90, 2, 60},
		{"none answered", qs, map[int]int{}, 90, 0, 0},
		{"half rounds up", two, map[int]int{0: correctIndex(two[0])}, 5, 1, 3},
		{"below half rounds down", qs, map[int]int{0: correctIndex(qs[0])}, 1, 1, 0},
		{"zero points", qs, allCorrect(qs), 0, 3, 0},
		{"negative points clamp", qs, allCorrect(qs), -10, 3, 0},
		{"no questions", nil, nil, 90, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := quiz.Score(tc.qs, tc.answers, tc.points)
			if r.CorrectCount != tc.correct || r.FinalScore != tc.final || r.Total != len(tc.qs) {
				t.Fatalf("got %+v, want correct=%d final=%v total=%d", r, tc.correct, tc.final, len(tc.qs))
			}
			if again := quiz.Score(tc.qs, tc.answers, tc.points); again != r {
				t.Fatalf("scoring not deterministic: %+v vs %+v", r, again)
			}
		})
	}
}

func TestScorePredicateAndIndex(t *testing.T) {
	one := 1
	qs := []quiz.Question{
		{ID: "even", Options: []quiz.Option{{Text: "1"}, {Text: "2"}, {Text: "3"}}, CorrectPredicate: func(i int) bool { return i == 1 }},
		{ID: "idx", Options: []quiz.Option{{Text: "a", IsCorrect: true}, {Text: "b"}}, CorrectIndex: &one},
	}
	r := quiz.Score(qs, map[int]int{0: 1, 1: 1}, 10)
	if r.CorrectCount != 2 || r.FinalScore != 10 {
		t.Fatalf("got %+v", r)
	}
	r = quiz.Score(qs, map[int]int{0: 0, 1: 0}, 10)
	if r.CorrectCount != 0 {
		t.Fatalf("correct_index should override is_correct, got %+v", r)
	}
}

/* ---------------- ledger ---------------- */

func TestCommitIsPure(t *testing.T) {
	orig := ledgerWith("l1", 1, t0)
	res := quiz.ScoreResult{CorrectCount: 2, Total: 3, FinalScore: 60}
	now := t0.Add(50 * time.Hour)

	next := quiz.Commit(orig, "l1", res, now)

	if got := quiz.GetAttemptInfo(orig, "l1"); got.Attempts != 1 || !got.LastAttemptAt.Equal(t0) {
		t.Fatalf("input ledger mutated: %+v", got)
	}
	info := quiz.GetAttemptInfo(next, "l1")
	if info.Attempts != 2 || !info.LastAttemptAt.Equal(now) || info.Score == nil || *info.Score != 60 || !info.Completed {
		t.Fatalf("committed info = %+v", info)
	}

	again := quiz.Commit(next, "l1", quiz.ScoreResult{FinalScore: 30}, now.Add(time.Hour))
	if s := quiz.GetAttemptInfo(again, "l1").Score; s == nil || *s != 30 {
		t.Fatalf("latest score should win, got %v", s)
	}
}

func TestLedgerWireShape(t *testing.T) {
	l := quiz.Commit(quiz.Ledger{}, "l1", quiz.ScoreResult{FinalScore: 60}, t0)

	b, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	for _, k := range []string{"attempts", "attempt_meta", "scores", "completed"} {
		if _, ok := raw[k]; !ok {
			t.Fatalf("missing %q in %s", k, b)
		}
	}
	if !strings.Contains(string(b), `"last_attempt_at":"2026-03-02T09:00:00Z"`) {
		t.Fatalf("unexpected timestamp encoding: %s", b)
	}

	var back quiz.Ledger
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	info := quiz.GetAttemptInfo(back, "l1")
	if info.Attempts != 1 || info.Score == nil || *info.Score != 60 || !info.Completed || !info.LastAttemptAt.Equal(t0) {
		t.Fatalf("decoded = %+v", info)
	}
}

func TestLedgerReadsLegacyCompletedList(t *testing.T) {
	var l quiz.Ledger
	in := `{"attempts":{"l1":1},"scores":{"l1":40},"completed":["l1","l2"]}`
	if err := json.Unmarshal([]byte(in), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !quiz.GetAttemptInfo(l, "l1").Completed || !quiz.GetAttemptInfo(l, "l2").Completed {
		t.Fatalf("completed list not applied: %+v", l)
	}
	if got := quiz.GetAttemptInfo(l, "l2").Attempts; got != 0 {
		t.Fatalf("l2 attempts = %d, want 0", got)
	}

	if err := json.Unmarshal([]byte(`{"completed":42}`), &l); err == nil {
		t.Fatal("want error for bad completed field")
	}
}

/* ---------------- session ---------------- */

func TestSessionLifecycle(t *testing.T) {
	qs := makePool(3).Questions
	s := quiz.NewSession()

	var transitions []string
	s.OnStateChange(func(from, to quiz.State) { transitions = append(transitions, from.String()+">"+to.String()) })

	if err := s.SelectAnswer(0); !errors.Is(err, quiz.ErrNotStarted) {
		t.Fatalf("select before start: %v", err)
	}
	if _, err := s.Finish(); !errors.Is(err, quiz.ErrNotStarted) {
		t.Fatalf("finish before start: %v", err)
	}
	if err := s.Start(qs, 90); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(qs, 90); !errors.Is(err, quiz.ErrAlreadyStarted) {
		t.Fatalf("second start: %v", err)
	}

	// Prev clamps at the first question.
	if err := s.Prev(); err != nil {
		t.Fatal(err)
	}
	if i, _, _ := s.Current(); i != 0 {
		t.Fatalf("current = %d after prev at start", i)
	}

	if err := s.SelectAnswer(wrongIndex(qs[0])); err != nil {
		t.Fatal(err)
	}
	// Overwrite keeps only the latest pick.
	if err := s.SelectAnswer(correctIndex(qs[0])); err != nil {
		t.Fatal(err)
	}
	if err := s.SelectAnswer(len(qs[0].Options)); !errors.Is(err, quiz.ErrOptionOutOfRange) {
		t.Fatalf("out of range: %v", err)
	}
	if err := s.SelectAnswer(-1); !errors.Is(err, quiz.ErrOptionOutOfRange) {
		t.Fatalf("negative: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := s.Next(); err != nil {
			t.Fatal(err)
		}
	}
	if i, _, _ := s.Current(); i != len(qs)-1 {
		t.Fatalf("current = %d, want clamp at %d", i, len(qs)-1)
	}
	if err := s.SelectAnswer(correctIndex(qs[2])); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	if snap.State != quiz.InProgress || snap.Total != 3 || len(snap.Answers) != 2 || snap.Result != nil {
		t.Fatalf("snapshot = %+v", snap)
	}

	res, err := s.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if res.CorrectCount != 2 || res.FinalScore != 60 {
		t.Fatalf("result = %+v", res)
	}
	if _, err := s.Finish(); !errors.Is(err, quiz.ErrAlreadySubmitted) {
		t.Fatalf("second finish: %v", err)
	}
	if err := s.SelectAnswer(0); !errors.Is(err, quiz.ErrAlreadySubmitted) {
		t.Fatalf("select after submit: %v", err)
	}
	if err := s.Next(); !errors.Is(err, quiz.ErrAlreadySubmitted) {
		t.Fatalf("next after submit: %v", err)
	}
	if err := s.Start(qs, 90); !errors.Is(err, quiz.ErrAlreadySubmitted) {
		t.Fatalf("start after submit: %v", err)
	}
	if snap := s.Snapshot(); snap.Result == nil || snap.Result.FinalScore != 60 {
		t.Fatalf("submitted snapshot = %+v", snap)
	}

	want := []string{"not_started>in_progress", "in_progress>submitted"}
	if strings.Join(transitions, ",") != strings.Join(want, ",") {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
}

func TestSessionStartEmpty(t *testing.T) {
	s := quiz.NewSession()
	err := s.Start(nil, 10)
	var ce *quiz.ConfigurationError
	if !errors.As(err, &ce) || ce.Reason != quiz.DenyNoQuestions {
		t.Fatalf("want no_questions configuration error, got %v", err)
	}
	if s.State() != quiz.NotStarted {
		t.Fatalf("state = %v", s.State())
	}
}

func TestStateMarshalsAsText(t *testing.T) {
	b, err := json.Marshal(quiz.Snapshot{State: quiz.Submitted})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"state":"submitted"`) {
		t.Fatalf("got %s", b)
	}
}
