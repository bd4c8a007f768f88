package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-classroom/internal/quiz"
	"github.com/mind-engage/mindengage-classroom/internal/rbac"
)

// questionView is a question as the learner sees it: no correctness markers.
type questionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Kind    string   `json:"kind,omitempty"`
	Options []string `json:"options"`
}

func toViews(qs []quiz.Question) []questionView {
	out := make([]questionView, 0, len(qs))
	for _, q := range qs {
		v := questionView{ID: q.ID, Text: q.Text, Kind: q.Kind, Options: make([]string, len(q.Options))}
		for i, o := range q.Options {
			v.Options[i] = o.Text
		}
		out = append(out, v)
	}
	return out
}

func viewer(r *http.Request) quiz.Viewer {
	return quiz.Viewer{
		Subject: rbac.SubjectFromContext(r.Context()),
		Role:    quiz.Role(rbac.RoleFromContext(r.Context())),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps core errors onto status codes. Denials and failed saves
// carry a JSON body so the page can render the reason or offer a retry.
func writeErr(w http.ResponseWriter, err error) {
	var (
		denied *quiz.DeniedError
		cfgErr *quiz.ConfigurationError
		saveEr *quiz.PersistenceError
	)
	switch {
	case errors.As(err, &denied):
		writeJSON(w, http.StatusForbidden, map[string]any{"error": err.Error(), "decision": denied.Decision})
	case errors.As(err, &saveEr):
		status := http.StatusServiceUnavailable
		if saveEr.Stale() {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]any{"error": err.Error(), "result": saveEr.Result, "retry": true})
	case errors.As(err, &cfgErr):
		http.Error(w, "cannot start quiz: "+err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, quiz.ErrLessonNotFound), errors.Is(err, quiz.ErrEnrollmentNotFound),
		errors.Is(err, quiz.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, quiz.ErrSessionExpired):
		http.Error(w, err.Error(), http.StatusGone)
	case errors.Is(err, quiz.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, quiz.ErrSessionActive), errors.Is(err, quiz.ErrAlreadyStarted),
		errors.Is(err, quiz.ErrAlreadySubmitted), errors.Is(err, quiz.ErrNotStarted),
		errors.Is(err, quiz.ErrNothingToSave):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, quiz.ErrOptionOutOfRange), errors.Is(err, quiz.ErrNotQuiz):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GET /lessons/{lessonID}/quiz/status?enrollment_id=...
func QuizStatusHandler(m *quiz.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lessonID := strings.TrimSpace(chi.URLParam(r, "lessonID"))
		enrollmentID := strings.TrimSpace(r.URL.Query().Get("enrollment_id"))
		if lessonID == "" || enrollmentID == "" {
			http.Error(w, "lessonID and enrollment_id required", http.StatusBadRequest)
			return
		}
		st, err := m.Status(r.Context(), lessonID, enrollmentID, viewer(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// POST /quiz/sessions {lesson_id, enrollment_id}
func StartSessionHandler(m *quiz.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			LessonID     string `json:"lesson_id"`
			EnrollmentID string `json:"enrollment_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.LessonID == "" || req.EnrollmentID == "" {
			http.Error(w, "lesson_id and enrollment_id required", http.StatusBadRequest)
			return
		}
		st, err := m.Start(r.Context(), req.LessonID, req.EnrollmentID, viewer(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"session_id": st.SessionID,
			"questions":  toViews(st.Questions),
			"decision":   st.Decision,
			"snapshot":   st.Snapshot,
		})
	}
}

// GET /quiz/sessions/{sessionID}
func GetSessionHandler(m *quiz.Manager) http.HandlerFunc {
	return stepHandler(m, func(c *quiz.Controller, _ *http.Request) (quiz.Snapshot, error) {
		return c.Snapshot()
	})
}

// POST /quiz/sessions/{sessionID}/answer {option_index}
func AnswerHandler(m *quiz.Manager) http.HandlerFunc {
	return stepHandler(m, func(c *quiz.Controller, r *http.Request) (quiz.Snapshot, error) {
		var req struct {
			OptionIndex *int `json:"option_index"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OptionIndex == nil {
			return quiz.Snapshot{}, quiz.ErrOptionOutOfRange
		}
		return c.SelectAnswer(*req.OptionIndex)
	})
}

// POST /quiz/sessions/{sessionID}/next
func NextHandler(m *quiz.Manager) http.HandlerFunc {
	return stepHandler(m, func(c *quiz.Controller, _ *http.Request) (quiz.Snapshot, error) { return c.Next() })
}

// POST /quiz/sessions/{sessionID}/prev
func PrevHandler(m *quiz.Manager) http.HandlerFunc {
	return stepHandler(m, func(c *quiz.Controller, _ *http.Request) (quiz.Snapshot, error) { return c.Prev() })
}

func stepHandler(m *quiz.Manager, fn func(*quiz.Controller, *http.Request) (quiz.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := m.Get(r.Context(), chi.URLParam(r, "sessionID"), viewer(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		snap, err := fn(c, r)
		if err != nil {
			writeErr(w, err)
			return
		}
		out := map[string]any{"snapshot": snap}
		if idx, q, ok := c.Current(); ok {
			out["current"] = map[string]any{"index": idx, "question": toViews([]quiz.Question{q})[0]}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// POST /quiz/sessions/{sessionID}/finish
func FinishHandler(m *quiz.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := m.Finish(r.Context(), chi.URLParam(r, "sessionID"), viewer(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /quiz/sessions/{sessionID}/save
func RetrySaveHandler(m *quiz.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := m.Save(r.Context(), chi.URLParam(r, "sessionID"), viewer(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// DELETE /quiz/sessions/{sessionID}
func CloseSessionHandler(m *quiz.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		discarded, err := m.Close(chi.URLParam(r, "sessionID"), viewer(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"discarded_unsaved": discarded})
	}
}
