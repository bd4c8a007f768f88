package http

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-classroom/internal/db"
	"github.com/mind-engage/mindengage-classroom/internal/quiz"
)

type rosterRow struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`               // defaults to student
	Password string `json:"password,omitempty"` // required for new users
}

func validRole(r string) bool {
	switch quiz.Role(r) {
	case quiz.RoleStudent, quiz.RoleInstructor, quiz.RoleAdmin:
		return true
	}
	return false
}

// POST /admin/users  JSON array, or multipart file= with CSV (id,username,role[,password]) or JSON.
func ImportUsersHandler(h *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []rosterRow
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "file required", http.StatusBadRequest)
				return
			}
			defer f.Close()
			if rows, err = decodeRoster(f); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		} else if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, "expected JSON array or multipart file", http.StatusBadRequest)
			return
		}

		ins, upd, err := upsertRoster(r.Context(), h, rows)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"inserted": ins, "updated": upd})
	}
}

// decodeRoster sniffs the first non-space byte: JSON starts with [ or {.
func decodeRoster(rd io.Reader) ([]rosterRow, error) {
	body, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	s := strings.TrimSpace(string(body))
	if s == "" {
		return nil, errors.New("empty file")
	}
	if s[0] == '[' {
		var rows []rosterRow
		if err := json.Unmarshal([]byte(s), &rows); err != nil {
			return nil, fmt.Errorf("bad json: %w", err)
		}
		return rows, nil
	}
	rows, err := parseRosterCSV(strings.NewReader(s))
	if err != nil {
		return nil, fmt.Errorf("bad csv: %w", err)
	}
	return rows, nil
}

func parseRosterCSV(rd io.Reader) ([]rosterRow, error) {
	cr := csv.NewReader(rd)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	col := map[string]int{}
	for i, h := range hdr {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"id", "username", "role"} {
		if _, ok := col[k]; !ok {
			return nil, errors.New("missing column: " + k)
		}
	}
	var rows []rosterRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		row := rosterRow{
			ID:       rec[col["id"]],
			Username: rec[col["username"]],
			Role:     strings.ToLower(rec[col["role"]]),
		}
		if i, ok := col["password"]; ok {
			row.Password = rec[i]
		}
		rows = append(rows, row)
	}
}

func upsertRoster(ctx context.Context, h *sql.DB, rows []rosterRow) (inserted, updated int, err error) {
	err = db.WithTx(ctx, h, func(tx *sql.Tx) error {
		for _, r := range rows {
			if r.ID == "" || r.Username == "" {
				return errors.New("id and username required")
			}
			if r.Role == "" {
				r.Role = string(quiz.RoleStudent)
			}
			if !validRole(r.Role) {
				return errors.New("invalid role: " + r.Role)
			}
			var hash string
			if r.Password != "" {
				var err error
				if hash, err = hashPassword(r.Password); err != nil {
					return errors.New(r.Username + ": " + err.Error())
				}
			}

			err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id=$1`, r.ID).Scan(new(int))
			switch {
			case err == nil:
				if hash != "" {
					_, err = tx.ExecContext(ctx, `UPDATE users SET username=$1, role=$2, password_hash=$3 WHERE id=$4`,
						r.Username, r.Role, hash, r.ID)
				} else {
					_, err = tx.ExecContext(ctx, `UPDATE users SET username=$1, role=$2 WHERE id=$3`,
						r.Username, r.Role, r.ID)
				}
				if err != nil {
					return err
				}
				updated++
			case errors.Is(err, sql.ErrNoRows):
				if hash == "" {
					return errors.New("password required for new user: " + r.Username)
				}
				if _, err := tx.ExecContext(ctx, `INSERT INTO users (id, username, password_hash, role) VALUES ($1,$2,$3,$4)`,
					r.ID, r.Username, hash, r.Role); err != nil {
					return err
				}
				inserted++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

// GET /admin/users?role=student
func ListUsersHandler(h *sql.DB) http.HandlerFunc {
	type user struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		q := `SELECT id,username,role FROM users ORDER BY username`
		var args []any
		if role := r.URL.Query().Get("role"); role != "" {
			q = `SELECT id,username,role FROM users WHERE role=$1 ORDER BY username`
			args = append(args, role)
		}
		rows, err := h.QueryContext(r.Context(), q, args...)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer rows.Close()
		out := []user{}
		for rows.Next() {
			var u user
			if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			out = append(out, u)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// PUT /admin/users/{userID}/role {role}
// The last admin cannot be demoted.
func UpdateUserRoleHandler(h *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := chi.URLParam(r, "userID")
		var req struct {
			Role string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		role := strings.ToLower(strings.TrimSpace(req.Role))
		if !validRole(role) {
			http.Error(w, "invalid role", http.StatusBadRequest)
			return
		}

		var cur string
		err := h.QueryRowContext(r.Context(), `SELECT role FROM users WHERE id=$1`, target).Scan(&cur)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if cur == string(quiz.RoleAdmin) && role != cur {
			var admins int
			if err := h.QueryRowContext(r.Context(), `SELECT COUNT(1) FROM users WHERE role='admin'`).Scan(&admins); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if admins <= 1 {
				http.Error(w, "cannot demote the last admin", http.StatusConflict)
				return
			}
		}
		if _, err := h.ExecContext(r.Context(), `UPDATE users SET role=$1 WHERE id=$2`, role, target); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// EnrollmentWriter is the part of the store that creates enrollments.
type EnrollmentWriter interface {
	PutEnrollment(ctx context.Context, e quiz.Enrollment) error
}

// POST /admin/enrollments {user_id, class_id} -> {id}
// New enrollments start with an empty ledger at version 0.
func CreateEnrollmentHandler(h *sql.DB, st EnrollmentWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID  string `json:"user_id"`
			ClassID string `json:"class_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			http.Error(w, "user_id required", http.StatusBadRequest)
			return
		}
		err := h.QueryRowContext(r.Context(), `SELECT 1 FROM users WHERE id=$1`, req.UserID).Scan(new(int))
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		e := quiz.Enrollment{ID: uuid.NewString(), UserID: req.UserID, ClassID: req.ClassID, Ledger: quiz.Ledger{}}
		if err := st.PutEnrollment(r.Context(), e); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": e.ID})
	}
}
