package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-classroom/internal/rbac"
)

var (
	errPasswordEmpty   = errors.New("password required")
	errPasswordTooLong = errors.New("password longer than 72 bytes")
)

// hashPassword is shared by roster import and password change. bcrypt only
// reads the first 72 bytes, so longer passwords are refused instead of cut.
func hashPassword(pw string) (string, error) {
	if pw == "" {
		return "", errPasswordEmpty
	}
	if len(pw) > 72 {
		return "", errPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// swapPasswordHash replaces oldHash with newHash and reports false when the
// stored hash changed since it was read.
func swapPasswordHash(ctx context.Context, h *sql.DB, userID, oldHash, newHash string) (bool, error) {
	res, err := h.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2 AND password_hash=$3`, newHash, userID, oldHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// POST /users/change-password {old_password, new_password}
func ChangePasswordHandler(h *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := rbac.SubjectFromContext(r.Context())
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.NewPassword == req.OldPassword {
			http.Error(w, "new password must differ from the current one", http.StatusBadRequest)
			return
		}
		newHash, err := hashPassword(req.NewPassword)
		if errors.Is(err, errPasswordEmpty) || errors.Is(err, errPasswordTooLong) {
			http.Error(w, "new "+err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		var stored string
		err = h.QueryRowContext(r.Context(), `SELECT password_hash FROM users WHERE id=$1`, userID).Scan(&stored)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "password lookup failed", http.StatusInternalServerError)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(stored), []byte(req.OldPassword)) != nil {
			http.Error(w, "incorrect old password", http.StatusForbidden)
			return
		}

		ok, err := swapPasswordHash(r.Context(), h, userID, stored, newHash)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "password changed concurrently, retry", http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
