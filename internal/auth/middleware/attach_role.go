// internal/auth/middleware/attach_role.go
package auth

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-classroom/internal/rbac"
)

// AttachRoleFromDB replaces the token's role with the one stored in users,
// so a demoted instructor loses privileges before the token expires.
// allowClaimFallback=true in dev/offline; false in prod.
func AttachRoleFromDB(db *sql.DB, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := rbac.SubjectFromContext(ctx)
			claimRole := rbac.RoleFromContext(ctx)

			var role string
			err := db.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, sub).Scan(&role)

			switch {
			case err == nil && role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case (err == nil || errors.Is(err, sql.ErrNoRows)) && allowClaimFallback && claimRole != "":
				next.ServeHTTP(w, r)
			case err != nil && !errors.Is(err, sql.ErrNoRows):
				http.Error(w, "role lookup failed", http.StatusInternalServerError)
			default:
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}
