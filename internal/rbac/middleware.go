package rbac

import (
	"net/http"
)

var defaultChecker = NewChecker(nil)

// guard answers 401 when no subject was authenticated and 403 when allow
// rejects the caller's role.
func guard(allow func(role string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if SubjectFromContext(ctx) == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			role := RoleFromContext(ctx)
			if role == "" || !allow(role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Require enforces a single permission against c's policy.
func (c *Checker) Require(perm string) func(http.Handler) http.Handler {
	return guard(func(role string) bool { return c.Has(role, perm) })
}

// RequireAny passes roles holding at least one of perms.
func (c *Checker) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return guard(func(role string) bool { return c.Any(role, perms...) })
}

// Require enforces perm against RolePermissions.
func Require(perm string) func(http.Handler) http.Handler { return defaultChecker.Require(perm) }

func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return defaultChecker.RequireAny(perms...)
}
