package middleware

import (
	"net/http"

	"github.com/Chirantan-Dey/quiz-master/pkg/ctxutil"
)

// AdminOnly rejects anonymous callers with 401 and non-admins with 403.
// It must run after Auth.
func AdminOnly() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := ctxutil.IdentityFromCtx(r.Context())
			if !ok {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			if !id.IsAdmin() {
				http.Error(w, "admin access required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
