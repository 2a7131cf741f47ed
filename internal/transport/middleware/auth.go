package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Chirantan-Dey/quiz-master/pkg/ctxutil"
)

type tokenValidator interface {
	ValidateToken(ctx context.Context, token string) (ctxutil.Identity, error)
}

type identitySlotKey struct{}

// withIdentitySlot lets Auth report the caller back to an outer middleware.
func withIdentitySlot(ctx context.Context, slot *ctxutil.Identity) context.Context {
	return context.WithValue(ctx, identitySlotKey{}, slot)
}

// Auth attaches the bearer token's identity to the context. Requests
// without a bearer token pass through anonymously; an invalid token is
// rejected with 401.
func Auth(validator tokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if slot, ok := r.Context().Value(identitySlotKey{}).(*ctxutil.Identity); ok {
				*slot = id
			}
			next.ServeHTTP(w, r.WithContext(ctxutil.WithIdentity(r.Context(), id)))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
