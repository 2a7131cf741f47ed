package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Chirantan-Dey/quiz-master/internal/config"
)

// exposedHeaders are readable by dashboard scripts: the request id for
// support and Retry-After on a saturated job queue.
const exposedHeaders = RequestIDHeader + ", Retry-After"

// CORS lets the dashboard origin call the read and trigger endpoints.
// Preflights are answered directly; other requests only get the allow
// headers when their origin is listed.
func CORS(cfg config.CORSConfig) Middleware {
	allowed := make(map[string]struct{})
	anyOrigin := false
	for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
		o = strings.TrimSpace(o)
		switch o {
		case "":
		case "*":
			anyOrigin = true
		default:
			allowed[o] = struct{}{}
		}
	}
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			_, listed := allowed[origin]
			ok := origin != "" && (anyOrigin || listed)
			if ok {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Expose-Headers", exposedHeaders)
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if !preflight {
				next.ServeHTTP(w, r)
				return
			}
			if ok {
				h.Set("Access-Control-Allow-Methods", cfg.AllowedMethods)
				h.Set("Access-Control-Allow-Headers", cfg.AllowedHeaders)
				h.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
