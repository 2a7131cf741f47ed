package rest

import (
	"log/slog"
	"net/http"

	"github.com/Chirantan-Dey/quiz-master/internal/config"
	"github.com/Chirantan-Dey/quiz-master/internal/transport/middleware"
)

// RouterDeps holds what NewRouter wires together.
type RouterDeps struct {
	Health    *HealthHandler
	Jobs      *JobsHandler
	Dashboard *DashboardHandler
	Auth      middleware.Middleware
	Limiter   *middleware.RateLimiter
}

// NewRouter builds the HTTP handler with the full middleware chain.
func NewRouter(logger *slog.Logger, cfg config.Config, deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", deps.Health.Live)
	mux.HandleFunc("GET /ready", deps.Health.Ready)
	mux.HandleFunc("GET /health", deps.Health.Health)

	mux.HandleFunc("GET /subjects", deps.Dashboard.Subjects)
	mux.HandleFunc("GET /accounts/{id}/scores", deps.Dashboard.Scores)

	admin := middleware.AdminOnly()
	mux.Handle("GET /admin/stats", middleware.Handle(deps.Dashboard.Stats, admin))
	mux.Handle("GET /admin/jobs/{id}", middleware.Handle(deps.Jobs.Status, admin))
	mux.Handle("POST /admin/jobs", middleware.Handle(deps.Jobs.Trigger,
		admin, deps.Limiter.Limit(cfg.Server.TriggerRateLimit)))

	return middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.CORS(cfg.CORS),
		deps.Auth,
	)(mux)
}
