package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
	"github.com/Chirantan-Dey/quiz-master/internal/service/catalog"
	"github.com/Chirantan-Dey/quiz-master/pkg/ctxutil"
)

type catalogService interface {
	Subjects(ctx context.Context) ([]domain.Subject, error)
	AccountAttempts(ctx context.Context, accountID int64) ([]domain.Attempt, error)
	Stats(ctx context.Context) (catalog.SubjectStats, error)
}

// DashboardHandler serves the cached read models behind the dashboards.
type DashboardHandler struct {
	catalog catalogService
	log     *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(svc catalogService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		catalog: svc,
		log:     logger.With("handler", "dashboard"),
	}
}

type subjectResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type attemptResponse struct {
	ID          int64     `json:"id"`
	QuizID      int64     `json:"quiz_id"`
	AttemptedAt time.Time `json:"attempted_at"`
	Result      int       `json:"result"`
	SubjectID   *int64    `json:"subject_id,omitempty"`
	SubjectName *string   `json:"subject_name,omitempty"`
}

type scoresResponse struct {
	AccountID int64             `json:"account_id"`
	Attempts  []attemptResponse `json:"attempts"`
}

// Subjects lists every subject.
// GET /subjects
func (h *DashboardHandler) Subjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.catalog.Subjects(r.Context())
	if err != nil {
		h.fail(w, r, "list subjects", err)
		return
	}

	out := make([]subjectResponse, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, subjectResponse{ID: s.ID, Name: s.Name, Description: s.Description})
	}
	writeJSON(w, http.StatusOK, out)
}

// Scores lists one account's attempts. Regular users may only read their own.
// GET /accounts/{id}/scores
func (h *DashboardHandler) Scores(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || accountID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	caller, ok := ctxutil.IdentityFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if caller.AccountID != accountID && !caller.IsAdmin() {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	attempts, err := h.catalog.AccountAttempts(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, "account scores", err)
		return
	}
	out := scoresResponse{AccountID: accountID, Attempts: make([]attemptResponse, 0, len(attempts))}
	for _, a := range attempts {
		out.Attempts = append(out.Attempts, attemptResponse{
			ID:          a.ID,
			QuizID:      a.QuizID,
			AttemptedAt: a.AttemptedAt,
			Result:      a.Result,
			SubjectID:   a.SubjectID,
			SubjectName: a.SubjectName,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Stats returns per-subject figures for the admin dashboard.
// GET /admin/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.Stats(r.Context())
	if err != nil {
		h.fail(w, r, "subject stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if writeDomainError(w, err) {
		return
	}
	h.log.ErrorContext(r.Context(), op, slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "internal server error")
}
