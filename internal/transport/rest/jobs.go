package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
	"github.com/Chirantan-Dey/quiz-master/internal/jobs"
	"github.com/Chirantan-Dey/quiz-master/pkg/ctxutil"
)

type jobService interface {
	Submit(ctx context.Context, job domain.Job) (jobs.Handle, error)
	Status(ctx context.Context, id uuid.UUID) (*domain.JobRecord, error)
}

// JobsHandler serves the on-demand trigger and job status endpoints.
type JobsHandler struct {
	jobs jobService
	log  *slog.Logger
}

// NewJobsHandler creates a JobsHandler.
func NewJobsHandler(svc jobService, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{
		jobs: svc,
		log:  logger.With("handler", "jobs"),
	}
}

type triggerRequest struct {
	Kind      domain.JobKind `json:"kind"`
	Requester string         `json:"requester,omitempty"`
}

type triggerResponse struct {
	JobID     uuid.UUID `json:"job_id"`
	StatusURL string    `json:"status_url"`
}

type jobResponse struct {
	ID         uuid.UUID         `json:"id"`
	Kind       domain.JobKind    `json:"kind"`
	Status     domain.JobStatus  `json:"status"`
	Attempts   int               `json:"attempts"`
	Retries    int               `json:"retries"`
	Result     *domain.JobResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
	Processed  int               `json:"processed"`
	CreatedAt  time.Time         `json:"created_at"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// Trigger submits a job and answers before it runs.
// POST /admin/jobs {"kind": "user_export", "requester": "admin@example.com"}
func (h *JobsHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := jobFromRequest(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	handle, err := h.jobs.Submit(r.Context(), job)
	switch {
	case err == nil:
	case errors.Is(err, jobs.ErrQueueFull):
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusServiceUnavailable, "job queue is full")
		return
	case errors.Is(err, jobs.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "job system is shutting down")
		return
	case errors.Is(err, jobs.ErrNoHandler):
		writeError(w, http.StatusBadRequest, "job kind is not served by this process")
		return
	default:
		if !writeDomainError(w, err) {
			h.log.ErrorContext(r.Context(), "submit job",
				slog.String("kind", string(job.Kind)),
				slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.log.InfoContext(r.Context(), "job submitted",
		slog.String("job_id", handle.ID.String()),
		slog.String("kind", string(job.Kind)))

	writeJSON(w, http.StatusAccepted, triggerResponse{
		JobID:     handle.ID,
		StatusURL: "/admin/jobs/" + handle.ID.String(),
	})
}

// Status returns the current record of one job.
// GET /admin/jobs/{id}
func (h *JobsHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	rec, err := h.jobs.Status(r.Context(), id)
	if err != nil {
		if !writeDomainError(w, err) {
			h.log.ErrorContext(r.Context(), "job status",
				slog.String("job_id", id.String()),
				slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(rec))
}

// jobFromRequest builds a typed job. An export without a requester is
// attributed to the authenticated caller.
func jobFromRequest(ctx context.Context, req triggerRequest) (domain.Job, error) {
	switch req.Kind {
	case domain.JobDailyDigest:
		return domain.NewDailyDigest(), nil
	case domain.JobMonthlyReport:
		return domain.NewMonthlyReport(), nil
	case domain.JobUserExport:
		requester := req.Requester
		if requester == "" {
			if id, ok := ctxutil.IdentityFromCtx(ctx); ok {
				requester = id.Email
			}
		}
		return domain.NewUserExport(requester), nil
	default:
		return domain.Job{}, domain.NewValidationError("kind", "unknown job kind")
	}
}

func toJobResponse(rec *domain.JobRecord) jobResponse {
	return jobResponse{
		ID:         rec.ID,
		Kind:       rec.Job.Kind,
		Status:     rec.Status,
		Attempts:   rec.Attempts,
		Retries:    rec.Retries,
		Result:     rec.Result,
		Error:      rec.Error,
		Processed:  len(rec.Processed),
		CreatedAt:  rec.CreatedAt,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
	}
}
