package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/Chirantan-Dey/quiz-master/internal/config"
	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

type submitter interface {
	Submit(ctx context.Context, job domain.Job) (Handle, error)
	Status(ctx context.Context, id uuid.UUID) (*domain.JobRecord, error)
}

// Scheduler submits the calendar jobs. It only enqueues; a tick whose
// previous job of the same kind has not finished is skipped.
type Scheduler struct {
	log  *slog.Logger
	sys  submitter
	cron *cron.Cron

	mu   sync.Mutex
	last map[domain.JobKind]uuid.UUID
}

// NewScheduler parses the configured expressions in the configured
// location. It returns an error for an invalid expression.
func NewScheduler(logger *slog.Logger, sys submitter, cfg config.SchedulerConfig) (*Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	s := &Scheduler{
		log:  logger.With("component", "scheduler"),
		sys:  sys,
		last: make(map[domain.JobKind]uuid.UUID),
	}
	cl := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	entries := []struct {
		spec string
		job  func() domain.Job
	}{
		{cfg.DailyDigest, domain.NewDailyDigest},
		{cfg.MonthlyReport, domain.NewMonthlyReport},
	}
	for _, e := range entries {
		job := e.job
		if _, err := s.cron.AddFunc(e.spec, func() { s.fire(context.Background(), job()) }); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", job().Kind, e.spec, err)
		}
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.Info("scheduled", slog.Time("next", e.Next))
	}
}

// Stop halts the scheduler. The returned context is done once any
// in-progress tick has returned.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// fire submits job unless the previous one of the same kind is still
// queued or running.
func (s *Scheduler) fire(ctx context.Context, job domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.last[job.Kind]; ok {
		rec, err := s.sys.Status(ctx, prev)
		if err == nil && !rec.Status.IsTerminal() {
			s.log.WarnContext(ctx, "previous run still active, skipping tick",
				slog.String("kind", job.Kind.String()),
				slog.String("job_id", prev.String()),
			)
			return
		}
	}

	h, err := s.sys.Submit(ctx, job)
	if err != nil {
		s.log.ErrorContext(ctx, "scheduled submit failed",
			slog.String("kind", job.Kind.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	s.last[job.Kind] = h.ID
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err.Error())...)
}
