// Package notify implements the background job handlers: the daily digest,
// the monthly activity report and the administrator user export.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
	"github.com/Chirantan-Dey/quiz-master/internal/jobs"
	"github.com/Chirantan-Dey/quiz-master/internal/service/aggregate"
	"github.com/Chirantan-Dey/quiz-master/internal/service/chart"
	"github.com/Chirantan-Dey/quiz-master/internal/service/report"
)

// ErrWrappedUp is returned when a batch loop stopped at the soft time limit.
// The job is retried and the checkpoint skips recipients already mailed.
var ErrWrappedUp = errors.New("stopped at soft time limit")

type engine interface {
	Each(ctx context.Context, q aggregate.Query, fn func(ctx context.Context, p aggregate.Page) error) error
}

type renderer interface {
	Validate(kind domain.JobKind, data any) error
	Render(kind domain.JobKind, data any) (report.Rendered, error)
}

type chartGenerator interface {
	Generate(ctx context.Context, kind domain.ChartKind, accountID *int64) (*chart.Artifact, error)
}

type mailer interface {
	Send(ctx context.Context, msg domain.Message) (bool, error)
}

type accountRepo interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type catalogReader interface {
	Subjects(ctx context.Context) ([]domain.Subject, error)
}

type quizRepo interface {
	QuizzesScheduledBetween(ctx context.Context, from, to time.Time) ([]domain.Quiz, error)
}

type registrar interface {
	Register(kind domain.JobKind, h jobs.Handler)
}

// Deps bundles the collaborators of the handlers.
type Deps struct {
	Engine   engine
	Renderer renderer
	Charts   chartGenerator
	Mailer   mailer
	Accounts accountRepo
	Catalog  catalogReader
	Quizzes  quizRepo
	// Location fixes day and month boundaries. Nil means UTC.
	Location *time.Location
	// ReadFile loads chart artifacts for attachment. Nil means os.ReadFile.
	ReadFile func(name string) ([]byte, error)
}

// Service holds the job handlers.
type Service struct {
	log *slog.Logger
	Deps
}

// NewService creates the notification handlers.
func NewService(logger *slog.Logger, deps Deps) *Service {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.ReadFile == nil {
		deps.ReadFile = os.ReadFile
	}
	return &Service{log: logger.With("service", "notify"), Deps: deps}
}

// Register binds every handler to its job kind.
func (s *Service) Register(r registrar) {
	r.Register(domain.JobDailyDigest, s.DailyDigest)
	r.Register(domain.JobMonthlyReport, s.MonthlyReport)
	r.Register(domain.JobUserExport, s.UserExport)
}

// ---------------------------------------------------------------------------
// Per-recipient delivery
// ---------------------------------------------------------------------------

// batch tracks the recipients of one attempt. Failures are isolated: a
// malformed address is tallied, a transport failure is tallied and makes
// the attempt transient once every recipient has been tried.
type batch struct {
	tally     domain.Tally
	transient int
}

func recipientKey(accountID int64) string {
	return strconv.FormatInt(accountID, 10)
}

// deliver sends the message built for acc unless an earlier attempt did.
func (s *Service) deliver(ctx context.Context, sc *jobs.Scope, b *batch, acc domain.Account, build func() (domain.Message, error)) error {
	key := recipientKey(acc.ID)
	if sc.Done(key) {
		b.tally.Skipped++
		return nil
	}

	msg, err := build()
	if err != nil {
		// Rendering defects affect every recipient; fail the job.
		return jobs.Fatal(err)
	}

	if _, err := s.Mailer.Send(ctx, msg); err != nil {
		b.tally.Failed++
		b.tally.Errors = append(b.tally.Errors, err.Error())
		if jobs.IsTransient(err) {
			b.transient++
		}
		sc.Log.WarnContext(ctx, "recipient failed",
			slog.Int64("account_id", acc.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	sc.MarkDone(key)
	b.tally.Sent++
	return nil
}

// outcome converts the batch into the attempt's result and error.
func (b *batch) outcome(message string, wrapped bool) (domain.JobResult, error) {
	res := domain.JobResult{Message: message, Tally: b.tally}
	switch {
	case wrapped:
		return res, jobs.Transient(ErrWrappedUp)
	case b.transient > 0:
		return res, jobs.Transient(fmt.Errorf("%w: %d deliveries failed", domain.ErrUnavailable, b.transient))
	}
	return res, nil
}
