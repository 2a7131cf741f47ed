package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
	"github.com/Chirantan-Dey/quiz-master/internal/jobs"
	"github.com/Chirantan-Dey/quiz-master/internal/service/aggregate"
	"github.com/Chirantan-Dey/quiz-master/internal/service/report"
)

const exportFilename = "user_export.csv"

// UserExport mails a CSV of every account to the requesting administrator.
// A requester that is unknown or lacks the admin role fails the job without
// retries.
func (s *Service) UserExport(ctx context.Context, sc *jobs.Scope, job domain.Job) (domain.JobResult, error) {
	if job.UserExport == nil {
		return domain.JobResult{}, jobs.Fatal(domain.NewValidationError("params", "user_export params required"))
	}
	requester := domain.NormalizeEmail(job.UserExport.Requester)

	admin, err := s.Accounts.GetByEmail(ctx, requester)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.JobResult{}, jobs.Fatal(fmt.Errorf("requester %s: %w", requester, domain.ErrForbidden))
		}
		return domain.JobResult{}, fmt.Errorf("load requester: %w", err)
	}
	if !admin.IsAdmin() {
		return domain.JobResult{}, jobs.Fatal(fmt.Errorf("requester %s is not an admin: %w", requester, domain.ErrForbidden))
	}

	subjects, err := s.Catalog.Subjects(ctx)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("enumerate subjects: %w", err)
	}

	data := report.ExportData{GeneratedAt: sc.Now().In(s.Location), Subjects: subjects}
	if err := s.Renderer.Validate(domain.JobUserExport, data); err != nil {
		return domain.JobResult{}, jobs.Fatal(err)
	}

	data.Pages = func(yield func([]domain.AccountSummary) error) error {
		return s.Engine.Each(ctx, aggregate.Query{}, func(_ context.Context, p aggregate.Page) error {
			if sc.ShouldWrapUp() {
				// Truncated exports are never delivered.
				return jobs.Fatal(ErrWrappedUp)
			}
			return yield(p.Summaries)
		})
	}

	r, err := s.Renderer.Render(domain.JobUserExport, data)
	if err != nil {
		if errors.Is(err, domain.ErrTemplate) {
			return domain.JobResult{}, jobs.Fatal(err)
		}
		return domain.JobResult{}, fmt.Errorf("render export: %w", err)
	}

	_, err = s.Mailer.Send(ctx, domain.Message{
		To:      admin.Email,
		Name:    admin.DisplayName(),
		Subject: r.Subject,
		HTML:    r.HTML,
		Attachments: []domain.Attachment{{
			Filename:    exportFilename,
			ContentType: "text/csv",
			Content:     r.CSV,
		}},
	})
	if err != nil {
		return domain.JobResult{Tally: domain.Tally{Failed: 1, Errors: []string{err.Error()}}}, err
	}

	sc.Log.InfoContext(ctx, "user export sent", slog.String("to", admin.Email), slog.Int("bytes", len(r.CSV)))
	return domain.JobResult{Message: "Export completed and sent", Tally: domain.Tally{Sent: 1}}, nil
}
