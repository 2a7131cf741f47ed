package notify

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
	"github.com/Chirantan-Dey/quiz-master/internal/jobs"
	"github.com/Chirantan-Dey/quiz-master/internal/service/aggregate"
	"github.com/Chirantan-Dey/quiz-master/internal/service/report"
)

// MonthlyReport mails each active account its activity for the previous
// calendar month. Accounts without attempts in that month are skipped. A
// per-account attempts chart is attached when one can be drawn.
func (s *Service) MonthlyReport(ctx context.Context, sc *jobs.Scope, _ domain.Job) (domain.JobResult, error) {
	window := domain.MonthBefore(sc.Now().In(s.Location))
	month := window.Since.Format("January 2006")

	if err := s.Renderer.Validate(domain.JobMonthlyReport, report.MonthlyData{Month: month}); err != nil {
		return domain.JobResult{}, jobs.Fatal(err)
	}

	q := aggregate.Query{ActiveOnly: true, Window: window, SkipEmpty: true}

	var (
		b       batch
		wrapped bool
		seen    int
	)
	err := s.Engine.Each(ctx, q, func(ctx context.Context, p aggregate.Page) error {
		for _, sum := range p.Summaries {
			seen++
			err := s.deliver(ctx, sc, &b, sum.Account, func() (domain.Message, error) {
				return s.monthlyMessage(ctx, sc, sum, month)
			})
			if err != nil {
				return err
			}
		}
		if !p.Last && sc.ShouldWrapUp() {
			wrapped = true
			return aggregate.ErrStop
		}
		return nil
	})
	if err != nil {
		return domain.JobResult{Tally: b.tally}, err
	}

	if seen == 0 {
		return domain.JobResult{Message: "No activity in " + month, NoData: true}, nil
	}

	sc.Log.InfoContext(ctx, "monthly report done", slog.String("month", month), slog.Int("recipients", seen))
	return b.outcome(fmt.Sprintf("Sent monthly reports to %d users", b.tally.Sent+b.tally.Skipped), wrapped)
}

func (s *Service) monthlyMessage(ctx context.Context, sc *jobs.Scope, sum domain.AccountSummary, month string) (domain.Message, error) {
	acc := sum.Account
	var attachments []domain.Attachment

	// A missing chart never blocks the report.
	art, err := s.Charts.Generate(ctx, domain.ChartUserAttempts, &acc.ID)
	switch {
	case err != nil:
		sc.Log.WarnContext(ctx, "user chart failed", slog.Int64("account_id", acc.ID), slog.String("error", err.Error()))
	case art != nil:
		content, err := s.ReadFile(art.Path)
		if err != nil {
			sc.Log.WarnContext(ctx, "read user chart", slog.String("path", art.Path), slog.String("error", err.Error()))
			break
		}
		attachments = append(attachments, domain.Attachment{
			Filename:    filepath.Base(art.Name),
			ContentType: art.ContentType,
			Content:     content,
		})
	}

	r, err := s.Renderer.Render(domain.JobMonthlyReport, report.MonthlyData{
		Name:     acc.DisplayName(),
		Month:    month,
		Summary:  sum,
		HasChart: len(attachments) > 0,
	})
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		To:          acc.Email,
		Name:        acc.DisplayName(),
		Subject:     r.Subject,
		HTML:        r.HTML,
		Attachments: attachments,
	}, nil
}
