package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
	"github.com/Chirantan-Dey/quiz-master/internal/jobs"
	"github.com/Chirantan-Dey/quiz-master/internal/service/aggregate"
	"github.com/Chirantan-Dey/quiz-master/internal/service/report"
)

// DailyDigest mails every active regular user without an attempt in the
// last 24 hours. The body lists quizzes scheduled in that period, or is a
// plain reminder when there are none.
func (s *Service) DailyDigest(ctx context.Context, sc *jobs.Scope, _ domain.Job) (domain.JobResult, error) {
	now := sc.Now().In(s.Location)
	since := now.Add(-24 * time.Hour)

	quizzes, err := s.Quizzes.QuizzesScheduledBetween(ctx, since, now)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("new quizzes: %w", err)
	}

	if err := s.Renderer.Validate(domain.JobDailyDigest, report.DigestData{Quizzes: quizzes}); err != nil {
		return domain.JobResult{}, jobs.Fatal(err)
	}

	role := domain.RoleUser
	q := aggregate.Query{Role: &role, ActiveOnly: true, InactiveSince: &since}

	var (
		b       batch
		wrapped bool
		seen    int
	)
	err = s.Engine.Each(ctx, q, func(ctx context.Context, p aggregate.Page) error {
		for _, sum := range p.Summaries {
			seen++
			acc := sum.Account
			err := s.deliver(ctx, sc, &b, acc, func() (domain.Message, error) {
				r, err := s.Renderer.Render(domain.JobDailyDigest, report.DigestData{
					Name:    acc.DisplayName(),
					Quizzes: quizzes,
				})
				if err != nil {
					return domain.Message{}, err
				}
				return domain.Message{To: acc.Email, Name: acc.DisplayName(), Subject: r.Subject, HTML: r.HTML}, nil
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

	if seen == 0 && len(quizzes) == 0 {
		return domain.JobResult{Message: "No reminders needed", NoData: true}, nil
	}

	sc.Log.InfoContext(ctx, "daily digest done",
		slog.Int("recipients", seen),
		slog.Int("new_quizzes", len(quizzes)),
	)
	return b.outcome(fmt.Sprintf("Sent reminders to %d users", b.tally.Sent+b.tally.Skipped), wrapped)
}
