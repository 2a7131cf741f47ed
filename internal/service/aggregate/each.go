package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// Each streams summaries page by page. Only one page is held at a time.
// Returning ErrStop from fn ends the scan with a nil error.
//
// Each page query asks for one account more than the batch so the callback
// learns through Page.Last whether another page follows.
func (s *Service) Each(ctx context.Context, q Query, fn func(ctx context.Context, p Page) error) error {
	subjects, err := s.catalog.Subjects(ctx)
	if err != nil {
		return fmt.Errorf("enumerate subjects: %w", err)
	}

	filter := domain.AccountFilter{
		Limit:         s.batchSize + 1,
		AccountID:     q.AccountID,
		Role:          q.Role,
		ActiveOnly:    q.ActiveOnly,
		InactiveSince: q.InactiveSince,
	}

	pages := 0
	for {
		accounts, err := s.listPage(ctx, filter)
		if err != nil {
			return fmt.Errorf("list accounts after %d: %w", filter.AfterID, err)
		}
		if len(accounts) == 0 {
			break
		}
		last := len(accounts) <= s.batchSize
		if !last {
			accounts = accounts[:s.batchSize]
		}
		filter.AfterID = accounts[len(accounts)-1].ID
		pages++

		attempts, err := s.pageAttempts(ctx, q, accounts)
		if err != nil {
			return fmt.Errorf("load attempts for page %d: %w", pages, err)
		}

		page := Page{Subjects: subjects, Last: last}
		byAccount := groupByAccount(attempts)
		for _, acc := range accounts {
			own := byAccount[acc.ID]
			if q.SkipEmpty && len(own) == 0 {
				continue
			}
			sum := Summarize(acc, own, subjects)
			page.OrphansSkipped += sum.Orphans
			page.Summaries = append(page.Summaries, sum)
		}

		if err := fn(ctx, page); err != nil {
			if errors.Is(err, ErrStop) {
				s.log.InfoContext(ctx, "aggregation stopped early", slog.Int("pages", pages))
				return nil
			}
			return err
		}

		if last {
			break
		}
	}

	s.log.DebugContext(ctx, "aggregation complete", slog.Int("pages", pages))
	return nil
}

// Summarize collects every page into one slice. Intended for single-account
// or small scopes; batch jobs should use Each.
func (s *Service) Summarize(ctx context.Context, q Query) ([]domain.AccountSummary, error) {
	out := make([]domain.AccountSummary, 0)
	err := s.Each(ctx, q, func(_ context.Context, p Page) error {
		out = append(out, p.Summaries...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) listPage(ctx context.Context, f domain.AccountFilter) ([]domain.Account, error) {
	ctx, cancel := s.step(ctx)
	defer cancel()
	return s.accounts.ListPage(ctx, f)
}

// pageAttempts loads the attempts of one page with a single query. A
// single-account scope without a window goes through the cached read.
func (s *Service) pageAttempts(ctx context.Context, q Query, accounts []domain.Account) ([]domain.Attempt, error) {
	if q.AccountID != nil && len(accounts) == 1 && q.Window.Since == nil && q.Window.Until == nil {
		return s.catalog.AccountAttempts(ctx, accounts[0].ID)
	}

	ids := make([]int64, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}

	ctx, cancel := s.step(ctx)
	defer cancel()
	return s.attempts.ListByAccounts(ctx, ids, q.Window)
}

func (s *Service) step(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.stepTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.stepTimeout)
}

func groupByAccount(attempts []domain.Attempt) map[int64][]domain.Attempt {
	out := make(map[int64][]domain.Attempt)
	for _, a := range attempts {
		out[a.AccountID] = append(out[a.AccountID], a)
	}
	return out
}
