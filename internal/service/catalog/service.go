// Package catalog serves cached read models over subjects and scores and
// owns the invalidation hooks that write paths call.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Chirantan-Dey/quiz-master/internal/cache"
	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

type catalogRepo interface {
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
	TopScoreBySubject(ctx context.Context) ([]domain.SubjectStat, error)
	AttemptsBySubject(ctx context.Context, accountID *int64) ([]domain.SubjectStat, error)
	QuestionsBySubject(ctx context.Context) ([]domain.SubjectStat, error)
}

type attemptRepo interface {
	ListByAccounts(ctx context.Context, accountIDs []int64, w domain.TimeWindow) ([]domain.Attempt, error)
	Record(ctx context.Context, a domain.Attempt) (*domain.Attempt, error)
}

// SubjectStats are the per-subject figures behind the admin dashboard.
type SubjectStats struct {
	TopScores []domain.SubjectStat `json:"top_scores"`
	Attempts  []domain.SubjectStat `json:"attempts"`
	Questions []domain.SubjectStat `json:"questions"`
}

// Service implements cached catalog reads.
type Service struct {
	log      *slog.Logger
	cache    *cache.Cache
	catalog  catalogRepo
	attempts attemptRepo
}

// NewService creates a new catalog service.
func NewService(logger *slog.Logger, c *cache.Cache, catalog catalogRepo, attempts attemptRepo) *Service {
	return &Service{
		log:      logger.With("service", "catalog"),
		cache:    c,
		catalog:  catalog,
		attempts: attempts,
	}
}

// Subjects returns every subject in enumeration order.
func (s *Service) Subjects(ctx context.Context) ([]domain.Subject, error) {
	return cache.Fetch(ctx, s.cache, cache.KeySubjectList, 0, s.catalog.ListSubjects)
}

// AccountAttempts returns every attempt of one account, oldest first.
func (s *Service) AccountAttempts(ctx context.Context, accountID int64) ([]domain.Attempt, error) {
	return cache.Fetch(ctx, s.cache, cache.ScoresKey(accountID), 0, func(ctx context.Context) ([]domain.Attempt, error) {
		return s.attempts.ListByAccounts(ctx, []int64{accountID}, domain.TimeWindow{})
	})
}

// Stats returns the per-subject dashboard figures.
func (s *Service) Stats(ctx context.Context) (SubjectStats, error) {
	return cache.Fetch(ctx, s.cache, cache.KeySubjectStats, 0, func(ctx context.Context) (SubjectStats, error) {
		var (
			out SubjectStats
			err error
		)
		if out.TopScores, err = s.catalog.TopScoreBySubject(ctx); err != nil {
			return SubjectStats{}, fmt.Errorf("top scores: %w", err)
		}
		if out.Attempts, err = s.catalog.AttemptsBySubject(ctx, nil); err != nil {
			return SubjectStats{}, fmt.Errorf("attempt counts: %w", err)
		}
		if out.Questions, err = s.catalog.QuestionsBySubject(ctx); err != nil {
			return SubjectStats{}, fmt.Errorf("question counts: %w", err)
		}
		return out, nil
	})
}

// RecordAttempt stores an attempt and invalidates what it affects.
func (s *Service) RecordAttempt(ctx context.Context, a domain.Attempt) (*domain.Attempt, error) {
	saved, err := s.attempts.Record(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}
	s.AttemptRecorded(ctx, saved.AccountID)
	return saved, nil
}
