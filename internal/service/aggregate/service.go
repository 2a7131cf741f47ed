// Package aggregate computes per-account and per-subject attempt statistics
// over keyset pages of accounts.
package aggregate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// ErrStop may be returned from an Each callback to end the scan early
// without an error.
var ErrStop = errors.New("aggregate: stop")

type accountRepo interface {
	ListPage(ctx context.Context, f domain.AccountFilter) ([]domain.Account, error)
}

type attemptRepo interface {
	ListByAccounts(ctx context.Context, accountIDs []int64, w domain.TimeWindow) ([]domain.Attempt, error)
}

type catalogReader interface {
	Subjects(ctx context.Context) ([]domain.Subject, error)
	AccountAttempts(ctx context.Context, accountID int64) ([]domain.Attempt, error)
}

// Query selects the accounts and attempts to summarize.
type Query struct {
	AccountID     *int64
	Role          *domain.Role
	ActiveOnly    bool
	InactiveSince *time.Time
	Window        domain.TimeWindow
	// SkipEmpty drops accounts without attempts in Window from the output.
	SkipEmpty bool
}

// Page is one batch of summaries. Subjects is the enumeration the
// breakdowns follow.
type Page struct {
	Summaries      []domain.AccountSummary
	Subjects       []domain.Subject
	OrphansSkipped int
	// Last is set on the final page of the scan.
	Last bool
}

// Service is the aggregation engine.
type Service struct {
	log         *slog.Logger
	accounts    accountRepo
	attempts    attemptRepo
	catalog     catalogReader
	batchSize   int
	stepTimeout time.Duration
}

// NewService creates a new aggregation engine. Non-positive batchSize falls
// back to 100; non-positive stepTimeout disables per-step deadlines.
func NewService(
	logger *slog.Logger,
	accounts accountRepo,
	attempts attemptRepo,
	catalog catalogReader,
	batchSize int,
	stepTimeout time.Duration,
) *Service {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Service{
		log:         logger.With("service", "aggregate"),
		accounts:    accounts,
		attempts:    attempts,
		catalog:     catalog,
		batchSize:   batchSize,
		stepTimeout: stepTimeout,
	}
}
