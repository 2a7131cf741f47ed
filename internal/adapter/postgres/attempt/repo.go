// Package attempt implements read access to quiz attempts (scores).
// Attempts are resolved to their subject through LEFT JOINs so that attempts
// whose quiz has since been deleted come back with a nil subject.
package attempt

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres"
	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// Repo provides attempt persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new attempt repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func selectAttempts() sq.SelectBuilder {
	return postgres.Builder.
		Select(
			"t.id", "t.account_id", "COALESCE(t.quiz_id, 0)", "t.attempted_at", "t.total_scored",
			"s.id", "s.name",
		).
		From("attempts t").
		LeftJoin("quizzes q ON q.id = t.quiz_id").
		LeftJoin("chapters c ON c.id = q.chapter_id").
		LeftJoin("subjects s ON s.id = c.subject_id")
}

// ListByAccounts returns every attempt of the given accounts inside w,
// ordered by account then time. One query per page of accounts.
func (r *Repo) ListByAccounts(ctx context.Context, accountIDs []int64, w domain.TimeWindow) ([]domain.Attempt, error) {
	if len(accountIDs) == 0 {
		return []domain.Attempt{}, nil
	}

	b := selectAttempts().
		Where("t.account_id = ANY(?)", accountIDs).
		OrderBy("t.account_id", "t.attempted_at", "t.id")
	b = applyWindow(b, w)

	return r.list(ctx, b, "list attempts by accounts")
}

// ListByAccount returns the attempts of one account, newest first.
func (r *Repo) ListByAccount(ctx context.Context, accountID int64) ([]domain.Attempt, error) {
	b := selectAttempts().
		Where(sq.Eq{"t.account_id": accountID}).
		OrderBy("t.attempted_at DESC", "t.id DESC")

	return r.list(ctx, b, fmt.Sprintf("list attempts of account %d", accountID))
}

// Record inserts a new attempt.
func (r *Repo) Record(ctx context.Context, a domain.Attempt) (*domain.Attempt, error) {
	if a.AttemptedAt.IsZero() {
		a.AttemptedAt = time.Now().UTC()
	}

	sql, args, err := postgres.Builder.
		Insert("attempts").
		Columns("account_id", "quiz_id", "attempted_at", "total_scored").
		Values(a.AccountID, a.QuizID, a.AttemptedAt, a.Result).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}

	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, sql, args...).Scan(&a.ID); err != nil {
		return nil, fmt.Errorf("record attempt for account %d: %w", a.AccountID, postgres.MapError(err))
	}
	return &a, nil
}

func (r *Repo) list(ctx context.Context, b sq.SelectBuilder, op string) ([]domain.Attempt, error) {
	rows, err := postgres.Query(ctx, r.pool, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, postgres.MapError(err))
	}
	defer rows.Close()

	attempts := make([]domain.Attempt, 0)
	for rows.Next() {
		var a domain.Attempt
		if err := rows.Scan(&a.ID, &a.AccountID, &a.QuizID, &a.AttemptedAt, &a.Result, &a.SubjectID, &a.SubjectName); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, postgres.MapError(err))
	}
	return attempts, nil
}

func applyWindow(b sq.SelectBuilder, w domain.TimeWindow) sq.SelectBuilder {
	if w.Since != nil {
		b = b.Where(sq.GtOrEq{"t.attempted_at": *w.Since})
	}
	if w.Until != nil {
		b = b.Where(sq.Lt{"t.attempted_at": *w.Until})
	}
	return b
}
