// Package catalog implements read access to the subject → chapter → quiz →
// question hierarchy and the per-subject statistics drawn from it.
package catalog

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres"
	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// Repo provides catalog persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// ListSubjects returns every subject ordered by id. Column order in exports
// follows this order.
func (r *Repo) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	b := postgres.Builder.
		Select("id", "name", "description").
		From("subjects").
		OrderBy("id")

	rows, err := postgres.Query(ctx, r.pool, b)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", postgres.MapError(err))
	}
	defer rows.Close()

	subjects := make([]domain.Subject, 0)
	for rows.Next() {
		var s domain.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
			return nil, fmt.Errorf("list subjects: scan: %w", err)
		}
		subjects = append(subjects, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subjects: %w", postgres.MapError(err))
	}
	return subjects, nil
}

// TopScoreBySubject returns the best attempt result per subject. Subjects
// without attempts are omitted.
func (r *Repo) TopScoreBySubject(ctx context.Context) ([]domain.SubjectStat, error) {
	b := subjectJoin().
		Column("MAX(t.total_scored)::float8").
		Join("attempts t ON t.quiz_id = q.id")

	return r.stats(ctx, b, "top score by subject")
}

// AttemptsBySubject returns attempt counts per subject, optionally for one
// account only. Subjects without attempts are omitted.
func (r *Repo) AttemptsBySubject(ctx context.Context, accountID *int64) ([]domain.SubjectStat, error) {
	b := subjectJoin().
		Column("COUNT(t.id)::float8").
		Join("attempts t ON t.quiz_id = q.id")
	if accountID != nil {
		b = b.Where(sq.Eq{"t.account_id": *accountID})
	}

	return r.stats(ctx, b, "attempts by subject")
}

// QuestionsBySubject returns question counts per subject. Subjects without
// questions are omitted.
func (r *Repo) QuestionsBySubject(ctx context.Context) ([]domain.SubjectStat, error) {
	b := subjectJoin().
		Column("COUNT(qs.id)::float8").
		Join("questions qs ON qs.quiz_id = q.id")

	return r.stats(ctx, b, "questions by subject")
}

// QuizzesScheduledBetween returns quizzes whose date falls in [from, to).
func (r *Repo) QuizzesScheduledBetween(ctx context.Context, from, to time.Time) ([]domain.Quiz, error) {
	b := postgres.Builder.
		Select("q.id", "q.chapter_id", "c.name", "q.name", "q.date_of_quiz", "q.time_duration", "q.remarks").
		From("quizzes q").
		Join("chapters c ON c.id = q.chapter_id").
		Where(sq.GtOrEq{"q.date_of_quiz": from}).
		Where(sq.Lt{"q.date_of_quiz": to}).
		OrderBy("q.date_of_quiz", "q.id")

	rows, err := postgres.Query(ctx, r.pool, b)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", postgres.MapError(err))
	}
	defer rows.Close()

	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		var q domain.Quiz
		if err := rows.Scan(&q.ID, &q.ChapterID, &q.ChapterName, &q.Name, &q.ScheduledOn, &q.Duration, &q.Remarks); err != nil {
			return nil, fmt.Errorf("list quizzes: scan: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", postgres.MapError(err))
	}
	return quizzes, nil
}

// ---------------------------------------------------------------------------
// Write operations (seeding)
// ---------------------------------------------------------------------------

// CreateSubject inserts a subject and returns it with its id.
func (r *Repo) CreateSubject(ctx context.Context, s domain.Subject) (*domain.Subject, error) {
	err := r.insert(ctx, postgres.Builder.
		Insert("subjects").
		Columns("name", "description").
		Values(s.Name, s.Description), &s.ID)
	if err != nil {
		return nil, fmt.Errorf("create subject %q: %w", s.Name, err)
	}
	return &s, nil
}

// CreateChapter inserts a chapter under an existing subject.
func (r *Repo) CreateChapter(ctx context.Context, c domain.Chapter) (*domain.Chapter, error) {
	err := r.insert(ctx, postgres.Builder.
		Insert("chapters").
		Columns("subject_id", "name", "description").
		Values(c.SubjectID, c.Name, c.Description), &c.ID)
	if err != nil {
		return nil, fmt.Errorf("create chapter %q: %w", c.Name, err)
	}
	return &c, nil
}

// CreateQuiz inserts a quiz under an existing chapter.
func (r *Repo) CreateQuiz(ctx context.Context, q domain.Quiz) (*domain.Quiz, error) {
	err := r.insert(ctx, postgres.Builder.
		Insert("quizzes").
		Columns("chapter_id", "name", "date_of_quiz", "time_duration", "remarks").
		Values(q.ChapterID, q.Name, q.ScheduledOn, q.Duration, q.Remarks), &q.ID)
	if err != nil {
		return nil, fmt.Errorf("create quiz %q: %w", q.Name, err)
	}
	return &q, nil
}

// CreateQuestion validates and inserts a question.
func (r *Repo) CreateQuestion(ctx context.Context, q domain.Question) (*domain.Question, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	err := r.insert(ctx, postgres.Builder.
		Insert("questions").
		Columns("quiz_id", "statement", "options", "correct_option").
		Values(q.QuizID, q.Prompt, q.Options, q.CorrectOption), &q.ID)
	if err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return &q, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func subjectJoin() sq.SelectBuilder {
	return postgres.Builder.
		Select("s.id", "s.name").
		From("subjects s").
		Join("chapters c ON c.subject_id = s.id").
		Join("quizzes q ON q.chapter_id = c.id").
		GroupBy("s.id", "s.name").
		OrderBy("s.id")
}

func (r *Repo) stats(ctx context.Context, b sq.SelectBuilder, op string) ([]domain.SubjectStat, error) {
	rows, err := postgres.Query(ctx, r.pool, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, postgres.MapError(err))
	}
	defer rows.Close()

	stats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SubjectStat, error) {
		var s domain.SubjectStat
		err := row.Scan(&s.SubjectID, &s.Subject, &s.Value)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, postgres.MapError(err))
	}
	return stats, nil
}

func (r *Repo) insert(ctx context.Context, b sq.InsertBuilder, id *int64) error {
	sql, args, err := b.Suffix("RETURNING id").ToSql()
	if err != nil {
		return err
	}
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, sql, args...).Scan(id); err != nil {
		return postgres.MapError(err)
	}
	return nil
}
