package testhelper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedAccount inserts an active account with the given roles.
func SeedAccount(t *testing.T, pool *pgxpool.Pool, roles ...domain.Role) domain.Account {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	name := "Test User " + suffix
	acc := domain.Account{
		Email:    "user-" + suffix + "@example.com",
		Active:   true,
		FullName: &name,
		Roles:    roles,
	}

	err := pool.QueryRow(ctx,
		`INSERT INTO accounts (email, active, full_name) VALUES ($1, $2, $3) RETURNING id`,
		acc.Email, acc.Active, acc.FullName,
	).Scan(&acc.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedAccount insert: %v", err)
	}

	for _, r := range roles {
		_, err := pool.Exec(ctx,
			`INSERT INTO account_roles (account_id, role_id) SELECT $1, id FROM roles WHERE name = $2`,
			acc.ID, string(r),
		)
		if err != nil {
			t.Fatalf("testhelper: SeedAccount grant %s: %v", r, err)
		}
	}
	if acc.Roles == nil {
		acc.Roles = []domain.Role{}
	}
	return acc
}

// CatalogFixture is one subject with one chapter and one quiz.
type CatalogFixture struct {
	Subject domain.Subject
	Chapter domain.Chapter
	Quiz    domain.Quiz
}

// SeedCatalog inserts a subject → chapter → quiz chain with the given number
// of questions on the quiz. The quiz is dated scheduledOn.
func SeedCatalog(t *testing.T, pool *pgxpool.Pool, subject string, questions int, scheduledOn time.Time) CatalogFixture {
	t.Helper()
	ctx := context.Background()

	var f CatalogFixture
	f.Subject = domain.Subject{Name: subject}
	if err := pool.QueryRow(ctx,
		`INSERT INTO subjects (name) VALUES ($1) RETURNING id`, subject,
	).Scan(&f.Subject.ID); err != nil {
		t.Fatalf("testhelper: SeedCatalog subject: %v", err)
	}

	f.Chapter = domain.Chapter{SubjectID: f.Subject.ID, Name: subject + " basics"}
	if err := pool.QueryRow(ctx,
		`INSERT INTO chapters (subject_id, name) VALUES ($1, $2) RETURNING id`,
		f.Chapter.SubjectID, f.Chapter.Name,
	).Scan(&f.Chapter.ID); err != nil {
		t.Fatalf("testhelper: SeedCatalog chapter: %v", err)
	}

	on := scheduledOn.UTC().Truncate(time.Microsecond)
	f.Quiz = domain.Quiz{
		ChapterID:   f.Chapter.ID,
		ChapterName: f.Chapter.Name,
		Name:        subject + " quiz " + uniqueSuffix(),
		ScheduledOn: &on,
		Duration:    "00:30",
	}
	if err := pool.QueryRow(ctx,
		`INSERT INTO quizzes (chapter_id, name, date_of_quiz, time_duration) VALUES ($1, $2, $3, $4) RETURNING id`,
		f.Quiz.ChapterID, f.Quiz.Name, f.Quiz.ScheduledOn, f.Quiz.Duration,
	).Scan(&f.Quiz.ID); err != nil {
		t.Fatalf("testhelper: SeedCatalog quiz: %v", err)
	}

	for i := range questions {
		_, err := pool.Exec(ctx,
			`INSERT INTO questions (quiz_id, statement, options, correct_option) VALUES ($1, $2, $3, $4)`,
			f.Quiz.ID, fmt.Sprintf("Question %d?", i+1), []string{"yes", "no"}, "yes",
		)
		if err != nil {
			t.Fatalf("testhelper: SeedCatalog question: %v", err)
		}
	}
	return f
}

// SeedAttempt records an attempt of accountID on quizID.
func SeedAttempt(t *testing.T, pool *pgxpool.Pool, accountID, quizID int64, result int, at time.Time) domain.Attempt {
	t.Helper()

	a := domain.Attempt{
		AccountID:   accountID,
		QuizID:      quizID,
		AttemptedAt: at.UTC().Truncate(time.Microsecond),
		Result:      result,
	}
	err := pool.QueryRow(context.Background(),
		`INSERT INTO attempts (account_id, quiz_id, attempted_at, total_scored) VALUES ($1, $2, $3, $4) RETURNING id`,
		a.AccountID, a.QuizID, a.AttemptedAt, a.Result,
	).Scan(&a.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedAttempt insert: %v", err)
	}
	return a
}
