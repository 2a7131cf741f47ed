// Package seeder fills an empty database with sample accounts, a quiz
// catalog and scored attempts so the jobs have something to report on.
package seeder

import (
	"context"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// AccountWriter creates and resolves accounts. Implemented by account.Repo.
type AccountWriter interface {
	Create(ctx context.Context, a domain.Account) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// CatalogWriter inserts the subject → chapter → quiz → question tree.
// Implemented by catalog.Repo.
type CatalogWriter interface {
	CreateSubject(ctx context.Context, s domain.Subject) (*domain.Subject, error)
	CreateChapter(ctx context.Context, c domain.Chapter) (*domain.Chapter, error)
	CreateQuiz(ctx context.Context, q domain.Quiz) (*domain.Quiz, error)
	CreateQuestion(ctx context.Context, q domain.Question) (*domain.Question, error)
}

// AttemptRecorder stores attempts and fires cache invalidation.
// Implemented by catalog.Service.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, a domain.Attempt) (*domain.Attempt, error)
	SubjectsChanged(ctx context.Context)
	ChaptersChanged(ctx context.Context)
}
