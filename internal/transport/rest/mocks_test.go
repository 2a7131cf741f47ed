package rest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
	"github.com/Chirantan-Dey/quiz-master/internal/jobs"
	"github.com/Chirantan-Dey/quiz-master/internal/service/catalog"
)

var (
	_ jobService     = &jobServiceMock{}
	_ catalogService = &catalogServiceMock{}
)

type jobServiceMock struct {
	SubmitFunc func(ctx context.Context, job domain.Job) (jobs.Handle, error)
	StatusFunc func(ctx context.Context, id uuid.UUID) (*domain.JobRecord, error)

	mu        sync.Mutex
	submitted []domain.Job
}

func (m *jobServiceMock) Submit(ctx context.Context, job domain.Job) (jobs.Handle, error) {
	if m.SubmitFunc == nil {
		panic("jobServiceMock.SubmitFunc: method is nil but jobService.Submit was just called")
	}
	m.mu.Lock()
	m.submitted = append(m.submitted, job)
	m.mu.Unlock()
	return m.SubmitFunc(ctx, job)
}

func (m *jobServiceMock) Status(ctx context.Context, id uuid.UUID) (*domain.JobRecord, error) {
	if m.StatusFunc == nil {
		panic("jobServiceMock.StatusFunc: method is nil but jobService.Status was just called")
	}
	return m.StatusFunc(ctx, id)
}

func (m *jobServiceMock) SubmitCalls() []domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Job(nil), m.submitted...)
}

type catalogServiceMock struct {
	SubjectsFunc        func(ctx context.Context) ([]domain.Subject, error)
	AccountAttemptsFunc func(ctx context.Context, accountID int64) ([]domain.Attempt, error)
	StatsFunc           func(ctx context.Context) (catalog.SubjectStats, error)
}

func (m *catalogServiceMock) Subjects(ctx context.Context) ([]domain.Subject, error) {
	if m.SubjectsFunc == nil {
		panic("catalogServiceMock.SubjectsFunc: method is nil but catalogService.Subjects was just called")
	}
	return m.SubjectsFunc(ctx)
}

func (m *catalogServiceMock) AccountAttempts(ctx context.Context, accountID int64) ([]domain.Attempt, error) {
	if m.AccountAttemptsFunc == nil {
		panic("catalogServiceMock.AccountAttemptsFunc: method is nil but catalogService.AccountAttempts was just called")
	}
	return m.AccountAttemptsFunc(ctx, accountID)
}

func (m *catalogServiceMock) Stats(ctx context.Context) (catalog.SubjectStats, error) {
	if m.StatsFunc == nil {
		panic("catalogServiceMock.StatsFunc: method is nil but catalogService.Stats was just called")
	}
	return m.StatsFunc(ctx)
}
