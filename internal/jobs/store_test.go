package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

func TestMemoryStore_CRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	rec := domain.JobRecord{ID: uuid.New(), Job: domain.NewUserExport("admin@example.com"), Status: domain.JobPending}
	require.NoError(t, s.Create(ctx, rec))
	assert.ErrorIs(t, s.Create(ctx, rec), domain.ErrAlreadyExists)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, got.Status)

	// Returned records are copies.
	got.Job.UserExport.Requester = "changed"
	got.Processed = append(got.Processed, "x")
	again, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", again.Job.UserExport.Requester)
	assert.Empty(t, again.Processed)

	rec.Status = domain.JobSucceeded
	require.NoError(t, s.Update(ctx, rec))

	_, err = s.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, domain.JobRecord{ID: uuid.New()}), domain.ErrNotFound)
}

func TestMemoryStore_DeleteFinishedBefore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	old, recent := now.Add(-48*time.Hour), now.Add(-time.Hour)

	records := []domain.JobRecord{
		{ID: uuid.New(), Status: domain.JobSucceeded, FinishedAt: &old},
		{ID: uuid.New(), Status: domain.JobFailed, FinishedAt: &old},
		{ID: uuid.New(), Status: domain.JobSucceeded, FinishedAt: &recent},
		{ID: uuid.New(), Status: domain.JobRunning},
	}
	for _, r := range records {
		require.NoError(t, s.Create(ctx, r))
	}

	n, err := s.DeleteFinishedBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.Get(ctx, records[2].ID)
	assert.NoError(t, err)
	_, err = s.Get(ctx, records[3].ID)
	assert.NoError(t, err)
}
