package jobs

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// RecordStore persists job records. The postgres jobrecord repository and
// MemoryStore both satisfy it.
type RecordStore interface {
	Create(ctx context.Context, rec domain.JobRecord) error
	Update(ctx context.Context, rec domain.JobRecord) error
	Get(ctx context.Context, id uuid.UUID) (*domain.JobRecord, error)
}

// MemoryStore keeps records in process memory. It backs tests and
// single-process runs without persisted records.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]domain.JobRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]domain.JobRecord)}
}

func (s *MemoryStore) Create(_ context.Context, rec domain.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("job record %s: %w", rec.ID, domain.ErrAlreadyExists)
	}
	s.records[rec.ID] = clone(rec)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, rec domain.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; !ok {
		return fmt.Errorf("job record %s: %w", rec.ID, domain.ErrNotFound)
	}
	s.records[rec.ID] = clone(rec)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*domain.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("job record %s: %w", id, domain.ErrNotFound)
	}
	out := clone(rec)
	return &out, nil
}

// DeleteFinishedBefore removes terminal records finished before cutoff.
func (s *MemoryStore) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, rec := range s.records {
		if rec.Status.IsTerminal() && rec.FinishedAt != nil && rec.FinishedAt.Before(cutoff) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func clone(rec domain.JobRecord) domain.JobRecord {
	rec.Processed = slices.Clone(rec.Processed)
	if rec.Result != nil {
		r := *rec.Result
		r.Tally.Errors = slices.Clone(r.Tally.Errors)
		rec.Result = &r
	}
	if rec.Job.UserExport != nil {
		p := *rec.Job.UserExport
		rec.Job.UserExport = &p
	}
	return rec
}
