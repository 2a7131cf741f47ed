// Package jobrecord persists background job records in the job_records table.
package jobrecord

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres"
	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// Repo provides job record persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new job record repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var columns = []string{
	"id", "kind", "params", "status", "attempts", "retries",
	"result", "error", "processed", "created_at", "started_at", "finished_at",
}

// Create inserts a new record.
func (r *Repo) Create(ctx context.Context, rec domain.JobRecord) error {
	params, result, err := encode(rec)
	if err != nil {
		return fmt.Errorf("create job record %s: %w", rec.ID, err)
	}

	b := postgres.Builder.
		Insert("job_records").
		Columns(columns...).
		Values(rec.ID, string(rec.Job.Kind), params, string(rec.Status), rec.Attempts, rec.Retries,
			result, rec.Error, processed(rec.Processed), rec.CreatedAt, rec.StartedAt, rec.FinishedAt)

	if _, err := postgres.Exec(ctx, r.pool, b); err != nil {
		return fmt.Errorf("create job record %s: %w", rec.ID, postgres.MapError(err))
	}
	return nil
}

// Update overwrites the mutable fields of an existing record.
func (r *Repo) Update(ctx context.Context, rec domain.JobRecord) error {
	_, result, err := encode(rec)
	if err != nil {
		return fmt.Errorf("update job record %s: %w", rec.ID, err)
	}

	b := postgres.Builder.
		Update("job_records").
		SetMap(map[string]any{
			"status":      string(rec.Status),
			"attempts":    rec.Attempts,
			"retries":     rec.Retries,
			"result":      result,
			"error":       rec.Error,
			"processed":   processed(rec.Processed),
			"started_at":  rec.StartedAt,
			"finished_at": rec.FinishedAt,
		}).
		Where(sq.Eq{"id": rec.ID})

	tag, err := postgres.Exec(ctx, r.pool, b)
	if err != nil {
		return fmt.Errorf("update job record %s: %w", rec.ID, postgres.MapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job record %s: %w", rec.ID, domain.ErrNotFound)
	}
	return nil
}

// Get returns a record by id.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*domain.JobRecord, error) {
	sql, args, err := postgres.Builder.
		Select(columns...).
		From("job_records").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("get job record: %w", err)
	}

	var (
		rec            domain.JobRecord
		kind, status   string
		params, result []byte
	)
	err = postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, sql, args...).Scan(
		&rec.ID, &kind, &params, &status, &rec.Attempts, &rec.Retries,
		&result, &rec.Error, &rec.Processed, &rec.CreatedAt, &rec.StartedAt, &rec.FinishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("job record %s: %w", id, postgres.MapError(err))
	}

	rec.Status = domain.JobStatus(status)
	if err := json.Unmarshal(params, &rec.Job); err != nil {
		return nil, fmt.Errorf("job record %s: decode params: %w", id, err)
	}
	rec.Job.Kind = domain.JobKind(kind)
	if len(result) > 0 {
		rec.Result = &domain.JobResult{}
		if err := json.Unmarshal(result, rec.Result); err != nil {
			return nil, fmt.Errorf("job record %s: decode result: %w", id, err)
		}
	}
	return &rec, nil
}

// DeleteFinishedBefore removes terminal records that finished before cutoff
// and returns how many were removed.
func (r *Repo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	b := postgres.Builder.
		Delete("job_records").
		Where(sq.Lt{"finished_at": cutoff}).
		Where(sq.Eq{"status": []string{string(domain.JobSucceeded), string(domain.JobFailed)}})

	tag, err := postgres.Exec(ctx, r.pool, b)
	if err != nil {
		return 0, fmt.Errorf("delete job records: %w", postgres.MapError(err))
	}
	return tag.RowsAffected(), nil
}

func encode(rec domain.JobRecord) (params, result []byte, err error) {
	params, err = json.Marshal(rec.Job)
	if err != nil {
		return nil, nil, fmt.Errorf("encode params: %w", err)
	}
	if rec.Result != nil {
		result, err = json.Marshal(rec.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("encode result: %w", err)
		}
	}
	return params, result, nil
}

func processed(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
