package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, domain.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan row: %w", pgx.ErrNoRows), domain.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", Message: "dup"}, domain.ErrAlreadyExists},
		{"foreign key", &pgconn.PgError{Code: "23503", Message: "fk"}, domain.ErrNotFound},
		{"check violation", &pgconn.PgError{Code: "23514", Message: "check"}, domain.ErrValidation},
		{"invalid datetime", &pgconn.PgError{Code: "22007", Message: "bad date"}, domain.ErrValidation},
		{"serialization failure", &pgconn.PgError{Code: "40001", Message: "serialize"}, domain.ErrUnavailable},
		{"deadlock", &pgconn.PgError{Code: "40P01", Message: "deadlock"}, domain.ErrUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01", Message: "terminating"}, domain.ErrUnavailable},
		{"connection exception class", &pgconn.PgError{Code: "08006", Message: "conn failure"}, domain.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, MapError(tt.in), tt.want)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, MapError(nil))
}

func TestMapError_ContextPassThrough(t *testing.T) {
	t.Parallel()

	for _, in := range []error{context.DeadlineExceeded, context.Canceled} {
		got := MapError(fmt.Errorf("query: %w", in))
		assert.ErrorIs(t, got, in)
		assert.NotErrorIs(t, got, domain.ErrUnavailable)
	}
}

func TestMapError_UnknownPgErrorUnchanged(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Code: "42P01", Message: "undefined table"}
	got := MapError(pgErr)

	var target *pgconn.PgError
	assert.True(t, errors.As(got, &target))
	assert.NotErrorIs(t, got, domain.ErrUnavailable)
	assert.NotErrorIs(t, got, domain.ErrValidation)
}

func TestMapError_PlainErrorUnchanged(t *testing.T) {
	t.Parallel()

	plain := errors.New("boom")
	assert.Same(t, plain, MapError(plain))
}
