package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// MapError converts pgx/pgconn errors to domain errors.
// context.DeadlineExceeded and context.Canceled are NOT mapped; they pass through.
// Connection-level failures map to domain.ErrUnavailable so callers can treat
// them as transient.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrAlreadyExists)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrNotFound)
		case "23514", "22P02", "22007", "22008": // check_violation, invalid text/datetime input
			return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrValidation)
		case "40001", "40P01", "53300", "57P01", "57P03": // serialization, deadlock, too many conns, shutdown
			return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrUnavailable)
		}
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" { // connection exception class
			return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrUnavailable)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) || pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("%v: %w", err, domain.ErrUnavailable)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%v: %w", err, domain.ErrUnavailable)
	}

	return err
}
