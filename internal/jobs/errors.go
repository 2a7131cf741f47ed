package jobs

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

var (
	ErrQueueFull    = errors.New("job queue is full")
	ErrAwaitTimeout = errors.New("timed out waiting for job")
	ErrClosed       = errors.New("job system is closed")
	ErrNoHandler    = errors.New("no handler registered for job kind")
	ErrHardTimeout  = errors.New("job exceeded hard time limit")
)

// Class is the retry classification of a job error.
type Class int

const (
	ClassFatal Class = iota
	ClassTransient
)

func (c Class) String() string {
	if c == ClassTransient {
		return "transient"
	}
	return "fatal"
}

type classified struct {
	err   error
	class Class
}

func (e *classified) Error() string { return e.err.Error() }
func (e *classified) Unwrap() error { return e.err }

// Transient marks err as worth retrying.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classified{err: err, class: ClassTransient}
}

// Fatal marks err as final. The job fails without further attempts.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &classified{err: err, class: ClassFatal}
}

// Classify decides whether err is transient. An explicit Transient or Fatal
// marker wins; otherwise backend unavailability, step deadlines, network
// timeouts and connection failures are transient and everything else is fatal.
func Classify(err error) Class {
	if err == nil {
		return ClassFatal
	}

	var c *classified
	if errors.As(err, &c) {
		return c.class
	}

	if errors.Is(err, domain.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.SafeToRetry(err) {
		return ClassTransient
	}

	return ClassFatal
}

// IsTransient is shorthand for Classify(err) == ClassTransient.
func IsTransient(err error) bool {
	return Classify(err) == ClassTransient
}
