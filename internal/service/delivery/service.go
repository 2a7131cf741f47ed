// Package delivery sends rendered notifications through a mail transport.
// Each recipient is an isolated failure domain; the package never retries.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

type sender interface {
	Send(ctx context.Context, msg domain.Message) error
}

// Service validates recipients and hands messages to the transport.
type Service struct {
	log         *slog.Logger
	sender      sender
	stepTimeout time.Duration
}

// NewService creates a new delivery service. A positive stepTimeout bounds
// every transport call.
func NewService(logger *slog.Logger, s sender, stepTimeout time.Duration) *Service {
	return &Service{
		log:         logger.With("service", "delivery"),
		sender:      s,
		stepTimeout: stepTimeout,
	}
}

// Send delivers one message. A malformed recipient fails with
// domain.ErrInvalidRecipient and nothing is sent.
func (s *Service) Send(ctx context.Context, msg domain.Message) (bool, error) {
	addr, err := mail.ParseAddress(msg.To)
	if err != nil {
		return false, fmt.Errorf("%w: %q: %v", domain.ErrInvalidRecipient, msg.To, err)
	}
	msg.To = addr.Address
	if msg.Name == "" {
		msg.Name = addr.Name
	}

	if s.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.stepTimeout)
		defer cancel()
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
		}
		s.log.WarnContext(ctx, "delivery failed",
			slog.String("to", msg.To),
			slog.String("error", err.Error()),
		)
		return false, fmt.Errorf("send to %s: %w", msg.To, err)
	}

	s.log.DebugContext(ctx, "delivered", slog.String("to", msg.To), slog.Int("attachments", len(msg.Attachments)))
	return true, nil
}

// SendAll sends every message independently and tallies the outcome. One
// failing recipient never stops the others. Cancellation of ctx stops the
// loop; unsent messages are counted as skipped.
func (s *Service) SendAll(ctx context.Context, msgs []domain.Message) domain.Tally {
	var t domain.Tally
	for i, msg := range msgs {
		if ctx.Err() != nil {
			t.Skipped += len(msgs) - i
			break
		}
		t.Add(s.SendOne(ctx, msg))
	}
	return t
}

// SendOne sends one message and reports it as a tally.
func (s *Service) SendOne(ctx context.Context, msg domain.Message) domain.Tally {
	if _, err := s.Send(ctx, msg); err != nil {
		return domain.Tally{Failed: 1, Errors: []string{err.Error()}}
	}
	return domain.Tally{Sent: 1}
}
