// Package logsender is a mail transport that writes messages to the log
// instead of delivering them. It backs local runs and the seeder.
package logsender

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// Sender logs every message and keeps the last ones in memory.
type Sender struct {
	log *slog.Logger

	mu   sync.Mutex
	sent []domain.Message
	keep int
}

// New creates a Sender that remembers up to keep messages.
func New(logger *slog.Logger, keep int) *Sender {
	return &Sender{log: logger.With("adapter", "logsender"), keep: keep}
}

// Send logs msg. It fails only when ctx is already done.
func (s *Sender) Send(ctx context.Context, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	names := make([]string, len(msg.Attachments))
	for i, a := range msg.Attachments {
		names[i] = a.Filename
	}
	s.log.InfoContext(ctx, "mail",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("html_bytes", len(msg.HTML)),
		slog.Any("attachments", names),
	)

	if s.keep > 0 {
		s.mu.Lock()
		s.sent = append(s.sent, msg)
		if len(s.sent) > s.keep {
			s.sent = s.sent[len(s.sent)-s.keep:]
		}
		s.mu.Unlock()
	}
	return nil
}

// Sent returns a copy of the remembered messages, oldest first.
func (s *Sender) Sent() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.sent))
	copy(out, s.sent)
	return out
}
