package delivery

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// ---------------------------------------------------------------------------
// Manual mocks (moq-style with func fields)
// ---------------------------------------------------------------------------

type mockSender struct {
	SendFunc func(ctx context.Context, msg domain.Message) error
	calls    []domain.Message
}

func (m *mockSender) Send(ctx context.Context, msg domain.Message) error {
	m.calls = append(m.calls, msg)
	if m.SendFunc == nil {
		return nil
	}
	return m.SendFunc(ctx, msg)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSend_Success(t *testing.T) {
	t.Parallel()
	s := &mockSender{}
	svc := NewService(slog.Default(), s, time.Second)

	ok, err := svc.Send(context.Background(), domain.Message{To: "Asha <asha@example.com>", Subject: "hi"})
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, s.calls, 1)
	assert.Equal(t, "asha@example.com", s.calls[0].To)
	assert.Equal(t, "Asha", s.calls[0].Name)
}

func TestSend_MalformedRecipientIsFatalAndNotSent(t *testing.T) {
	t.Parallel()
	s := &mockSender{}
	svc := NewService(slog.Default(), s, 0)

	for _, to := range []string{"", "not-an-address", "a@", "<@>"} {
		ok, err := svc.Send(context.Background(), domain.Message{To: to})
		assert.False(t, ok)
		assert.ErrorIs(t, err, domain.ErrInvalidRecipient, "to=%q", to)
	}
	assert.Empty(t, s.calls)
}

func TestSend_TransportErrorPropagates(t *testing.T) {
	t.Parallel()
	s := &mockSender{SendFunc: func(context.Context, domain.Message) error {
		return domain.ErrUnavailable
	}}
	svc := NewService(slog.Default(), s, 0)

	ok, err := svc.Send(context.Background(), domain.Message{To: "a@example.com"})
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestSend_StepTimeoutIsTransient(t *testing.T) {
	t.Parallel()
	s := &mockSender{SendFunc: func(ctx context.Context, _ domain.Message) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	svc := NewService(slog.Default(), s, 10*time.Millisecond)

	_, err := svc.Send(context.Background(), domain.Message{To: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestSendAll_IsolatesFailures(t *testing.T) {
	t.Parallel()
	s := &mockSender{SendFunc: func(_ context.Context, msg domain.Message) error {
		if msg.To == "down@example.com" {
			return errors.New("connection refused")
		}
		return nil
	}}
	svc := NewService(slog.Default(), s, 0)

	tally := svc.SendAll(context.Background(), []domain.Message{
		{To: "a@example.com"},
		{To: "down@example.com"},
		{To: "broken"},
		{To: "b@example.com"},
	})

	assert.Equal(t, 2, tally.Sent)
	assert.Equal(t, 2, tally.Failed)
	assert.Len(t, tally.Errors, 2)
	assert.Len(t, s.calls, 3, "the malformed address never reaches the transport")
}

func TestSendAll_CancelledSkipsRemaining(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	s := &mockSender{}
	s.SendFunc = func(context.Context, domain.Message) error {
		cancel()
		return nil
	}
	svc := NewService(slog.Default(), s, 0)

	tally := svc.SendAll(ctx, []domain.Message{{To: "a@example.com"}, {To: "b@example.com"}, {To: "c@example.com"}})

	assert.Equal(t, 1, tally.Sent)
	assert.Equal(t, 2, tally.Skipped)
}
