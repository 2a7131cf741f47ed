// Package sendgrid delivers messages through the SendGrid v3 mail API.
package sendgrid

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/Chirantan-Dey/quiz-master/internal/config"
	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

const (
	defaultHost = "https://api.sendgrid.com"
	endpoint    = "/v3/mail/send"
)

// Sender posts one message per call to SendGrid. It never retries; the
// job system decides whether a transient failure is worth another attempt.
type Sender struct {
	key  string
	host string
	from *sgmail.Email
	log  *slog.Logger
}

// NewSender creates a Sender from mail settings. An empty base URL falls
// back to the public API host.
func NewSender(cfg config.MailConfig, logger *slog.Logger) *Sender {
	host := cfg.BaseURL
	if host == "" {
		host = defaultHost
	}
	return NewSenderWithURL(host, cfg, logger)
}

// NewSenderWithURL creates a Sender against a custom host (for testing).
func NewSenderWithURL(host string, cfg config.MailConfig, logger *slog.Logger) *Sender {
	return &Sender{
		key:  cfg.APIKey,
		host: host,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		log:  logger.With("adapter", "sendgrid"),
	}
}

// Send posts msg. Network failures, 429 and 5xx responses map to
// domain.ErrUnavailable; other non-2xx responses are permanent.
func (s *Sender) Send(ctx context.Context, msg domain.Message) error {
	req := sendgrid.GetRequest(s.key, endpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.build(msg))

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("sendgrid: %w: %w", domain.ErrUnavailable, ctxErr)
		}
		// The rest client only fails before a response on transport errors.
		s.log.WarnContext(ctx, "sendgrid transport error", slog.String("error", err.Error()))
		return fmt.Errorf("sendgrid: %w: %v", domain.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		s.log.DebugContext(ctx, "sendgrid accepted", slog.String("to", msg.To), slog.Int("status", resp.StatusCode))
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("sendgrid: %w: status %d", domain.ErrUnavailable, resp.StatusCode)
	default:
		return fmt.Errorf("sendgrid: rejected with status %d: %s", resp.StatusCode, truncate(resp.Body, 200))
	}
}

func (s *Sender) build(msg domain.Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail(msg.Name, msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = msg.Subject
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/html", msg.HTML))

	for _, a := range msg.Attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			Type:        a.ContentType,
			Filename:    a.Filename,
			Disposition: "attachment",
		})
	}
	return m
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
