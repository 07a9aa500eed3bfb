package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/angelmondragon/coursevault-backend/pkg/config"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

// Message is a rendered email ready to hand to a provider.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendgridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendgridSender delivers mail through the SendGrid v3 API.
type SendgridSender struct {
	client sendgridClient
	from   *mail.Email
	logg   *logger.Logger
}

// NewSender returns a SendGrid sender, or a log-only sender when no API key
// is configured so local environments never reach the provider.
func NewSender(cfg config.SendgridConfig, logg *logger.Logger) (Sender, error) {
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, errors.New("sendgrid from address is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return &LogSender{logg: logg}, nil
	}
	return &SendgridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
		logg:   logg,
	}, nil
}

func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return errors.New("recipient email is required")
	}
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	email := mail.NewSingleEmail(s.from, msg.Subject, to, "", msg.HTML)

	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, truncate(resp.Body, 512))
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "subject", msg.Subject), "email sent")
	}
	return nil
}

// LogSender records messages instead of delivering them.
type LogSender struct {
	logg *logger.Logger
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"to":      msg.ToEmail,
			"subject": msg.Subject,
		})
		s.logg.Info(logCtx, "email delivery skipped (no sendgrid api key)")
	}
	return nil
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
