package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	"github.com/angelmondragon/coursevault-backend/pkg/mailer"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox/registry"
)

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.Decoded, error)
}

type renderer interface {
	Render(name string, data any) (string, string, error)
}

type recipient interface {
	Recipient() (string, string)
}

// Dispatcher turns outbox rows into rendered emails.
type Dispatcher struct {
	registry resolver
	renderer renderer
	sender   mailer.Sender
	logg     *logger.Logger
}

type DispatcherParams struct {
	Registry resolver
	Renderer renderer
	Sender   mailer.Sender
	Logger   *logger.Logger
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Registry == nil {
		return nil, errors.New("event registry required")
	}
	if params.Renderer == nil {
		return nil, errors.New("template renderer required")
	}
	if params.Sender == nil {
		return nil, errors.New("mail sender required")
	}
	return &Dispatcher{
		registry: params.Registry,
		renderer: params.Renderer,
		sender:   params.Sender,
		logg:     params.Logger,
	}, nil
}

// Deliver sends the email for one event. Malformed rows come back as
// registry.PermanentError.
func (d *Dispatcher) Deliver(ctx context.Context, event models.OutboxEvent) error {
	resolved, err := d.registry.Resolve(event)
	if err != nil {
		return err
	}

	to, ok := resolved.Payload.(recipient)
	if !ok {
		return registry.Permanent(fmt.Errorf("payload for %s has no recipient", event.EventType))
	}
	email, name := to.Recipient()
	if strings.TrimSpace(email) == "" {
		return registry.Permanent(fmt.Errorf("recipient missing for %s", event.EventType))
	}

	subject, body, err := d.renderer.Render(resolved.Route.Template, resolved.Payload)
	if err != nil {
		return registry.Permanent(err)
	}

	msg := mailer.Message{
		ToEmail: email,
		ToName:  name,
		Subject: subject,
		HTML:    body,
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s: %w", event.EventType, err)
	}

	if d.logg != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"event_type": string(event.EventType),
			"event_id":   resolved.Envelope.EventID,
			"template":   resolved.Route.Template,
		})
		d.logg.Debug(logCtx, "notification sent")
	}
	return nil
}
