package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	"github.com/angelmondragon/coursevault-backend/pkg/mailer"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox/registry"
)

type recordingSender struct {
	sent []mailer.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func outboxRow(t *testing.T, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, data any) models.OutboxEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	payload, err := json.Marshal(outbox.Envelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
}

func newTestDispatcher(t *testing.T, sender mailer.Sender) *Dispatcher {
	t.Helper()
	renderer, err := mailer.NewRenderer()
	require.NoError(t, err)
	d, err := NewDispatcher(DispatcherParams{
		Registry: registry.Mail(),
		Renderer: renderer,
		Sender:   sender,
	})
	require.NoError(t, err)
	return d
}

func TestDeliverPaymentApproved(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(t, sender)

	row := outboxRow(t, enums.EventPaymentApproved, enums.AggregatePayment, payloads.PaymentSettledEvent{
		PaymentID:     uuid.New(),
		Email:         "ana@example.com",
		Name:          "Ana",
		TargetKind:    "course",
		TargetTitle:   "Go from Zero",
		Amount:        decimal.NewFromInt(25000),
		Currency:      "ARS",
		Status:        "approved",
		TransactionID: "mp-1001",
	})

	require.NoError(t, d.Deliver(context.Background(), row))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "ana@example.com", msg.ToEmail)
	assert.Equal(t, "Ana", msg.ToName)
	assert.Contains(t, msg.Subject, "Go from Zero")
	assert.Contains(t, msg.HTML, "25000.00 ARS")
	assert.Contains(t, msg.HTML, "mp-1001")
}

func TestDeliverCertificateIssued(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(t, sender)

	row := outboxRow(t, enums.EventCertificateIssued, enums.AggregateProgress, payloads.CertificateIssuedEvent{
		ProgressID:     uuid.New(),
		Email:          "lu@example.com",
		Name:           "Lucia",
		CourseTitle:    "Concurrency in Go",
		CertificateID:  "abc",
		CertificateURL: "https://coursevault.test/certificates/abc",
		IssuedAt:       time.Now().UTC(),
	})

	require.NoError(t, d.Deliver(context.Background(), row))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].HTML, "https://coursevault.test/certificates/abc")
}

func TestDeliverFailures(t *testing.T) {
	t.Run("missing recipient is terminal", func(t *testing.T) {
		d := newTestDispatcher(t, &recordingSender{})
		row := outboxRow(t, enums.EventUserRegistered, enums.AggregateUser, payloads.UserRegisteredEvent{UserID: uuid.New()})

		err := d.Deliver(context.Background(), row)
		assert.True(t, registry.IsPermanent(err))
	})

	t.Run("unknown event is terminal", func(t *testing.T) {
		d := newTestDispatcher(t, &recordingSender{})
		row := outboxRow(t, enums.OutboxEventType("course_archived"), enums.AggregateUser, map[string]string{"x": "y"})

		err := d.Deliver(context.Background(), row)
		assert.True(t, registry.IsPermanent(err))
	})

	t.Run("provider error surfaces", func(t *testing.T) {
		d := newTestDispatcher(t, &recordingSender{err: errors.New("sendgrid: 502")})
		row := outboxRow(t, enums.EventUserRegistered, enums.AggregateUser, payloads.UserRegisteredEvent{
			UserID: uuid.New(), Email: "new@example.com", Name: "New",
		})

		err := d.Deliver(context.Background(), row)
		require.Error(t, err)
		assert.False(t, registry.IsPermanent(err))
	})
}
