package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox/payloads"
)

func mustEnvelope(t *testing.T, data any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	env, err := json.Marshal(outbox.Envelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return env
}

func TestResolvePaymentApproved(t *testing.T) {
	reg := Mail()
	paymentID := uuid.New()

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventPaymentApproved,
		AggregateType: enums.AggregatePayment,
		AggregateID:   paymentID,
		Payload: mustEnvelope(t, payloads.PaymentSettledEvent{
			PaymentID: paymentID,
			Email:     "ana@example.com",
			Amount:    decimal.NewFromInt(25000),
			Currency:  "ARS",
			Status:    "approved",
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "payment_approved", resolved.Route.Template)
	assert.NotEmpty(t, resolved.Envelope.EventID)

	payload, ok := resolved.Payload.(*payloads.PaymentSettledEvent)
	require.True(t, ok)
	assert.Equal(t, paymentID, payload.PaymentID)
	assert.True(t, payload.Amount.Equal(decimal.NewFromInt(25000)))
}

func TestResolveRejectsBadRowsPermanently(t *testing.T) {
	reg := Mail()

	tests := []struct {
		name  string
		event models.OutboxEvent
	}{
		{
			name:  "unknown event",
			event: models.OutboxEvent{EventType: "course_archived", AggregateType: enums.AggregatePayment},
		},
		{
			name:  "aggregate mismatch",
			event: models.OutboxEvent{EventType: enums.EventCertificateIssued, AggregateType: enums.AggregatePayment, Payload: mustEnvelope(t, map[string]string{})},
		},
		{
			name:  "broken envelope",
			event: models.OutboxEvent{EventType: enums.EventCertificateIssued, AggregateType: enums.AggregateProgress, Payload: json.RawMessage(`{`)},
		},
		{
			name:  "payload of the wrong shape",
			event: models.OutboxEvent{EventType: enums.EventPaymentApproved, AggregateType: enums.AggregatePayment, Payload: mustEnvelope(t, []int{1, 2})},
		},
		{
			name:  "null data",
			event: models.OutboxEvent{EventType: enums.EventCertificateIssued, AggregateType: enums.AggregateProgress, Payload: json.RawMessage(`{"version":1,"data":null}`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Resolve(tt.event)
			require.Error(t, err)
			assert.True(t, IsPermanent(err))
		})
	}
}

func TestPermanentWrapsCause(t *testing.T) {
	cause := errors.New("template missing")
	err := fmt.Errorf("deliver: %w", Permanent(cause))

	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsPermanent(cause))
	assert.True(t, IsPermanent(Permanent(nil)))
}

func TestLookup(t *testing.T) {
	route, ok := Mail().Lookup(enums.EventCertificateIssued)
	require.True(t, ok)
	assert.Equal(t, enums.AggregateProgress, route.Aggregate)

	_, ok = New().Lookup(enums.EventCertificateIssued)
	assert.False(t, ok)
}
