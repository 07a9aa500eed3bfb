package paymentwebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/coursevault-backend/internal/payments"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

// Event is the settlement notification posted by the payment provider.
type Event struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// ParseEvent decodes and validates a provider payload.
func ParseEvent(payload []byte) (*Event, enums.PaymentStatus, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}
	event.ID = strings.TrimSpace(event.ID)
	event.TransactionID = strings.TrimSpace(event.TransactionID)
	if event.ID == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	if event.TransactionID == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	outcome, err := enums.ParsePaymentOutcome(strings.ToLower(strings.TrimSpace(event.Status)))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status").
			WithDetails(map[string]any{"status": event.Status})
	}
	return &event, outcome, nil
}

type ServiceParams struct {
	Payments payments.Service
	Logger   *logger.Logger
}

// Service applies provider notifications to local payments.
type Service struct {
	payments payments.Service
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	return &Service{payments: params.Payments, logg: params.Logger}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *Event, outcome enums.PaymentStatus) (*payments.PaymentDTO, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}
	metadata := event.Metadata
	if len(metadata) == 0 {
		raw, err := json.Marshal(map[string]string{
			"event_id": event.ID,
			"status":   event.Status,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode provider metadata")
		}
		metadata = raw
	}

	payment, err := s.payments.SettleByTransactionID(ctx, event.TransactionID, outcome, metadata)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id":       event.ID,
			"transaction_id": event.TransactionID,
			"payment_id":     payment.ID.String(),
			"outcome":        string(outcome),
		})
		s.logg.Info(logCtx, "payment webhook applied")
	}
	return payment, nil
}
