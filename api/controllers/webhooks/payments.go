package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/coursevault-backend/api/responses"
	"github.com/angelmondragon/coursevault-backend/internal/payments"
	paymentwebhook "github.com/angelmondragon/coursevault-backend/internal/webhooks/payments"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

const maxWebhookBodyBytes = 1 << 20

type PaymentWebhookService interface {
	HandleEvent(ctx context.Context, event *paymentwebhook.Event, outcome enums.PaymentStatus) (*payments.PaymentDTO, error)
}

// PaymentWebhookGuard claims provider event ids; see pkg/idempotency.Guard.
type PaymentWebhookGuard interface {
	Claim(ctx context.Context, consumer, eventID string) (bool, error)
	Release(ctx context.Context, consumer, eventID string) error
}

const webhookConsumer = "payments-webhook"

type paymentWebhookResponse struct {
	Received  bool                `json:"received"`
	Duplicate bool                `json:"duplicate,omitempty"`
	PaymentID string              `json:"payment_id,omitempty"`
	Status    enums.PaymentStatus `json:"status,omitempty"`
}

// PaymentWebhook applies signed settlement notifications from the payment provider.
func PaymentWebhook(svc PaymentWebhookService, secret string, guard PaymentWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret not configured"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if err := paymentwebhook.VerifySignature(secret, payload, r.Header.Get(paymentwebhook.SignatureHeader)); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid webhook signature"))
			return
		}

		event, outcome, err := paymentwebhook.ParseEvent(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		claimed, err := guard.Claim(ctx, webhookConsumer, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if !claimed {
			responses.WriteSuccess(w, paymentWebhookResponse{Received: true, Duplicate: true})
			return
		}

		payment, err := svc.HandleEvent(ctx, event, outcome)
		if err != nil {
			// let the provider's retry try again
			if releaseErr := guard.Release(ctx, webhookConsumer, event.ID); releaseErr != nil && logg != nil {
				logg.Error(logg.WithField(ctx, "event_id", event.ID), "webhook guard release failed", releaseErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentWebhookResponse{
			Received:  true,
			PaymentID: payment.ID.String(),
			Status:    payment.Status,
		})
	}
}
