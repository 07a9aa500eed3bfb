package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coursevault-backend/api/validators"
	"github.com/angelmondragon/coursevault-backend/internal/payments"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	"github.com/angelmondragon/coursevault-backend/pkg/pagination"
)

// checkout carries exactly one of course_id or pack_id.
type checkout struct {
	CourseID         *uuid.UUID      `json:"course_id"`
	PackID           *uuid.UUID      `json:"pack_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency" validate:"omitempty,currency"`
	Method           string          `json:"method" validate:"required,payment_method"`
	TransactionID    string          `json:"transaction_id" validate:"required,max=255"`
	ProviderMetadata json.RawMessage `json:"provider_metadata,omitempty"`
}

type settlement struct {
	Outcome string `json:"outcome" validate:"required,payment_outcome"`
}

// paymentState is the short answer to cancel and settle.
type paymentState struct {
	PaymentID uuid.UUID           `json:"payment_id"`
	Status    enums.PaymentStatus `json:"status"`
}

func stateOf(p *payments.PaymentDTO, err error) (paymentState, error) {
	if err != nil {
		return paymentState{}, err
	}
	return paymentState{PaymentID: p.ID, Status: p.Status}, nil
}

// PaymentCreate opens a pending payment for the caller.
func PaymentCreate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "payment")
	}
	return authed(logg, http.StatusCreated, func(r *http.Request, userID uuid.UUID) (*payments.PaymentDTO, error) {
		var body checkout
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		target, err := payments.TargetFromIDs(body.CourseID, body.PackID)
		if err != nil {
			return nil, err
		}
		return svc.CreatePayment(r.Context(), payments.CreatePaymentInput{
			UserID:           userID,
			Target:           target,
			Amount:           body.Amount,
			Currency:         currencyOrDefault(body.Currency),
			Method:           enums.PaymentMethod(strings.ToLower(strings.TrimSpace(body.Method))),
			TransactionID:    body.TransactionID,
			ProviderMetadata: body.ProviderMetadata,
		})
	})
}

// PaymentList pages through the caller's payments, newest first.
func PaymentList(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "payment")
	}
	return authed(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (pagination.Page[payments.PaymentDTO], error) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return pagination.Page[payments.PaymentDTO]{}, err
		}
		return svc.ListPayments(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
	})
}

func PaymentGet(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "payment")
	}
	return authed(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (*payments.PaymentDTO, error) {
		paymentID, err := validators.ParseUUIDParam(r, "paymentId")
		if err != nil {
			return nil, err
		}
		return svc.GetPayment(r.Context(), userID, paymentID)
	})
}

// PaymentCancel lets a buyer abandon their own pending payment.
func PaymentCancel(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "payment")
	}
	return authed(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (paymentState, error) {
		paymentID, err := validators.ParseUUIDParam(r, "paymentId")
		if err != nil {
			return paymentState{}, err
		}
		return stateOf(svc.CancelPayment(r.Context(), userID, paymentID))
	})
}

// AdminPaymentSettle moves a pending payment to approved or rejected.
func AdminPaymentSettle(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "payment")
	}
	return respond(logg, http.StatusOK, func(r *http.Request) (paymentState, error) {
		paymentID, err := validators.ParseUUIDParam(r, "paymentId")
		if err != nil {
			return paymentState{}, err
		}
		var body settlement
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return paymentState{}, err
		}
		outcome, err := enums.ParsePaymentOutcome(strings.ToLower(strings.TrimSpace(body.Outcome)))
		if err != nil {
			return paymentState{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid outcome")
		}
		return stateOf(svc.SettlePayment(r.Context(), paymentID, outcome))
	})
}
