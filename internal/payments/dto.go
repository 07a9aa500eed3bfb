package payments

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coursevault-backend/internal/entitlements"
	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
)

// Target is the tagged union of what a payment buys.
type Target = entitlements.Target

// CourseTarget and PackTarget build the two Target variants.
var (
	CourseTarget  = entitlements.CourseTarget
	PackTarget    = entitlements.PackTarget
	TargetFromIDs = entitlements.TargetFromIDs
)

// CreatePaymentInput is the request to open a pending payment.
type CreatePaymentInput struct {
	UserID           uuid.UUID
	Target           Target
	Amount           decimal.Decimal
	Currency         enums.Currency
	Method           enums.PaymentMethod
	TransactionID    string
	ProviderMetadata json.RawMessage
}

type PaymentDTO struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	TargetKind    enums.TargetKind    `json:"target_kind"`
	CourseID      *uuid.UUID          `json:"course_id,omitempty"`
	PackID        *uuid.UUID          `json:"pack_id,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      enums.Currency      `json:"currency"`
	Method        enums.PaymentMethod `json:"method"`
	Status        enums.PaymentStatus `json:"status"`
	TransactionID string              `json:"transaction_id"`
	SettledAt     *time.Time          `json:"settled_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func NewPaymentDTO(p models.Payment) PaymentDTO {
	kind := enums.TargetKindCourse
	if p.PackID != nil {
		kind = enums.TargetKindPack
	}
	return PaymentDTO{
		ID:            p.ID,
		UserID:        p.UserID,
		TargetKind:    kind,
		CourseID:      p.CourseID,
		PackID:        p.PackID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Method:        p.Method,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		SettledAt:     p.SettledAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
