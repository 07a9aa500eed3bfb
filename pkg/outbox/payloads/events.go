package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserRegisteredEvent welcomes a newly registered account.
type UserRegisteredEvent struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
}

// PaymentSettledEvent is emitted when a payment leaves pending. The same
// shape covers approvals and rejections.
type PaymentSettledEvent struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	TargetKind    string          `json:"target_kind"`
	TargetTitle   string          `json:"target_title"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transaction_id"`
	CourseIDs     []uuid.UUID     `json:"course_ids,omitempty"`
}

// CertificateIssuedEvent announces a freshly minted certificate.
type CertificateIssuedEvent struct {
	ProgressID     uuid.UUID `json:"progress_id"`
	UserID         uuid.UUID `json:"user_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	CourseID       uuid.UUID `json:"course_id"`
	CourseTitle    string    `json:"course_title"`
	CertificateID  string    `json:"certificate_id"`
	CertificateURL string    `json:"certificate_url"`
	IssuedAt       time.Time `json:"issued_at"`
}

func (e UserRegisteredEvent) Recipient() (string, string) { return e.Email, e.Name }

func (e PaymentSettledEvent) Recipient() (string, string) { return e.Email, e.Name }

func (e CertificateIssuedEvent) Recipient() (string, string) { return e.Email, e.Name }
