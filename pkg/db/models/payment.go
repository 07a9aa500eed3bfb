package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/coursevault-backend/pkg/enums"
)

// Payment ties a user to exactly one course or pack. CourseID and PackID are
// mutually exclusive; a check constraint enforces it in Postgres.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	CourseID         *uuid.UUID          `gorm:"column:course_id;type:uuid"`
	PackID           *uuid.UUID          `gorm:"column:pack_id;type:uuid"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         enums.Currency      `gorm:"column:currency;not null"`
	Method           enums.PaymentMethod `gorm:"column:method;not null"`
	Status           enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	TransactionID    string              `gorm:"column:transaction_id;not null;uniqueIndex"`
	ProviderMetadata datatypes.JSON      `gorm:"column:provider_metadata;type:jsonb"`
	SettledAt        *time.Time          `gorm:"column:settled_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
