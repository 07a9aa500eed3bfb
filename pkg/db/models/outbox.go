package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/coursevault-backend/pkg/enums"
)

// OutboxEvent is written in the transaction that causes it and stays
// unpublished until the publisher delivers it.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EventType     enums.OutboxEventType     `gorm:"not null"`
	AggregateType enums.OutboxAggregateType `gorm:"not null"`
	AggregateID   uuid.UUID                 `gorm:"type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"type:jsonb;not null"`
	AttemptCount  int                       `gorm:"not null;default:0"`
	LastError     *string
	PublishedAt   *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// OutboxDLQ is an event parked after a permanent failure or too many
// attempts. The original row is marked published when it lands here.
type OutboxDLQ struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EventID       uuid.UUID `gorm:"type:uuid;not null"`
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID                  `gorm:"type:uuid"`
	Payload       json.RawMessage            `gorm:"column:payload_json;type:jsonb"`
	ErrorReason   enums.OutboxDLQErrorReason `gorm:"not null"`
	ErrorMessage  *string
	AttemptCount  int
	FailedAt      time.Time `gorm:"autoCreateTime"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (OutboxDLQ) TableName() string { return "outbox_dlq" }
