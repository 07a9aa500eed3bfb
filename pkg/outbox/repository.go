package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
)

const defaultClaimSize = 50

var errNoTx = errors.New("outbox: transaction required")

// Repository owns the outbox_events table. Every write goes through the
// caller's transaction.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Repository) Append(tx *gorm.DB, row models.OutboxEvent) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Create(&row).Error
}

// ClaimBatch returns up to limit undelivered rows, oldest first, locked
// with SKIP LOCKED so parallel publishers split the backlog.
func (r *Repository) ClaimBatch(tx *gorm.DB, limit int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errNoTx
	}
	if limit <= 0 {
		limit = defaultClaimSize
	}
	var rows []models.OutboxEvent
	err := undelivered(tx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "created_at"}},
			{Column: clause.Column{Name: "id"}},
		}}).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkDelivered(tx *gorm.DB, id uuid.UUID) error {
	return r.close(tx, id, nil)
}

// MarkDeadLettered closes the row with cause as last_error. The DLQ entry
// written alongside it carries the full context.
func (r *Repository) MarkDeadLettered(tx *gorm.DB, id uuid.UUID, cause error) error {
	msg := "unknown failure"
	if cause != nil {
		msg = clip(cause.Error(), dlqMessageLimit)
	}
	return r.close(tx, id, &msg)
}

func (r *Repository) close(tx *gorm.DB, id uuid.UUID, lastError *string) error {
	if tx == nil {
		return errNoTx
	}
	updates := map[string]any{
		"published_at":  r.now(),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	}
	if lastError != nil {
		updates["last_error"] = *lastError
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(updates).Error
}

// PurgeDelivered deletes rows closed before cutoff and reports how many.
func (r *Repository) PurgeDelivered(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		return 0, errNoTx
	}
	res := tx.WithContext(ctx).
		Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

// Backlog counts rows still waiting for delivery.
func (r *Repository) Backlog(ctx context.Context) (int64, error) {
	var n int64
	err := undelivered(r.db.WithContext(ctx).Model(&models.OutboxEvent{})).Count(&n).Error
	return n, err
}

func undelivered(q *gorm.DB) *gorm.DB {
	return q.Where("published_at IS NULL")
}
