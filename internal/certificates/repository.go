package certificates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
)

// Repository reads and writes the certificate columns of course_progress.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// MarkIssued stamps the certificate on a completed progress row that has none
// yet. It reports false when another caller issued first.
func (r *Repository) MarkIssued(ctx context.Context, progressID uuid.UUID, certificateID, url string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Progress{}).
		Where("id = ? AND is_completed = ? AND certificate_issued = ?", progressID, true, false).
		Updates(map[string]any{
			"certificate_issued":    true,
			"certificate_id":        certificateID,
			"certificate_url":       url,
			"certificate_issued_at": at,
			"updated_at":            at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) FindProgress(ctx context.Context, progressID uuid.UUID) (*models.Progress, error) {
	var progress models.Progress
	if err := r.db.WithContext(ctx).Where("id = ?", progressID).First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

type verificationRow struct {
	CertificateID  string
	CertificateURL *string
	StudentName    string
	CourseID       uuid.UUID
	CourseTitle    string
	CompletedAt    *time.Time
	IssuedAt       *time.Time
}

// FindIssued joins the issued certificate with its student and course. A miss
// returns nil without error.
func (r *Repository) FindIssued(ctx context.Context, certificateID string) (*verificationRow, error) {
	var rows []verificationRow
	err := r.db.WithContext(ctx).
		Table("course_progress AS p").
		Select(`p.certificate_id AS certificate_id,
			p.certificate_url AS certificate_url,
			u.name AS student_name,
			c.id AS course_id,
			c.title AS course_title,
			p.completed_at AS completed_at,
			p.certificate_issued_at AS issued_at`).
		Joins("JOIN users u ON u.id = p.user_id").
		Joins("JOIN courses c ON c.id = p.course_id").
		Where("p.certificate_id = ? AND p.certificate_issued = ?", certificateID, true).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
