package progress

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
)

// Repository persists course_progress and its per-video rows.
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

// Ensure returns the progress row for the pair, inserting it first when
// missing. A concurrent insert loses to the unique index and re-reads.
func (r *Repository) Ensure(ctx context.Context, userID, courseID uuid.UUID, at time.Time) (*models.Progress, error) {
	row := models.Progress{
		ID:        uuid.New(),
		UserID:    userID,
		CourseID:  courseID,
		CreatedAt: at,
		UpdatedAt: at,
	}
	err := r.db.WithContext(ctx).
		Omit("Videos").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}
	return r.FindByUserCourse(ctx, userID, courseID)
}

func (r *Repository) FindByUserCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Progress, error) {
	var progress models.Progress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// FindWithVideos loads the progress row and its per-video states.
func (r *Repository) FindWithVideos(ctx context.Context, userID, courseID uuid.UUID) (*models.Progress, error) {
	var progress models.Progress
	err := r.db.WithContext(ctx).
		Preload("Videos", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// MergeVideo applies a watch event to the per-video row. Watched seconds never
// decrease; the last position always follows the latest event.
func (r *Repository) MergeVideo(ctx context.Context, progressID, videoID uuid.UUID, watched, lastPosition int, at time.Time) (*models.ProgressVideo, error) {
	seed := models.ProgressVideo{
		ID:         uuid.New(),
		ProgressID: progressID,
		VideoID:    videoID,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "progress_id"}, {Name: "video_id"}},
			DoNothing: true,
		}).
		Create(&seed).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Model(&models.ProgressVideo{}).
		Where("progress_id = ? AND video_id = ?", progressID, videoID).
		Updates(map[string]any{
			"watched_seconds": gorm.Expr("CASE WHEN watched_seconds < ? THEN ? ELSE watched_seconds END", watched, watched),
			"last_position":   lastPosition,
			"updated_at":      at,
		}).Error
	if err != nil {
		return nil, err
	}

	var state models.ProgressVideo
	err = r.db.WithContext(ctx).
		Where("progress_id = ? AND video_id = ?", progressID, videoID).
		First(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *Repository) MarkVideoCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ProgressVideo{}).
		Where("id = ? AND completed = ?", id, false).
		Updates(map[string]any{
			"completed":    true,
			"completed_at": at,
			"updated_at":   at,
		}).Error
}

func (r *Repository) ListVideos(ctx context.Context, progressID uuid.UUID) ([]models.ProgressVideo, error) {
	var rows []models.ProgressVideo
	err := r.db.WithContext(ctx).
		Where("progress_id = ?", progressID).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) UpdateTotal(ctx context.Context, id uuid.UUID, total int, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Progress{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_progress": total,
			"updated_at":     at,
		}).Error
}

// MarkCompleted flips is_completed once. It reports whether this call won.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Progress{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]any{
			"is_completed": true,
			"completed_at": at,
			"updated_at":   at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
