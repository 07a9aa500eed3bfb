package catalog

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
)

// Repository persists courses, videos and packs.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a repository to the provided connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository scoped to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreateCourse(ctx context.Context, course *models.Course) error {
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Videos").Create(course).Error
}

func (r *Repository) FindCourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// FindCourseBySlug loads the course with its videos in playback order.
func (r *Repository) FindCourseBySlug(ctx context.Context, slug string) (*models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).
		Preload("Videos", orderByPosition).
		Where("slug = ?", slug).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *Repository) ListPublishedCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.WithContext(ctx).
		Where("is_published = ?", true).
		Order("created_at DESC").
		Find(&courses).Error
	return courses, err
}

// FindCoursesByIDs returns the subset of ids that exist, in title order.
func (r *Repository) FindCoursesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var courses []models.Course
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("title ASC").
		Find(&courses).Error
	return courses, err
}

func (r *Repository) CreateVideo(ctx context.Context, video *models.Video) error {
	if video.ID == uuid.Nil {
		video.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(video).Error
}

// NextVideoPosition returns the position a newly appended video should take.
func (r *Repository) NextVideoPosition(ctx context.Context, courseID uuid.UUID) (int, error) {
	var maxPosition sql.NullInt64
	row := r.db.WithContext(ctx).
		Model(&models.Video{}).
		Select("MAX(position)").
		Where("course_id = ?", courseID).
		Row()
	if err := row.Scan(&maxPosition); err != nil {
		return 0, err
	}
	if !maxPosition.Valid {
		return 1, nil
	}
	return int(maxPosition.Int64) + 1, nil
}

func (r *Repository) FindVideoByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	var video models.Video
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&video).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

// FindCourseVideo loads a video only if it belongs to the course.
func (r *Repository) FindCourseVideo(ctx context.Context, courseID, videoID uuid.UUID) (*models.Video, error) {
	var video models.Video
	err := r.db.WithContext(ctx).
		Where("id = ? AND course_id = ?", videoID, courseID).
		First(&video).Error
	if err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *Repository) ListCourseVideos(ctx context.Context, courseID uuid.UUID) ([]models.Video, error) {
	var videos []models.Video
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC").
		Find(&videos).Error
	return videos, err
}

// ListVideosByStatus returns videos with a platform asset in the given status,
// oldest first.
func (r *Repository) ListVideosByStatus(ctx context.Context, status enums.VideoStatus, limit int) ([]models.Video, error) {
	if limit <= 0 {
		limit = 50
	}
	var videos []models.Video
	err := r.db.WithContext(ctx).
		Where("status = ? AND asset_id <> ''", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&videos).Error
	return videos, err
}

func (r *Repository) UpdateVideo(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Video{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// CreatePack inserts the pack row and its course membership.
func (r *Repository) CreatePack(ctx context.Context, pack *models.Pack, courseIDs []uuid.UUID) error {
	if pack.ID == uuid.Nil {
		pack.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Omit("Courses").Create(pack).Error; err != nil {
		return err
	}
	if len(courseIDs) == 0 {
		return nil
	}
	rows := make([]models.PackCourse, 0, len(courseIDs))
	for _, id := range courseIDs {
		rows = append(rows, models.PackCourse{PackID: pack.ID, CourseID: id})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *Repository) FindPackByID(ctx context.Context, id uuid.UUID) (*models.Pack, error) {
	var pack models.Pack
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pack).Error; err != nil {
		return nil, err
	}
	return &pack, nil
}

func (r *Repository) FindPackBySlug(ctx context.Context, slug string) (*models.Pack, error) {
	var pack models.Pack
	err := r.db.WithContext(ctx).
		Preload("Courses").
		Where("slug = ?", slug).
		First(&pack).Error
	if err != nil {
		return nil, err
	}
	return &pack, nil
}

// PackCourseIDs lists the courses bundled in a pack.
func (r *Repository) PackCourseIDs(ctx context.Context, packID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.PackCourse{}).
		Where("pack_id = ?", packID).
		Order("course_id ASC").
		Pluck("course_id", &ids).Error
	return ids, err
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
