package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/coursevault-backend/pkg/db"
	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	"github.com/angelmondragon/coursevault-backend/pkg/redis"
	"github.com/angelmondragon/coursevault-backend/pkg/video"
)

const courseCacheTTL = 5 * time.Minute

// Service exposes catalog reads and admin writes.
type Service interface {
	CreateCourse(ctx context.Context, input CreateCourseInput) (*CourseDTO, error)
	AddVideo(ctx context.Context, courseID uuid.UUID, input AddVideoInput) (*VideoDTO, error)
	RefreshVideo(ctx context.Context, videoID uuid.UUID) (*VideoDTO, error)
	CreatePack(ctx context.Context, input CreatePackInput) (*PackDTO, error)
	ListCourses(ctx context.Context) ([]CourseSummaryDTO, error)
	GetCourseBySlug(ctx context.Context, slug string) (*CourseDTO, error)
	GetPackBySlug(ctx context.Context, slug string) (*PackDTO, error)
}

// ServiceParams groups catalog dependencies. Platform and Cache are optional.
type ServiceParams struct {
	Repo     *Repository
	DB       *db.Client
	Platform video.Platform
	Cache    redis.Cache
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	platform video.Platform
	cache    redis.Cache
	logg     *logger.Logger
}

// NewService builds the catalog service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{
		repo:     params.Repo,
		dbClient: params.DB,
		platform: params.Platform,
		cache:    params.Cache,
		logg:     params.Logger,
	}, nil
}

func (s *service) CreateCourse(ctx context.Context, input CreateCourseInput) (*CourseDTO, error) {
	normalized, err := NormalizeCourse(input)
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		ID:          uuid.New(),
		Slug:        normalized.Slug,
		Title:       normalized.Title,
		Description: normalized.Description,
		Price:       normalized.Price,
		Currency:    normalized.Currency,
		IsFree:      normalized.IsFree,
		IsPublished: normalized.IsPublished,
	}
	if err := s.repo.CreateCourse(ctx, course); err != nil {
		if db.IsUniqueViolation(err, "slug") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "course slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert course")
	}
	return NewCourseDTO(*course), nil
}

func (s *service) AddVideo(ctx context.Context, courseID uuid.UUID, input AddVideoInput) (*VideoDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.DurationSeconds < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration_seconds cannot be negative")
	}
	sourceURL := strings.TrimSpace(input.SourceURL)
	playbackID := strings.TrimSpace(input.PlaybackID)
	if sourceURL == "" && playbackID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source_url or playback_id is required")
	}

	course, err := s.repo.FindCourseByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOrDependency(err, "course")
	}

	row := &models.Video{
		ID:              uuid.New(),
		CourseID:        course.ID,
		Title:           title,
		DurationSeconds: input.DurationSeconds,
		PlaybackID:      playbackID,
		Status:          enums.VideoStatusReady,
	}
	if sourceURL != "" {
		if s.platform == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "video platform not configured")
		}
		asset, err := s.platform.CreateAssetFromURL(ctx, sourceURL)
		if err != nil {
			if pkgerrors.As(err) != nil {
				return nil, err
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register video asset")
		}
		row.AssetID = asset.ID
		row.PlaybackID = asset.PlaybackID
		row.Status = asset.Status
		if asset.DurationSeconds > 0 {
			row.DurationSeconds = asset.DurationSeconds
		}
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		position, err := txRepo.NextVideoPosition(ctx, course.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: next video position")
		}
		row.Position = position
		if err := txRepo.CreateVideo(ctx, row); err != nil {
			if db.IsUniqueViolation(err, "position") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "video position taken, retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert video")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	s.invalidateCourse(ctx, course.Slug)
	dto := NewVideoDTO(*row)
	return &dto, nil
}

// RefreshVideo pulls status, duration and playback id from the video platform.
func (s *service) RefreshVideo(ctx context.Context, videoID uuid.UUID) (*VideoDTO, error) {
	if s.platform == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "video platform not configured")
	}
	row, err := s.repo.FindVideoByID(ctx, videoID)
	if err != nil {
		return nil, notFoundOrDependency(err, "video")
	}
	if row.AssetID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "video has no platform asset")
	}

	asset, err := s.platform.GetAsset(ctx, row.AssetID)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch video asset")
	}

	updates := map[string]any{"status": asset.Status}
	row.Status = asset.Status
	if asset.PlaybackID != "" {
		updates["playback_id"] = asset.PlaybackID
		row.PlaybackID = asset.PlaybackID
	}
	if asset.DurationSeconds > 0 {
		updates["duration_seconds"] = asset.DurationSeconds
		row.DurationSeconds = asset.DurationSeconds
	}
	if err := s.repo.UpdateVideo(ctx, row.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update video")
	}

	if course, err := s.repo.FindCourseByID(ctx, row.CourseID); err == nil {
		s.invalidateCourse(ctx, course.Slug)
	}
	dto := NewVideoDTO(*row)
	return &dto, nil
}

func (s *service) CreatePack(ctx context.Context, input CreatePackInput) (*PackDTO, error) {
	normalized, err := NormalizePack(input)
	if err != nil {
		return nil, err
	}
	courseIDs := dedupeIDs(normalized.CourseIDs)

	pack := &models.Pack{
		ID:          uuid.New(),
		Slug:        normalized.Slug,
		Title:       normalized.Title,
		Description: normalized.Description,
		Price:       normalized.Price,
		Currency:    normalized.Currency,
	}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		courses, err := txRepo.FindCoursesByIDs(ctx, courseIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load pack courses")
		}
		if len(courses) != len(courseIDs) {
			return pkgerrors.New(pkgerrors.CodeValidation, "pack references unknown courses")
		}
		if err := txRepo.CreatePack(ctx, pack, courseIDs); err != nil {
			if db.IsUniqueViolation(err, "slug") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "pack slug already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert pack")
		}
		pack.Courses = courses
		return nil
	}); err != nil {
		return nil, err
	}
	return NewPackDTO(*pack), nil
}

func (s *service) ListCourses(ctx context.Context) ([]CourseSummaryDTO, error) {
	courses, err := s.repo.ListPublishedCourses(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list courses")
	}
	out := make([]CourseSummaryDTO, 0, len(courses))
	for _, course := range courses {
		out = append(out, NewCourseSummaryDTO(course))
	}
	return out, nil
}

// GetCourseBySlug serves published courses, reading through the cache when configured.
func (s *service) GetCourseBySlug(ctx context.Context, slug string) (*CourseDTO, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	if cached := s.cachedCourse(ctx, slug); cached != nil {
		return cached, nil
	}

	course, err := s.repo.FindCourseBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundOrDependency(err, "course")
	}
	if !course.IsPublished {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
	}

	dto := NewCourseDTO(*course)
	s.storeCourse(ctx, slug, dto)
	return dto, nil
}

func (s *service) GetPackBySlug(ctx context.Context, slug string) (*PackDTO, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	pack, err := s.repo.FindPackBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundOrDependency(err, "pack")
	}
	return NewPackDTO(*pack), nil
}

func (s *service) cachedCourse(ctx context.Context, slug string) *CourseDTO {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.cache.CacheKey("course", slug))
	if err != nil {
		if !redis.IsMiss(err) && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "slug", slug), "course cache read failed")
		}
		return nil
	}
	var dto CourseDTO
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return nil
	}
	return &dto
}

func (s *service) storeCourse(ctx context.Context, slug string, dto *CourseDTO) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(dto)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.CacheKey("course", slug), payload, courseCacheTTL); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "slug", slug), "course cache write failed")
	}
}

func (s *service) invalidateCourse(ctx context.Context, slug string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, s.cache.CacheKey("course", slug))
}

func notFoundOrDependency(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, entity+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
