package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/coursevault-backend/internal/catalog"
	"github.com/angelmondragon/coursevault-backend/internal/certificates"
	"github.com/angelmondragon/coursevault-backend/internal/entitlements"
	"github.com/angelmondragon/coursevault-backend/pkg/config"
	"github.com/angelmondragon/coursevault-backend/pkg/db"
	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	"github.com/angelmondragon/coursevault-backend/pkg/metrics"
)

// Service records playback and derives course completion.
type Service interface {
	RecordWatch(ctx context.Context, input WatchInput) (*ProgressDTO, error)
	GetProgress(ctx context.Context, userID, courseID uuid.UUID) (*ProgressDTO, error)
}

type ServiceParams struct {
	Repo         *Repository
	CatalogRepo  *catalog.Repository
	Entitlements entitlements.Service
	Certificates certificates.Service
	DB           *db.Client
	Config       config.ProgressConfig
	Metrics      *metrics.Metrics
	Logger       *logger.Logger
}

type service struct {
	repo         *Repository
	catalogRepo  *catalog.Repository
	entitlements entitlements.Service
	certificates certificates.Service
	dbClient     *db.Client
	threshold    float64
	metrics      *metrics.Metrics
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("progress repository required")
	case params.CatalogRepo == nil:
		return nil, fmt.Errorf("catalog repository required")
	case params.Entitlements == nil:
		return nil, fmt.Errorf("entitlements service required")
	case params.Certificates == nil:
		return nil, fmt.Errorf("certificates service required")
	case params.DB == nil:
		return nil, fmt.Errorf("db client required")
	}
	threshold := params.Config.CompletionThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &service{
		repo:         params.Repo,
		catalogRepo:  params.CatalogRepo,
		entitlements: params.Entitlements,
		certificates: params.Certificates,
		dbClient:     params.DB,
		threshold:    threshold,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

type recordOutcome struct {
	progress      *models.Progress
	completed     bool
	certificateID string
}

func (s *service) RecordWatch(ctx context.Context, input WatchInput) (*ProgressDTO, error) {
	if err := validateWatch(input); err != nil {
		return nil, err
	}

	video, err := s.catalogRepo.FindVideoByID(ctx, input.VideoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "video not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load video")
	}
	if video.CourseID != input.CourseID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "video does not belong to course")
	}

	owned, err := s.entitlements.HasCourse(ctx, input.UserID, input.CourseID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "course not owned")
	}

	var outcome recordOutcome
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		outcome, err = s.record(ctx, tx, input, video)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.WatchRecorded()
	if outcome.completed {
		s.metrics.CourseCompleted()
		if outcome.certificateID != "" {
			s.metrics.CertificateIssued()
		}
		if s.logg != nil {
			logCtx := s.logg.WithUserID(ctx, input.UserID.String())
			logCtx = s.logg.WithCourseID(logCtx, input.CourseID.String())
			s.logg.Info(logCtx, "course completed")
		}
	}
	return FromModel(outcome.progress), nil
}

func (s *service) record(ctx context.Context, tx *gorm.DB, input WatchInput, video *models.Video) (recordOutcome, error) {
	repo := s.repo.WithTx(tx)
	now := s.now()

	progress, err := repo.Ensure(ctx, input.UserID, input.CourseID, now)
	if err != nil {
		return recordOutcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: ensure progress")
	}

	state, err := repo.MergeVideo(ctx, progress.ID, video.ID, input.WatchedSeconds, input.LastPosition, now)
	if err != nil {
		return recordOutcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: merge video progress")
	}
	if !state.Completed && VideoComplete(state.WatchedSeconds, video.DurationSeconds, s.threshold) {
		if err := repo.MarkVideoCompleted(ctx, state.ID, now); err != nil {
			return recordOutcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: complete video")
		}
	}

	videos, err := s.catalogRepo.WithTx(tx).ListCourseVideos(ctx, input.CourseID)
	if err != nil {
		return recordOutcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list course videos")
	}
	states, err := repo.ListVideos(ctx, progress.ID)
	if err != nil {
		return recordOutcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list video progress")
	}
	total := aggregate(videos, states)
	if err := repo.UpdateTotal(ctx, progress.ID, total, now); err != nil {
		return recordOutcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update total progress")
	}

	var out recordOutcome
	if total == 100 && !progress.IsCompleted {
		won, err := repo.MarkCompleted(ctx, progress.ID, now)
		if err != nil {
			return recordOutcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark course completed")
		}
		if won {
			progress.TotalProgress = total
			progress.IsCompleted = true
			progress.CompletedAt = &now
			certificateID, err := s.certificates.Issue(ctx, tx, progress)
			if err != nil {
				return recordOutcome{}, err
			}
			out.completed = true
			out.certificateID = certificateID
		}
	}

	out.progress, err = repo.FindWithVideos(ctx, input.UserID, input.CourseID)
	if err != nil {
		return recordOutcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload progress")
	}
	return out, nil
}

func (s *service) GetProgress(ctx context.Context, userID, courseID uuid.UUID) (*ProgressDTO, error) {
	owned, err := s.entitlements.HasCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "course not owned")
	}

	progress, err := s.repo.FindWithVideos(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyProgress(userID, courseID), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load progress")
	}
	return FromModel(progress), nil
}

func validateWatch(input WatchInput) error {
	switch {
	case input.UserID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	case input.CourseID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "course id is required")
	case input.VideoID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "video id is required")
	case input.WatchedSeconds < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "watched seconds must be non-negative")
	case input.LastPosition < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "last position must be non-negative")
	}
	return nil
}
