package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/coursevault-backend/internal/catalog"
	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

const defaultVideoSyncBatch = 50

type preparingVideoLister interface {
	ListVideosByStatus(ctx context.Context, status enums.VideoStatus, limit int) ([]models.Video, error)
}

type videoRefresher interface {
	RefreshVideo(ctx context.Context, videoID uuid.UUID) (*catalog.VideoDTO, error)
}

type VideoSyncJobParams struct {
	Logger    *logger.Logger
	Videos    preparingVideoLister
	Refresher videoRefresher
	BatchSize int
}

// VideoSyncJob polls the video platform for assets still preparing so
// playback ids and durations land without an admin refresh.
type VideoSyncJob struct {
	logg      *logger.Logger
	videos    preparingVideoLister
	refresher videoRefresher
	batch     int
}

func NewVideoSyncJob(params VideoSyncJobParams) (*VideoSyncJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Videos == nil {
		return nil, fmt.Errorf("video repository required")
	}
	if params.Refresher == nil {
		return nil, fmt.Errorf("video refresher required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultVideoSyncBatch
	}
	return &VideoSyncJob{
		logg:      params.Logger,
		videos:    params.Videos,
		refresher: params.Refresher,
		batch:     batch,
	}, nil
}

func (j *VideoSyncJob) Name() string { return "video-sync" }

// Run refreshes one batch. A failing video does not stop the others; the
// combined error is returned so the run counts as failed.
func (j *VideoSyncJob) Run(ctx context.Context) error {
	pending, err := j.videos.ListVideosByStatus(ctx, enums.VideoStatusPreparing, j.batch)
	if err != nil {
		return fmt.Errorf("list preparing videos: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var (
		errs  error
		ready int
	)
	for _, video := range pending {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		dto, err := j.refresher.RefreshVideo(ctx, video.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("video %s: %w", video.ID, err))
			continue
		}
		if dto != nil && dto.Status != enums.VideoStatusPreparing {
			ready++
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"checked": len(pending),
		"settled": ready,
		"failed":  len(multierr.Errors(errs)),
	}), "video sync finished")
	return errs
}
