package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/coursevault-backend/api/validators"
	"github.com/angelmondragon/coursevault-backend/internal/progress"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

type watchEvent struct {
	CourseID       uuid.UUID `json:"course_id" validate:"required"`
	VideoID        uuid.UUID `json:"video_id" validate:"required"`
	WatchedSeconds int       `json:"watched_seconds" validate:"min=0"`
	LastPosition   int       `json:"last_position" validate:"min=0"`
}

// ProgressWatch records a watch event. The user always comes from the
// token, never from the body.
func ProgressWatch(svc progress.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "progress")
	}
	return authed(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (*progress.ProgressDTO, error) {
		var ev watchEvent
		if err := validators.DecodeJSONBody(r, &ev); err != nil {
			return nil, err
		}
		return svc.RecordWatch(r.Context(), progress.WatchInput{
			UserID:         userID,
			CourseID:       ev.CourseID,
			VideoID:        ev.VideoID,
			WatchedSeconds: ev.WatchedSeconds,
			LastPosition:   ev.LastPosition,
		})
	})
}

func ProgressGet(svc progress.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "progress")
	}
	return authed(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (*progress.ProgressDTO, error) {
		courseID, err := validators.ParseUUIDParam(r, "courseId")
		if err != nil {
			return nil, err
		}
		return svc.GetProgress(r.Context(), userID, courseID)
	})
}
