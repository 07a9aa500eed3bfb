package progress

import (
	"math"

	"github.com/google/uuid"

	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
)

// DefaultThreshold is the watched fraction at which a video counts as complete.
const DefaultThreshold = 0.9

// RequiredSeconds is the watch time needed to complete a video of the given
// duration. The second result is false while the duration is unknown.
func RequiredSeconds(durationSeconds int, threshold float64) (int, bool) {
	if durationSeconds <= 0 {
		return 0, false
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return int(math.Ceil(float64(durationSeconds)*threshold - 1e-9)), true
}

// VideoComplete never completes a video whose duration the platform has not
// reported yet; the next watch after a sync re-evaluates it.
func VideoComplete(watchedSeconds, durationSeconds int, threshold float64) bool {
	required, known := RequiredSeconds(durationSeconds, threshold)
	if !known || watchedSeconds <= 0 {
		return false
	}
	return watchedSeconds >= required
}

// TotalProgress is floor(100 * completed / total), 0 for an empty course.
func TotalProgress(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return completed * 100 / total
}

// aggregate counts the course's videos marked complete. States for videos no
// longer in the course are ignored.
func aggregate(videos []models.Video, states []models.ProgressVideo) int {
	completed := make(map[uuid.UUID]bool, len(states))
	for _, state := range states {
		if state.Completed {
			completed[state.VideoID] = true
		}
	}
	count := 0
	for _, video := range videos {
		if completed[video.ID] {
			count++
		}
	}
	return TotalProgress(count, len(videos))
}
