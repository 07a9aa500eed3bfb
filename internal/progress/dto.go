package progress

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
)

// WatchInput is one playback report from the player.
type WatchInput struct {
	UserID         uuid.UUID
	CourseID       uuid.UUID
	VideoID        uuid.UUID
	WatchedSeconds int
	LastPosition   int
}

type VideoProgressDTO struct {
	VideoID        uuid.UUID  `json:"video_id"`
	Completed      bool       `json:"completed"`
	WatchedSeconds int        `json:"watched_seconds"`
	LastPosition   int        `json:"last_position"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ProgressDTO is the summary returned to the student. ID is nil until the
// first watch event creates the record.
type ProgressDTO struct {
	ID                  *uuid.UUID         `json:"id,omitempty"`
	UserID              uuid.UUID          `json:"user_id"`
	CourseID            uuid.UUID          `json:"course_id"`
	TotalProgress       int                `json:"total_progress"`
	IsCompleted         bool               `json:"is_completed"`
	CompletedAt         *time.Time         `json:"completed_at,omitempty"`
	CertificateIssued   bool               `json:"certificate_issued"`
	CertificateID       *string            `json:"certificate_id,omitempty"`
	CertificateURL      *string            `json:"certificate_url,omitempty"`
	CertificateIssuedAt *time.Time         `json:"certificate_issued_at,omitempty"`
	Videos              []VideoProgressDTO `json:"videos"`
}

func FromModel(p *models.Progress) *ProgressDTO {
	id := p.ID
	out := &ProgressDTO{
		ID:                  &id,
		UserID:              p.UserID,
		CourseID:            p.CourseID,
		TotalProgress:       p.TotalProgress,
		IsCompleted:         p.IsCompleted,
		CompletedAt:         p.CompletedAt,
		CertificateIssued:   p.CertificateIssued,
		CertificateID:       p.CertificateID,
		CertificateURL:      p.CertificateURL,
		CertificateIssuedAt: p.CertificateIssuedAt,
		Videos:              make([]VideoProgressDTO, 0, len(p.Videos)),
	}
	for _, v := range p.Videos {
		out.Videos = append(out.Videos, VideoProgressDTO{
			VideoID:        v.VideoID,
			Completed:      v.Completed,
			WatchedSeconds: v.WatchedSeconds,
			LastPosition:   v.LastPosition,
			CompletedAt:    v.CompletedAt,
			UpdatedAt:      v.UpdatedAt,
		})
	}
	return out
}

func emptyProgress(userID, courseID uuid.UUID) *ProgressDTO {
	return &ProgressDTO{
		UserID:   userID,
		CourseID: courseID,
		Videos:   []VideoProgressDTO{},
	}
}
