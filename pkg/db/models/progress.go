package models

import (
	"time"

	"github.com/google/uuid"
)

// Progress is the single watch-progress document for a (user, course) pair.
type Progress struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	CourseID            uuid.UUID       `gorm:"column:course_id;type:uuid;not null"`
	TotalProgress       int             `gorm:"column:total_progress;not null;default:0"`
	IsCompleted         bool            `gorm:"column:is_completed;not null;default:false"`
	CompletedAt         *time.Time      `gorm:"column:completed_at"`
	CertificateIssued   bool            `gorm:"column:certificate_issued;not null;default:false"`
	CertificateID       *string         `gorm:"column:certificate_id;uniqueIndex"`
	CertificateURL      *string         `gorm:"column:certificate_url"`
	CertificateIssuedAt *time.Time      `gorm:"column:certificate_issued_at"`
	Videos              []ProgressVideo `gorm:"foreignKey:ProgressID"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Progress) TableName() string {
	return "course_progress"
}

// ProgressVideo is the per-video slice of a Progress document.
type ProgressVideo struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProgressID     uuid.UUID  `gorm:"column:progress_id;type:uuid;not null"`
	VideoID        uuid.UUID  `gorm:"column:video_id;type:uuid;not null"`
	Completed      bool       `gorm:"column:completed;not null;default:false"`
	WatchedSeconds int        `gorm:"column:watched_seconds;not null;default:0"`
	LastPosition   int        `gorm:"column:last_position;not null;default:0"`
	CompletedAt    *time.Time `gorm:"column:completed_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProgressVideo) TableName() string {
	return "course_progress_videos"
}
