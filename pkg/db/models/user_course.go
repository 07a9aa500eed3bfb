package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/coursevault-backend/pkg/enums"
)

// UserCourse is one entitlement: the user may watch the course.
type UserCourse struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID               `gorm:"column:user_id;type:uuid;not null"`
	CourseID  uuid.UUID               `gorm:"column:course_id;type:uuid;not null"`
	Source    enums.EntitlementSource `gorm:"column:source;not null"`
	PaymentID *uuid.UUID              `gorm:"column:payment_id;type:uuid"`
	GrantedAt time.Time               `gorm:"column:granted_at;not null"`
}

func (UserCourse) TableName() string {
	return "user_courses"
}
