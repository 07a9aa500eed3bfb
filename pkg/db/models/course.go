package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coursevault-backend/pkg/enums"
)

// Course is a purchasable, ordered collection of videos.
type Course struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug        string          `gorm:"column:slug;not null;uniqueIndex"`
	Title       string          `gorm:"column:title;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Currency    enums.Currency  `gorm:"column:currency;not null"`
	IsFree      bool            `gorm:"column:is_free;not null;default:false"`
	IsPublished bool            `gorm:"column:is_published;not null;default:false"`
	Videos      []Video         `gorm:"foreignKey:CourseID"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Video is one lesson of a course, hosted by the video platform.
type Video struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CourseID        uuid.UUID         `gorm:"column:course_id;type:uuid;not null"`
	Title           string            `gorm:"column:title;not null"`
	Position        int               `gorm:"column:position;not null"`
	DurationSeconds int               `gorm:"column:duration_seconds;not null;default:0"`
	AssetID         string            `gorm:"column:asset_id;not null;default:''"`
	PlaybackID      string            `gorm:"column:playback_id;not null;default:''"`
	Status          enums.VideoStatus `gorm:"column:status;not null;default:'preparing'"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// Pack bundles several courses under one price.
type Pack struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug        string          `gorm:"column:slug;not null;uniqueIndex"`
	Title       string          `gorm:"column:title;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Currency    enums.Currency  `gorm:"column:currency;not null"`
	Courses     []Course        `gorm:"many2many:pack_courses;joinForeignKey:PackID;joinReferences:CourseID"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

type PackCourse struct {
	PackID   uuid.UUID `gorm:"column:pack_id;type:uuid;primaryKey"`
	CourseID uuid.UUID `gorm:"column:course_id;type:uuid;primaryKey"`
}

func (PackCourse) TableName() string {
	return "pack_courses"
}
