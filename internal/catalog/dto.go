package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
)

// CreateCourseInput is the admin payload for a new course.
type CreateCourseInput struct {
	Slug        string
	Title       string
	Description string
	Price       decimal.Decimal
	Currency    enums.Currency
	IsFree      bool
	IsPublished bool
}

// AddVideoInput registers a lesson. SourceURL is handed to the video platform;
// PlaybackID may be supplied instead for assets uploaded out of band.
type AddVideoInput struct {
	Title           string
	SourceURL       string
	PlaybackID      string
	DurationSeconds int
}

// CreatePackInput is the admin payload for a new pack.
type CreatePackInput struct {
	Slug        string
	Title       string
	Description string
	Price       decimal.Decimal
	Currency    enums.Currency
	CourseIDs   []uuid.UUID
}

type VideoDTO struct {
	ID              uuid.UUID         `json:"id"`
	Title           string            `json:"title"`
	Position        int               `json:"position"`
	DurationSeconds int               `json:"duration_seconds"`
	PlaybackID      string            `json:"playback_id,omitempty"`
	Status          enums.VideoStatus `json:"status"`
}

type CourseSummaryDTO struct {
	ID          uuid.UUID       `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    enums.Currency  `json:"currency"`
	IsFree      bool            `json:"is_free"`
	IsPublished bool            `json:"is_published"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CourseDTO struct {
	CourseSummaryDTO
	Videos []VideoDTO `json:"videos"`
}

type PackDTO struct {
	ID          uuid.UUID          `json:"id"`
	Slug        string             `json:"slug"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Price       decimal.Decimal    `json:"price"`
	Currency    enums.Currency     `json:"currency"`
	Courses     []CourseSummaryDTO `json:"courses"`
}

func NewCourseSummaryDTO(course models.Course) CourseSummaryDTO {
	return CourseSummaryDTO{
		ID:          course.ID,
		Slug:        course.Slug,
		Title:       course.Title,
		Description: course.Description,
		Price:       course.Price,
		Currency:    course.Currency,
		IsFree:      course.IsFree,
		IsPublished: course.IsPublished,
		CreatedAt:   course.CreatedAt,
	}
}

func NewCourseDTO(course models.Course) *CourseDTO {
	dto := &CourseDTO{
		CourseSummaryDTO: NewCourseSummaryDTO(course),
		Videos:           make([]VideoDTO, 0, len(course.Videos)),
	}
	for _, video := range course.Videos {
		dto.Videos = append(dto.Videos, NewVideoDTO(video))
	}
	return dto
}

func NewVideoDTO(video models.Video) VideoDTO {
	return VideoDTO{
		ID:              video.ID,
		Title:           video.Title,
		Position:        video.Position,
		DurationSeconds: video.DurationSeconds,
		PlaybackID:      video.PlaybackID,
		Status:          video.Status,
	}
}

func NewPackDTO(pack models.Pack) *PackDTO {
	dto := &PackDTO{
		ID:          pack.ID,
		Slug:        pack.Slug,
		Title:       pack.Title,
		Description: pack.Description,
		Price:       pack.Price,
		Currency:    pack.Currency,
		Courses:     make([]CourseSummaryDTO, 0, len(pack.Courses)),
	}
	for _, course := range pack.Courses {
		dto.Courses = append(dto.Courses, NewCourseSummaryDTO(course))
	}
	return dto
}
