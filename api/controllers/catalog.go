package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/coursevault-backend/api/validators"
	"github.com/angelmondragon/coursevault-backend/internal/catalog"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

type newCourse struct {
	Slug        string          `json:"slug" validate:"omitempty,max=200"`
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency" validate:"omitempty,currency"`
	IsFree      bool            `json:"is_free"`
	IsPublished bool            `json:"is_published"`
}

type newVideo struct {
	Title           string `json:"title" validate:"required,max=200"`
	SourceURL       string `json:"source_url" validate:"omitempty,url"`
	PlaybackID      string `json:"playback_id"`
	DurationSeconds int    `json:"duration_seconds" validate:"min=0"`
}

type newPack struct {
	Slug        string          `json:"slug" validate:"omitempty,max=200"`
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency" validate:"omitempty,currency"`
	CourseIDs   []uuid.UUID     `json:"course_ids" validate:"required,min=1"`
}

// CourseList returns the published catalog.
func CourseList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "catalog")
	}
	return respond(logg, http.StatusOK, func(r *http.Request) ([]catalog.CourseSummaryDTO, error) {
		courses, err := svc.ListCourses(r.Context())
		return nonNil(courses), err
	})
}

// CourseBySlug returns a course with its ordered videos.
func CourseBySlug(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "catalog")
	}
	return respond(logg, http.StatusOK, func(r *http.Request) (*catalog.CourseDTO, error) {
		slug, err := validators.ParseSlugParam(r, "slug")
		if err != nil {
			return nil, err
		}
		return svc.GetCourseBySlug(r.Context(), slug)
	})
}

func PackBySlug(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "catalog")
	}
	return respond(logg, http.StatusOK, func(r *http.Request) (*catalog.PackDTO, error) {
		slug, err := validators.ParseSlugParam(r, "slug")
		if err != nil {
			return nil, err
		}
		return svc.GetPackBySlug(r.Context(), slug)
	})
}

func AdminCreateCourse(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "catalog")
	}
	return respond(logg, http.StatusCreated, func(r *http.Request) (*catalog.CourseDTO, error) {
		var body newCourse
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.CreateCourse(r.Context(), catalog.CreateCourseInput{
			Slug:        body.Slug,
			Title:       body.Title,
			Description: body.Description,
			Price:       body.Price,
			Currency:    currencyOrDefault(body.Currency),
			IsFree:      body.IsFree,
			IsPublished: body.IsPublished,
		})
	})
}

// AdminAddVideo appends a lesson to a course.
func AdminAddVideo(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "catalog")
	}
	return respond(logg, http.StatusCreated, func(r *http.Request) (*catalog.VideoDTO, error) {
		courseID, err := validators.ParseUUIDParam(r, "courseId")
		if err != nil {
			return nil, err
		}
		var body newVideo
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.AddVideo(r.Context(), courseID, catalog.AddVideoInput{
			Title:           body.Title,
			SourceURL:       body.SourceURL,
			PlaybackID:      body.PlaybackID,
			DurationSeconds: body.DurationSeconds,
		})
	})
}

// AdminRefreshVideo pulls status and duration from the video platform.
func AdminRefreshVideo(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "catalog")
	}
	return respond(logg, http.StatusOK, func(r *http.Request) (*catalog.VideoDTO, error) {
		videoID, err := validators.ParseUUIDParam(r, "videoId")
		if err != nil {
			return nil, err
		}
		return svc.RefreshVideo(r.Context(), videoID)
	})
}

func AdminCreatePack(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "catalog")
	}
	return respond(logg, http.StatusCreated, func(r *http.Request) (*catalog.PackDTO, error) {
		var body newPack
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.CreatePack(r.Context(), catalog.CreatePackInput{
			Slug:        body.Slug,
			Title:       body.Title,
			Description: body.Description,
			Price:       body.Price,
			Currency:    currencyOrDefault(body.Currency),
			CourseIDs:   body.CourseIDs,
		})
	})
}
