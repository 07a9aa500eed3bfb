package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
)

// SeedUser inserts a student account.
func SeedUser(t *testing.T, conn *gorm.DB, name string) models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString()[:8] + "@example.com",
		Name:         name,
		PasswordHash: "argon2id$test",
		Role:         enums.UserRoleStudent,
	}
	require.NoError(t, conn.Create(&user).Error)
	return user
}

// CourseOption tweaks a seeded course.
type CourseOption func(*models.Course)

func Free() CourseOption {
	return func(c *models.Course) {
		c.IsFree = true
		c.Price = decimal.Zero
	}
}

func Draft() CourseOption {
	return func(c *models.Course) { c.IsPublished = false }
}

func Priced(amount int64, currency enums.Currency) CourseOption {
	return func(c *models.Course) {
		c.Price = decimal.NewFromInt(amount)
		c.Currency = currency
	}
}

// SeedCourse inserts a published paid course with videos of the given durations.
func SeedCourse(t *testing.T, conn *gorm.DB, title string, durations []int, opts ...CourseOption) models.Course {
	t.Helper()
	course := models.Course{
		ID:          uuid.New(),
		Slug:        uuid.NewString(),
		Title:       title,
		Price:       decimal.NewFromInt(25000),
		Currency:    enums.CurrencyARS,
		IsPublished: true,
	}
	for _, opt := range opts {
		opt(&course)
	}
	require.NoError(t, conn.Omit("Videos").Create(&course).Error)

	for i, duration := range durations {
		video := models.Video{
			ID:              uuid.New(),
			CourseID:        course.ID,
			Title:           title + " part",
			Position:        i + 1,
			DurationSeconds: duration,
			PlaybackID:      uuid.NewString(),
			Status:          enums.VideoStatusReady,
		}
		require.NoError(t, conn.Create(&video).Error)
		course.Videos = append(course.Videos, video)
	}
	return course
}

// SeedPack bundles the courses into a pack.
func SeedPack(t *testing.T, conn *gorm.DB, title string, courses ...models.Course) models.Pack {
	t.Helper()
	pack := models.Pack{
		ID:       uuid.New(),
		Slug:     uuid.NewString(),
		Title:    title,
		Price:    decimal.NewFromInt(40000),
		Currency: enums.CurrencyARS,
	}
	require.NoError(t, conn.Omit("Courses").Create(&pack).Error)
	for _, course := range courses {
		require.NoError(t, conn.Create(&models.PackCourse{PackID: pack.ID, CourseID: course.ID}).Error)
	}
	pack.Courses = courses
	return pack
}
