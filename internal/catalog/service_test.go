package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coursevault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
	"github.com/angelmondragon/coursevault-backend/pkg/video"
)

type stubPlatform struct {
	created *video.Asset
	fetched *video.Asset
	err     error
	calls   int
}

func (s *stubPlatform) CreateAssetFromURL(context.Context, string) (*video.Asset, error) {
	s.calls++
	return s.created, s.err
}

func (s *stubPlatform) GetAsset(context.Context, string) (*video.Asset, error) {
	s.calls++
	return s.fetched, s.err
}

type memoryCache struct {
	values map[string]string
	gets   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}}
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	m.gets++
	value, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	}
	return nil
}

func (m *memoryCache) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryCache) CacheKey(parts ...string) string {
	key := "test:cache"
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

func newTestService(t *testing.T, platform video.Platform, cache *memoryCache) Service {
	t.Helper()
	client := dbtest.Client(t)
	params := ServiceParams{Repo: NewRepository(client.DB()), DB: client, Platform: platform}
	if cache != nil {
		params.Cache = cache
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func TestCreateCourseDerivesSlug(t *testing.T) {
	svc := newTestService(t, nil, nil)

	course, err := svc.CreateCourse(context.Background(), CreateCourseInput{
		Title:       "  Programación Básica en Go ",
		Price:       decimal.NewFromInt(25000),
		Currency:    enums.CurrencyARS,
		IsPublished: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "programacion-basica-en-go", course.Slug)
	assert.Equal(t, "Programación Básica en Go", course.Title)

	_, err = svc.CreateCourse(context.Background(), CreateCourseInput{
		Title:    "Programacion basica en Go",
		Price:    decimal.NewFromInt(100),
		Currency: enums.CurrencyARS,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestNormalizeCoursePricing(t *testing.T) {
	_, err := NormalizeCourse(CreateCourseInput{Title: "Free", IsFree: true, Price: decimal.NewFromInt(10), Currency: enums.CurrencyUSD})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = NormalizeCourse(CreateCourseInput{Title: "Paid", Price: decimal.Zero, Currency: enums.CurrencyUSD})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = NormalizeCourse(CreateCourseInput{Title: "Paid", Price: decimal.NewFromInt(5), Currency: "EUR"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = NormalizeCourse(CreateCourseInput{Title: "!!!", Price: decimal.NewFromInt(5), Currency: enums.CurrencyUSD})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	out, err := NormalizeCourse(CreateCourseInput{Title: "Intro", Slug: "My Custom Slug", IsFree: true, Currency: enums.CurrencyUSD})
	require.NoError(t, err)
	assert.Equal(t, "my-custom-slug", out.Slug)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "go-from-zero", Slugify("Go from Zero!"))
	assert.Equal(t, "cafe-con-leche", Slugify("Café  con   leche"))
	assert.Equal(t, "", Slugify("¡¿?!"))
}

func TestAddVideoRegistersAssetAndAppends(t *testing.T) {
	platform := &stubPlatform{created: &video.Asset{ID: "asset-1", PlaybackID: "play-1", Status: enums.VideoStatusPreparing}}
	svc := newTestService(t, platform, nil)
	ctx := context.Background()

	course, err := svc.CreateCourse(ctx, CreateCourseInput{Title: "Go", Price: decimal.NewFromInt(10), Currency: enums.CurrencyUSD, IsPublished: true})
	require.NoError(t, err)

	first, err := svc.AddVideo(ctx, course.ID, AddVideoInput{Title: "Intro", SourceURL: "https://cdn.example.com/intro.mp4", DurationSeconds: 600})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, "play-1", first.PlaybackID)
	assert.Equal(t, enums.VideoStatusPreparing, first.Status)
	assert.Equal(t, 600, first.DurationSeconds)

	second, err := svc.AddVideo(ctx, course.ID, AddVideoInput{Title: "Setup", PlaybackID: "manual", DurationSeconds: 300})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Position)
	assert.Equal(t, 1, platform.calls)

	loaded, err := svc.GetCourseBySlug(ctx, course.Slug)
	require.NoError(t, err)
	require.Len(t, loaded.Videos, 2)
	assert.Equal(t, "Intro", loaded.Videos[0].Title)
	assert.Equal(t, "Setup", loaded.Videos[1].Title)

	_, err = svc.AddVideo(ctx, uuid.New(), AddVideoInput{Title: "x", PlaybackID: "p"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddVideo(ctx, course.ID, AddVideoInput{Title: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAddVideoSurfacesPlatformFailure(t *testing.T) {
	platform := &stubPlatform{err: errors.New("connection refused")}
	svc := newTestService(t, platform, nil)
	ctx := context.Background()

	course, err := svc.CreateCourse(ctx, CreateCourseInput{Title: "Go", Price: decimal.NewFromInt(10), Currency: enums.CurrencyUSD})
	require.NoError(t, err)

	_, err = svc.AddVideo(ctx, course.ID, AddVideoInput{Title: "Intro", SourceURL: "https://cdn.example.com/intro.mp4"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestRefreshVideoUpdatesDuration(t *testing.T) {
	platform := &stubPlatform{created: &video.Asset{ID: "asset-1", Status: enums.VideoStatusPreparing}}
	svc := newTestService(t, platform, nil)
	ctx := context.Background()

	course, err := svc.CreateCourse(ctx, CreateCourseInput{Title: "Go", Price: decimal.NewFromInt(10), Currency: enums.CurrencyUSD})
	require.NoError(t, err)
	added, err := svc.AddVideo(ctx, course.ID, AddVideoInput{Title: "Intro", SourceURL: "https://cdn.example.com/intro.mp4"})
	require.NoError(t, err)
	assert.Zero(t, added.DurationSeconds)

	platform.fetched = &video.Asset{ID: "asset-1", PlaybackID: "play-9", Status: enums.VideoStatusReady, DurationSeconds: 421}
	refreshed, err := svc.RefreshVideo(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.VideoStatusReady, refreshed.Status)
	assert.Equal(t, 421, refreshed.DurationSeconds)
	assert.Equal(t, "play-9", refreshed.PlaybackID)
}

func TestListVideosByStatusSkipsManualPlayback(t *testing.T) {
	client := dbtest.Client(t)
	repo := NewRepository(client.DB())
	platform := &stubPlatform{created: &video.Asset{ID: "asset-1", Status: enums.VideoStatusPreparing}}
	svc, err := NewService(ServiceParams{Repo: repo, DB: client, Platform: platform})
	require.NoError(t, err)
	ctx := context.Background()

	course, err := svc.CreateCourse(ctx, CreateCourseInput{Title: "Go", Price: decimal.NewFromInt(10), Currency: enums.CurrencyUSD})
	require.NoError(t, err)
	fromAsset, err := svc.AddVideo(ctx, course.ID, AddVideoInput{Title: "Intro", SourceURL: "https://cdn.example.com/intro.mp4"})
	require.NoError(t, err)
	_, err = svc.AddVideo(ctx, course.ID, AddVideoInput{Title: "Manual", PlaybackID: "manual"})
	require.NoError(t, err)

	videos, err := repo.ListVideosByStatus(ctx, enums.VideoStatusPreparing, 0)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, fromAsset.ID, videos[0].ID)

	ready, err := repo.ListVideosByStatus(ctx, enums.VideoStatusReady, 10)
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestGetCourseBySlugUsesCache(t *testing.T) {
	cache := newMemoryCache()
	svc := newTestService(t, nil, cache)
	ctx := context.Background()

	course, err := svc.CreateCourse(ctx, CreateCourseInput{Title: "Cached", Price: decimal.NewFromInt(10), Currency: enums.CurrencyUSD, IsPublished: true})
	require.NoError(t, err)

	_, err = svc.GetCourseBySlug(ctx, course.Slug)
	require.NoError(t, err)
	assert.Contains(t, cache.values, cache.CacheKey("course", course.Slug))

	again, err := svc.GetCourseBySlug(ctx, course.Slug)
	require.NoError(t, err)
	assert.Equal(t, course.ID, again.ID)

	_, err = svc.AddVideo(ctx, course.ID, AddVideoInput{Title: "New", PlaybackID: "p"})
	require.NoError(t, err)
	assert.NotContains(t, cache.values, cache.CacheKey("course", course.Slug))
}

func TestUnpublishedCourseIsHidden(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	course, err := svc.CreateCourse(ctx, CreateCourseInput{Title: "Draft", Price: decimal.NewFromInt(10), Currency: enums.CurrencyUSD})
	require.NoError(t, err)

	_, err = svc.GetCourseBySlug(ctx, course.Slug)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	list, err := svc.ListCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreatePack(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	a, err := svc.CreateCourse(ctx, CreateCourseInput{Title: "A", Price: decimal.NewFromInt(10), Currency: enums.CurrencyUSD})
	require.NoError(t, err)
	b, err := svc.CreateCourse(ctx, CreateCourseInput{Title: "B", Price: decimal.NewFromInt(10), Currency: enums.CurrencyUSD})
	require.NoError(t, err)

	pack, err := svc.CreatePack(ctx, CreatePackInput{
		Title:     "Bundle",
		Price:     decimal.NewFromInt(15),
		Currency:  enums.CurrencyUSD,
		CourseIDs: []uuid.UUID{a.ID, b.ID, a.ID},
	})
	require.NoError(t, err)
	assert.Len(t, pack.Courses, 2)

	loaded, err := svc.GetPackBySlug(ctx, "bundle")
	require.NoError(t, err)
	assert.Len(t, loaded.Courses, 2)

	_, err = svc.CreatePack(ctx, CreatePackInput{Title: "Broken", Price: decimal.NewFromInt(15), Currency: enums.CurrencyUSD, CourseIDs: []uuid.UUID{uuid.New()}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreatePack(ctx, CreatePackInput{Title: "Empty", Price: decimal.NewFromInt(15), Currency: enums.CurrencyUSD})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
