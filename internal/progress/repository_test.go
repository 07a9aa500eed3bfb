package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coursevault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
)

// The service-level concurrency tests share one sqlite connection, so their
// goroutines commit one after another. These cases drive the paths a losing
// writer takes when the other transaction committed first.

func TestEnsureReusesExistingRow(t *testing.T) {
	client := dbtest.Client(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, client.DB(), "Lucia")
	course := dbtest.SeedCourse(t, client.DB(), "Generics", []int{300})
	now := time.Now().UTC()

	first, err := NewRepository(client.DB()).Ensure(ctx, user.ID, course.ID, now)
	require.NoError(t, err)
	second, err := NewRepository(client.DB()).Ensure(ctx, user.ID, course.ID, now.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	var count int64
	require.NoError(t, client.DB().Model(&models.Progress{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestMarkCompletedWinsOnce(t *testing.T) {
	client := dbtest.Client(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, client.DB(), "Lucia")
	course := dbtest.SeedCourse(t, client.DB(), "Generics", []int{300})
	repo := NewRepository(client.DB())

	row, err := repo.Ensure(ctx, user.ID, course.ID, time.Now().UTC())
	require.NoError(t, err)

	won, err := repo.MarkCompleted(ctx, row.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.MarkCompleted(ctx, row.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, won)
}

func TestMergeVideoKeepsHighestWatchTime(t *testing.T) {
	client := dbtest.Client(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, client.DB(), "Lucia")
	course := dbtest.SeedCourse(t, client.DB(), "Generics", []int{300})
	repo := NewRepository(client.DB())
	row, err := repo.Ensure(ctx, user.ID, course.ID, time.Now().UTC())
	require.NoError(t, err)
	videoID := course.Videos[0].ID

	_, err = repo.MergeVideo(ctx, row.ID, videoID, 200, 200, time.Now().UTC())
	require.NoError(t, err)
	merged, err := repo.MergeVideo(ctx, row.ID, videoID, 120, 40, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, 200, merged.WatchedSeconds)
	assert.Equal(t, 40, merged.LastPosition)
}
