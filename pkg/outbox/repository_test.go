package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/coursevault-backend/pkg/db"
	"github.com/angelmondragon/coursevault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
)

func seedEvent(t *testing.T, client *db.Client, createdAt time.Time, publishedAt *time.Time) uuid.UUID {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventPaymentApproved,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"payment_id":"x"}`),
		CreatedAt:     createdAt,
		PublishedAt:   publishedAt,
	}
	require.NoError(t, client.DB().Create(&row).Error)
	return row.ID
}

func loadEvent(t *testing.T, client *db.Client, id uuid.UUID) models.OutboxEvent {
	t.Helper()
	var row models.OutboxEvent
	require.NoError(t, client.DB().Take(&row, "id = ?", id).Error)
	return row
}

func TestClaimBatchReturnsOldestUndelivered(t *testing.T) {
	client := dbtest.Client(t)
	repo := NewRepository(client.DB())
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	delivered := base.Add(time.Minute)

	second := seedEvent(t, client, base.Add(2*time.Second), nil)
	first := seedEvent(t, client, base, nil)
	seedEvent(t, client, base.Add(time.Second), &delivered)
	seedEvent(t, client, base.Add(3*time.Second), nil)

	var got []uuid.UUID
	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		rows, err := repo.ClaimBatch(tx, 2)
		for _, row := range rows {
			got = append(got, row.ID)
		}
		return err
	}))
	assert.Equal(t, []uuid.UUID{first, second}, got)
}

func TestMarkDeliveredAndDeadLettered(t *testing.T) {
	client := dbtest.Client(t)
	repo := NewRepository(client.DB())
	now := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	ok := seedEvent(t, client, now.Add(-time.Hour), nil)
	bad := seedEvent(t, client, now.Add(-time.Hour), nil)
	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := repo.MarkDelivered(tx, ok); err != nil {
			return err
		}
		return repo.MarkDeadLettered(tx, bad, errors.New(strings.Repeat("x", 2*dlqMessageLimit)))
	}))

	delivered := loadEvent(t, client, ok)
	require.NotNil(t, delivered.PublishedAt)
	assert.True(t, delivered.PublishedAt.Equal(now))
	assert.Equal(t, 1, delivered.AttemptCount)
	assert.Nil(t, delivered.LastError)

	failed := loadEvent(t, client, bad)
	require.NotNil(t, failed.PublishedAt)
	require.NotNil(t, failed.LastError)
	assert.Len(t, *failed.LastError, dlqMessageLimit)

	backlog, err := repo.Backlog(context.Background())
	require.NoError(t, err)
	assert.Zero(t, backlog)
}

func TestPurgeDeliveredKeepsPendingAndRecent(t *testing.T) {
	client := dbtest.Client(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	oldID := seedEvent(t, client, old, &old)
	recentID := seedEvent(t, client, recent, &recent)
	pendingID := seedEvent(t, client, old, nil)

	var purged int64
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) (err error) {
		purged, err = repo.PurgeDelivered(ctx, tx, now.Add(-30*24*time.Hour))
		return err
	}))
	assert.Equal(t, int64(1), purged)

	var remaining []models.OutboxEvent
	require.NoError(t, client.DB().Find(&remaining).Error)
	ids := map[uuid.UUID]bool{}
	for _, row := range remaining {
		ids[row.ID] = true
	}
	assert.False(t, ids[oldID])
	assert.True(t, ids[recentID])
	assert.True(t, ids[pendingID])

	backlog, err := repo.Backlog(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), backlog)
}

func TestWritesRequireTx(t *testing.T) {
	repo := NewRepository(nil)
	_, err := repo.PurgeDelivered(context.Background(), nil, time.Now())
	assert.ErrorIs(t, err, errNoTx)
	assert.ErrorIs(t, repo.Append(nil, models.OutboxEvent{}), errNoTx)
	assert.ErrorIs(t, repo.MarkDelivered(nil, uuid.New()), errNoTx)
	_, err = repo.ClaimBatch(nil, 1)
	assert.ErrorIs(t, err, errNoTx)
}
