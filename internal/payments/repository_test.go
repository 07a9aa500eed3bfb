package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coursevault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
)

// A settle that loses the compare-and-set must see zero rows affected and
// leave the winner's outcome in place.
func TestTransitionFromPendingLoserSeesNoRow(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	user := dbtest.SeedUser(t, h.client.DB(), "Ana")
	course := dbtest.SeedCourse(t, h.client.DB(), "Go", nil)
	payment := createPayment(t, h, user.ID, CourseTarget(course.ID), "mp-cas")
	repo := NewRepository(h.client.DB())

	won, err := repo.TransitionFromPending(ctx, payment.ID, enums.PaymentStatusApproved, time.Now().UTC(), nil)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.TransitionFromPending(ctx, payment.ID, enums.PaymentStatusRejected, time.Now().UTC(), nil)
	require.NoError(t, err)
	assert.False(t, won)

	stored, err := repo.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusApproved, stored.Status)
}
