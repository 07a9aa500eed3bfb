package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentOutcome(t *testing.T) {
	for _, raw := range []string{"approved", "rejected", "cancelled"} {
		status, err := ParsePaymentOutcome(raw)
		require.NoError(t, err)
		assert.True(t, status.IsTerminal())
	}

	_, err := ParsePaymentOutcome("pending")
	assert.Error(t, err)
	_, err = ParsePaymentOutcome("refunded")
	assert.Error(t, err)
}

func TestPaymentMethodAndCurrency(t *testing.T) {
	method, err := ParsePaymentMethod("mercadopago")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodMercadoPago, method)
	_, err = ParsePaymentMethod("bitcoin")
	assert.Error(t, err)

	assert.True(t, CurrencyARS.IsValid())
	assert.False(t, Currency("EUR").IsValid())
}

func TestParseVideoStatusFallsBackToPreparing(t *testing.T) {
	status, err := ParseVideoStatus("ready")
	require.NoError(t, err)
	assert.Equal(t, VideoStatusReady, status)

	status, err = ParseVideoStatus("waiting")
	assert.Error(t, err)
	assert.Equal(t, VideoStatusPreparing, status)
}

func TestParseTargetKind(t *testing.T) {
	kind, err := ParseTargetKind("pack")
	require.NoError(t, err)
	assert.Equal(t, TargetKindPack, kind)
	_, err = ParseTargetKind("bundle")
	assert.Error(t, err)
}

func TestSetMembership(t *testing.T) {
	assert.True(t, EntitlementSourceFreeClaim.IsValid())
	assert.False(t, EntitlementSource("gift").IsValid())
	assert.True(t, EventCertificateIssued.IsValid())
	assert.False(t, OutboxEventType("course_deleted").IsValid())
	assert.True(t, UserRoleAdmin.IsValid())

	status, err := ParsePaymentStatus("pending")
	require.NoError(t, err)
	assert.False(t, status.IsTerminal())
	_, err = ParsePaymentStatus("PENDING")
	assert.ErrorContains(t, err, `invalid payment status "PENDING"`)
}
