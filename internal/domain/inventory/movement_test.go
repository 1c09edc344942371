package inventory

import (
	"testing"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovementReason(t *testing.T) {
	for _, r := range AllReasons() {
		assert.True(t, r.IsValid(), r)
		assert.False(t, r.IsIncoming() && r.IsOutgoing(), r)
	}
	assert.False(t, MovementReason("THEFT").IsValid())

	assert.True(t, ReasonPurchase.ReAverages(d("1")))
	assert.True(t, ReasonCorrection.ReAverages(d("1")))
	assert.False(t, ReasonCorrection.ReAverages(d("-1")))
	assert.False(t, ReasonSale.ReAverages(d("-1")))
	assert.False(t, ReasonDelivery.ReAverages(d("-1")))
	assert.True(t, ReasonCorrection.AllowsForce())
	assert.False(t, ReasonSpoilage.AllowsForce())
}

func TestNewStockMovement(t *testing.T) {
	tenantID, itemID, locationID := uuid.New(), uuid.New(), uuid.New()

	t.Run("builds movement", func(t *testing.T) {
		m, err := NewStockMovement(tenantID, itemID, locationID, d("-3"), ReasonSale)
		require.NoError(t, err)

		m.WithUnitPrice(d("9.90")).WithPosition("A1").WithNotes("counter sale")

		assert.NotEqual(t, uuid.Nil, m.ID)
		assert.Equal(t, "A1", *m.Position)
		assert.Equal(t, "counter sale", *m.Notes)
		assert.True(t, d("9.90").Equal(*m.UnitPrice))
		assert.False(t, m.IsIncrease())
	})

	t.Run("empty position and notes stay nil", func(t *testing.T) {
		m, err := NewStockMovement(tenantID, itemID, locationID, d("1"), ReasonPurchase)
		require.NoError(t, err)

		m.WithPosition("").WithNotes("")

		assert.Nil(t, m.Position)
		assert.Nil(t, m.Notes)
	})

	tests := []struct {
		name   string
		qty    string
		reason MovementReason
	}{
		{"zero quantity", "0", ReasonPurchase},
		{"positive sale", "1", ReasonSale},
		{"negative purchase", "-1", ReasonPurchase},
		{"unknown reason", "1", MovementReason("GIFT")},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := NewStockMovement(tenantID, itemID, locationID, d(tt.qty), tt.reason)
			assert.Error(t, err)
		})
	}

	t.Run("rejects missing tenant", func(t *testing.T) {
		_, err := NewStockMovement(uuid.Nil, itemID, locationID, d("1"), ReasonPurchase)
		assert.ErrorIs(t, err, shared.ErrTenantRequired)
	})
}
