package inventory

import (
	"errors"
	"testing"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestLevel(t *testing.T) *InventoryLevel {
	t.Helper()
	level, err := NewInventoryLevel(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)
	return level
}

func TestNewInventoryLevel(t *testing.T) {
	t.Run("creates empty level", func(t *testing.T) {
		level := createTestLevel(t)

		assert.True(t, level.Quantity.IsZero())
		assert.True(t, level.ReservedQuantity.IsZero())
		assert.True(t, level.AverageCost.IsZero())
		assert.Equal(t, 1, level.Version)
	})

	t.Run("rejects missing tenant", func(t *testing.T) {
		_, err := NewInventoryLevel(uuid.Nil, uuid.New(), uuid.New())

		assert.ErrorIs(t, err, shared.ErrTenantRequired)
	})
}

func TestInventoryLevel_ApplyMovement(t *testing.T) {
	t.Run("purchase re-averages cost", func(t *testing.T) {
		level := createTestLevel(t)
		require.NoError(t, level.ApplyMovement(d("10"), ReasonInitialStock, d("2.00")))
		require.NoError(t, level.ApplyMovement(d("5"), ReasonPurchase, d("5.00")))

		assert.True(t, d("15").Equal(level.Quantity))
		assert.True(t, d("3").Equal(level.AverageCost))
	})

	t.Run("sale keeps average cost", func(t *testing.T) {
		level := createTestLevel(t)
		require.NoError(t, level.ApplyMovement(d("10"), ReasonPurchase, d("4")))
		require.NoError(t, level.ApplyMovement(d("-10"), ReasonSale, d("99")))

		assert.True(t, level.Quantity.IsZero())
		assert.True(t, d("4").Equal(level.AverageCost))

		require.NoError(t, level.ApplyMovement(d("2"), ReasonPurchase, d("6")))
		assert.True(t, d("6").Equal(level.AverageCost))
	})

	t.Run("rejects negative balance", func(t *testing.T) {
		level := createTestLevel(t)
		require.NoError(t, level.ApplyMovement(d("3"), ReasonPurchase, d("1")))

		err := level.ApplyMovement(d("-4"), ReasonSpoilage, d("0"))

		assert.ErrorIs(t, err, shared.ErrInvariantViolation)
		assert.True(t, d("3").Equal(level.Quantity))
	})

	t.Run("rejects eating reserved units", func(t *testing.T) {
		level := createTestLevel(t)
		require.NoError(t, level.ApplyMovement(d("5"), ReasonPurchase, d("1")))
		require.NoError(t, level.Reserve(d("4")))

		err := level.ApplyMovement(d("-2"), ReasonSale, d("0"))

		assert.ErrorIs(t, err, shared.ErrInsufficientAvailable)
	})

	t.Run("correction may force a negative balance", func(t *testing.T) {
		level := createTestLevel(t)

		err := level.ApplyMovement(d("-2"), ReasonCorrection, d("0"))

		require.NoError(t, err)
		assert.True(t, d("-2").Equal(level.Quantity))
	})

	t.Run("positive correction re-averages", func(t *testing.T) {
		level := createTestLevel(t)
		require.NoError(t, level.ApplyMovement(d("10"), ReasonPurchase, d("2")))
		require.NoError(t, level.ApplyMovement(d("10"), ReasonCorrection, d("4")))

		assert.True(t, d("3").Equal(level.AverageCost))
	})

	t.Run("rejects sign mismatch", func(t *testing.T) {
		level := createTestLevel(t)

		err := level.ApplyMovement(d("5"), ReasonSale, d("0"))

		require.Error(t, err)
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_QUANTITY", de.Code)
	})
}

func TestInventoryLevel_Reservations(t *testing.T) {
	level := createTestLevel(t)
	require.NoError(t, level.ApplyMovement(d("10"), ReasonPurchase, d("1")))

	require.NoError(t, level.Reserve(d("6")))
	assert.True(t, d("4").Equal(level.Available()))

	err := level.Reserve(d("5"))
	assert.ErrorIs(t, err, shared.ErrInsufficientAvailable)

	require.NoError(t, level.ReleaseReserved(d("6")))
	assert.True(t, level.ReservedQuantity.IsZero())

	err = level.ReleaseReserved(d("1"))
	assert.ErrorIs(t, err, shared.ErrInvariantViolation)
}

func TestInventoryLevel_IsBelowThreshold(t *testing.T) {
	level := createTestLevel(t)
	require.NoError(t, level.ApplyMovement(d("5"), ReasonPurchase, d("1")))

	assert.True(t, level.IsBelowThreshold(d("5")))
	assert.False(t, level.IsBelowThreshold(d("4")))
	assert.False(t, level.IsBelowThreshold(d("0")))
}
