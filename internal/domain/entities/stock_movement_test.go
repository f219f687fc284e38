package entities

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStockMovement(t *testing.T) {
	t.Run("valid movement", func(t *testing.T) {
		itemID := uuid.New()
		mv, err := NewStockMovement(itemID, MovementTypeReceipt, 5, 10, 15, "restock", "", "", nil)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, mv.ID)
		assert.Equal(t, itemID, mv.InventoryItemID)
		assert.Equal(t, MovementTypeReceipt, mv.MovementType)
		assert.Equal(t, 5, mv.Quantity)
		assert.Equal(t, 10, mv.QuantityBefore)
		assert.Equal(t, 15, mv.QuantityAfter)
	})

	t.Run("rejects unknown movement type", func(t *testing.T) {
		mv, err := NewStockMovement(uuid.New(), MovementType("bogus"), 1, 0, 1, "", "", "", nil)
		assert.Error(t, err)
		assert.Nil(t, mv)
	})
}

func TestValidateMovementType(t *testing.T) {
	valid := []MovementType{
		MovementTypeReceipt, MovementTypeSale, MovementTypeAdjustment,
		MovementTypeTransferIn, MovementTypeTransferOut, MovementTypeReservation,
		MovementTypeRelease, MovementTypeCommit, MovementTypeReturn,
		MovementTypeDamage, MovementTypeLoss, MovementTypeFound,
		MovementTypeCountAdjustment,
	}
	for _, mt := range valid {
		assert.NoError(t, ValidateMovementType(mt))
	}
	assert.Error(t, ValidateMovementType(MovementType("unknown")))
}
