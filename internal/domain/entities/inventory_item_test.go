package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestNewInventoryItem(t *testing.T) {
	t.Run("valid item defaults location", func(t *testing.T) {
		item, err := NewInventoryItem("WIDGET-001", "", 10, intPtr(2), intPtr(20), false, nil)

		require.NoError(t, err)
		assert.Equal(t, DefaultLocation, item.Location)
		assert.Equal(t, 10, item.QuantityOnHand)
		assert.Equal(t, 0, item.QuantityReserved)
		assert.Equal(t, int64(1), item.LockVersion)
	})

	t.Run("rejects empty sku", func(t *testing.T) {
		item, err := NewInventoryItem("", "default", 10, nil, nil, false, nil)
		assert.Error(t, err)
		assert.Nil(t, item)
	})

	t.Run("rejects negative on-hand", func(t *testing.T) {
		item, err := NewInventoryItem("WIDGET-001", "default", -1, nil, nil, false, nil)
		assert.Error(t, err)
		assert.Nil(t, item)
	})

	t.Run("rejects negative reorder_point", func(t *testing.T) {
		item, err := NewInventoryItem("WIDGET-001", "default", 10, intPtr(-1), nil, false, nil)
		assert.Error(t, err)
		assert.Nil(t, item)
	})
}

func TestInventoryItemQuantityAvailable(t *testing.T) {
	item, err := NewInventoryItem("WIDGET-001", "default", 10, nil, nil, false, nil)
	require.NoError(t, err)
	item.QuantityReserved = 3

	assert.Equal(t, 7, item.QuantityAvailable())
	assert.Equal(t, 7, item.AvailableToPromise())
}

func TestInventoryItemAvailableToPromiseBackorderable(t *testing.T) {
	item, err := NewInventoryItem("WIDGET-001", "default", 0, nil, nil, true, nil)
	require.NoError(t, err)
	item.QuantityReserved = 10

	assert.Equal(t, -10, item.QuantityAvailable())
	assert.Greater(t, item.AvailableToPromise(), 0)
}

func TestInventoryItemReceive(t *testing.T) {
	item, _ := NewInventoryItem("WIDGET-001", "default", 10, nil, nil, false, nil)

	require.NoError(t, item.Receive(5))
	assert.Equal(t, 15, item.QuantityOnHand)

	assert.Error(t, item.Receive(0))
	assert.Error(t, item.Receive(-1))
}

func TestInventoryItemAdjust(t *testing.T) {
	t.Run("positive adjustment always allowed", func(t *testing.T) {
		item, _ := NewInventoryItem("WIDGET-001", "default", 10, nil, nil, false, nil)
		require.NoError(t, item.Adjust(5))
		assert.Equal(t, 15, item.QuantityOnHand)
	})

	t.Run("negative adjustment below reserved cover fails", func(t *testing.T) {
		item, _ := NewInventoryItem("WIDGET-001", "default", 10, nil, nil, false, nil)
		item.QuantityReserved = 4
		err := item.Adjust(-7)
		assert.Error(t, err)
		assert.Equal(t, 10, item.QuantityOnHand)
	})

	t.Run("negative adjustment permitted when backorderable", func(t *testing.T) {
		item, _ := NewInventoryItem("WIDGET-001", "default", 10, nil, nil, true, nil)
		item.QuantityReserved = 4
		require.NoError(t, item.Adjust(-7))
		assert.Equal(t, 3, item.QuantityOnHand)
	})

	t.Run("zero adjustment succeeds", func(t *testing.T) {
		item, _ := NewInventoryItem("WIDGET-001", "default", 10, nil, nil, false, nil)
		require.NoError(t, item.Adjust(0))
		assert.Equal(t, 10, item.QuantityOnHand)
	})
}

func TestInventoryItemReserveRelease(t *testing.T) {
	item, _ := NewInventoryItem("WIDGET-001", "default", 10, nil, nil, false, nil)

	require.NoError(t, item.Reserve(3))
	assert.Equal(t, 10, item.QuantityOnHand)
	assert.Equal(t, 3, item.QuantityReserved)
	assert.Equal(t, 7, item.QuantityAvailable())

	err := item.Reserve(100)
	assert.Error(t, err)

	require.NoError(t, item.Release(3))
	assert.Equal(t, 0, item.QuantityReserved)

	assert.Error(t, item.Release(1))
}

func TestInventoryItemCommit(t *testing.T) {
	item, _ := NewInventoryItem("WIDGET-001", "default", 10, nil, nil, false, nil)
	require.NoError(t, item.Reserve(3))

	require.NoError(t, item.Commit(3))
	assert.Equal(t, 7, item.QuantityOnHand)
	assert.Equal(t, 0, item.QuantityReserved)

	assert.Error(t, item.Commit(1))
}

func TestInventoryItemTransfer(t *testing.T) {
	src, _ := NewInventoryItem("X", "east", 100, nil, nil, false, nil)
	dst, _ := NewInventoryItem("X", "west", 0, nil, nil, false, nil)

	require.NoError(t, src.TransferOut(40))
	require.NoError(t, dst.TransferIn(40))

	assert.Equal(t, 60, src.QuantityOnHand)
	assert.Equal(t, 40, dst.QuantityOnHand)
}

func TestInventoryItemCountAdjustment(t *testing.T) {
	t.Run("no-op when actual equals on-hand", func(t *testing.T) {
		item, _ := NewInventoryItem("WIDGET-001", "default", 10, nil, nil, false, nil)
		delta, err := item.CountAdjustment(10)
		require.NoError(t, err)
		assert.Equal(t, 0, delta)
	})

	t.Run("applies signed delta", func(t *testing.T) {
		item, _ := NewInventoryItem("WIDGET-001", "default", 10, nil, nil, false, nil)
		delta, err := item.CountAdjustment(7)
		require.NoError(t, err)
		assert.Equal(t, -3, delta)
		assert.Equal(t, 7, item.QuantityOnHand)
	})

	t.Run("rejects actual below reserved when not backorderable", func(t *testing.T) {
		item, _ := NewInventoryItem("WIDGET-001", "default", 10, nil, nil, false, nil)
		item.QuantityReserved = 5
		_, err := item.CountAdjustment(3)
		assert.Error(t, err)
	})

	t.Run("rejects negative actual", func(t *testing.T) {
		item, _ := NewInventoryItem("WIDGET-001", "default", 10, nil, nil, false, nil)
		_, err := item.CountAdjustment(-1)
		assert.Error(t, err)
	})
}

func TestInventoryItemShouldReorder(t *testing.T) {
	item, _ := NewInventoryItem("WIDGET-001", "default", 5, intPtr(10), intPtr(50), false, nil)
	assert.True(t, item.ShouldReorder())

	item.ReorderQuantity = nil
	assert.False(t, item.ShouldReorder())
}

func TestInventoryItemApplyMutableUpdate(t *testing.T) {
	item, _ := NewInventoryItem("WIDGET-001", "default", 10, nil, nil, false, nil)

	backorderable := true
	err := item.ApplyMutableUpdate(intPtr(5), intPtr(25), &backorderable, map[string]interface{}{"note": "x"})
	require.NoError(t, err)
	assert.Equal(t, 5, *item.ReorderPoint)
	assert.Equal(t, 25, *item.ReorderQuantity)
	assert.True(t, item.Backorderable)
	assert.Equal(t, "x", item.Metadata["note"])

	err = item.ApplyMutableUpdate(intPtr(-1), nil, nil, nil)
	assert.Error(t, err)
}
