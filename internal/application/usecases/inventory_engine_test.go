package usecases

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicklaros/stockengine/internal/domain/entities"
	"github.com/nicklaros/stockengine/pkg/errors"
	"github.com/nicklaros/stockengine/pkg/logger"
)

func newTestEngine(t *testing.T) (*InventoryEngine, *fakeDatabase, *fakeEventSink) {
	t.Helper()
	db := newFakeDatabase()
	sink := &fakeEventSink{}
	itemRepo := &fakeItemRepo{store: db.store}
	movementRepo := &fakeMovementRepo{store: db.store}
	log := logger.NewLogger("error", "json")
	engine := NewInventoryEngine(itemRepo, movementRepo, db, sink, log)
	return engine, db, sink
}

func seedItem(t *testing.T, db *fakeDatabase, sku, location string, onHand int, backorderable bool) *entities.InventoryItem {
	t.Helper()
	item, err := entities.NewInventoryItem(sku, location, onHand, nil, nil, backorderable, nil)
	require.NoError(t, err)
	db.store.seed(item)
	return item
}

func TestInventoryEngine_S1_HappyPathOrder(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	seedItem(t, db, "WIDGET-001", "default", 10, false)

	reserveResult, err := engine.Reserve(context.Background(), "WIDGET-001", "default", MutationRequest{Quantity: 3})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reserveResult.ReservationID, "RES-"))
	assert.Equal(t, 10, reserveResult.Item.QuantityOnHand)
	assert.Equal(t, 3, reserveResult.Item.QuantityReserved)
	assert.Equal(t, 7, reserveResult.Item.QuantityAvailable)
	assert.Equal(t, -3, reserveResult.Movement.Quantity)

	commitResult, err := engine.Commit(context.Background(), "WIDGET-001", "default", MutationRequest{Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, commitResult.Item.QuantityOnHand)
	assert.Equal(t, 0, commitResult.Item.QuantityReserved)
	assert.Equal(t, 7, commitResult.Item.QuantityAvailable)
	assert.Equal(t, -3, commitResult.Movement.Quantity)
}

func TestInventoryEngine_S2_CancelledOrder(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	seedItem(t, db, "WIDGET-001", "default", 10, false)

	_, err := engine.Reserve(context.Background(), "WIDGET-001", "default", MutationRequest{Quantity: 5})
	require.NoError(t, err)

	releaseResult, err := engine.Release(context.Background(), "WIDGET-001", "default", MutationRequest{Quantity: 5})
	require.NoError(t, err)

	assert.Equal(t, 10, releaseResult.Item.QuantityOnHand)
	assert.Equal(t, 0, releaseResult.Item.QuantityReserved)
	assert.Equal(t, 5, releaseResult.Movement.Quantity)
}

func TestInventoryEngine_S3_OverReserveRejected(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	seedItem(t, db, "WIDGET-001", "default", 2, false)

	_, err := engine.Reserve(context.Background(), "WIDGET-001", "default", MutationRequest{Quantity: 3})
	require.Error(t, err)
	appErr, ok := errors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeInsufficientStock, appErr.Type)

	item, err := engine.GetItem(context.Background(), "WIDGET-001", "default")
	require.NoError(t, err)
	assert.Equal(t, 2, item.QuantityOnHand)
	assert.Equal(t, 0, item.QuantityReserved)
}

func TestInventoryEngine_S4_BackorderPermits(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	seedItem(t, db, "WIDGET-001", "default", 0, true)

	reserveResult, err := engine.Reserve(context.Background(), "WIDGET-001", "default", MutationRequest{Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, reserveResult.Item.QuantityOnHand)
	assert.Equal(t, 10, reserveResult.Item.QuantityReserved)
	assert.Equal(t, -10, reserveResult.Item.QuantityAvailable)

	commitResult, err := engine.Commit(context.Background(), "WIDGET-001", "default", MutationRequest{Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, -10, commitResult.Item.QuantityOnHand)
	assert.Equal(t, 0, commitResult.Item.QuantityReserved)
}

func TestInventoryEngine_S5_Transfer(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	seedItem(t, db, "X", "east", 100, false)
	seedItem(t, db, "X", "west", 0, false)

	result, err := engine.Transfer(context.Background(), "X", "east", "X", "west", MutationRequest{Quantity: 40})
	require.NoError(t, err)

	assert.Equal(t, 60, result.Source.QuantityOnHand)
	assert.Equal(t, 40, result.Destination.QuantityOnHand)
	assert.Equal(t, -40, result.SourceMovement.Quantity)
	assert.Equal(t, 40, result.DestinationMovement.Quantity)
	assert.Equal(t, entities.MovementTypeTransferOut, result.SourceMovement.MovementType)
	assert.Equal(t, entities.MovementTypeTransferIn, result.DestinationMovement.MovementType)
	assert.Equal(t, result.SourceMovement.Metadata["transfer_id"], result.DestinationMovement.Metadata["transfer_id"])
	assert.Equal(t, "east", result.SourceMovement.Metadata["source_location"])
	assert.Equal(t, "west", result.SourceMovement.Metadata["destination_location"])
	assert.NotEmpty(t, result.TransferID)
}

func TestInventoryEngine_S6_ConcurrentReserveRace(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	seedItem(t, db, "WIDGET-001", "default", 1, false)

	var succeeded int64
	var failed int64
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Reserve(context.Background(), "WIDGET-001", "default", MutationRequest{Quantity: 1})
			if err != nil {
				atomic.AddInt64(&failed, 1)
				return
			}
			atomic.AddInt64(&succeeded, 1)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, succeeded)
	assert.EqualValues(t, 9, failed)

	item, err := engine.GetItem(context.Background(), "WIDGET-001", "default")
	require.NoError(t, err)
	assert.Equal(t, 1, item.QuantityOnHand)
	assert.Equal(t, 1, item.QuantityReserved)
}

func TestInventoryEngine_ReceiveAndAdjust(t *testing.T) {
	engine, db, sink := newTestEngine(t)
	seedItem(t, db, "WIDGET-001", "default", 10, false)

	receiveResult, err := engine.Receive(context.Background(), "WIDGET-001", "default", MutationRequest{Quantity: 5, Reason: "restock"})
	require.NoError(t, err)
	assert.Equal(t, 15, receiveResult.Item.QuantityOnHand)
	assert.Equal(t, entities.MovementTypeReceipt, receiveResult.Movement.MovementType)
	assert.Equal(t, 5, receiveResult.Movement.Quantity)

	adjustResult, err := engine.Adjust(context.Background(), "WIDGET-001", "default", MutationRequest{Quantity: -3})
	require.NoError(t, err)
	assert.Equal(t, 12, adjustResult.Item.QuantityOnHand)
	assert.Equal(t, -3, adjustResult.Movement.Quantity)

	assert.Equal(t, 2, sink.count())
}

func TestInventoryEngine_AdjustZeroSucceeds(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	seedItem(t, db, "WIDGET-001", "default", 10, false)

	result, err := engine.Adjust(context.Background(), "WIDGET-001", "default", MutationRequest{Quantity: 0})
	require.NoError(t, err)
	assert.Equal(t, 10, result.Item.QuantityOnHand)
	assert.Equal(t, 0, result.Movement.Quantity)
	assert.Equal(t, entities.MovementTypeAdjustment, result.Movement.MovementType)
}

func TestInventoryEngine_ReleaseExceedsReservedFails(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	seedItem(t, db, "WIDGET-001", "default", 10, false)

	_, err := engine.Release(context.Background(), "WIDGET-001", "default", MutationRequest{Quantity: 1})
	require.Error(t, err)
	appErr, ok := errors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeInsufficientReservation, appErr.Type)
}

func TestInventoryEngine_CountAdjustment(t *testing.T) {
	t.Run("matches prior emits no movement", func(t *testing.T) {
		engine, db, _ := newTestEngine(t)
		seedItem(t, db, "WIDGET-001", "default", 10, false)

		result, err := engine.CountAdjustment(context.Background(), "WIDGET-001", "default", 10, time.Now())
		require.NoError(t, err)
		assert.Equal(t, 0, result.Delta)
		assert.Nil(t, result.Movement)
	})

	t.Run("applies signed delta and records metadata", func(t *testing.T) {
		engine, db, _ := newTestEngine(t)
		seedItem(t, db, "WIDGET-001", "default", 10, false)

		result, err := engine.CountAdjustment(context.Background(), "WIDGET-001", "default", 7, time.Now())
		require.NoError(t, err)
		assert.Equal(t, -3, result.Delta)
		require.NotNil(t, result.Movement)
		assert.Equal(t, entities.MovementTypeCountAdjustment, result.Movement.MovementType)
		assert.Equal(t, 7, result.Movement.Metadata["actual"])
	})
}

func TestInventoryEngine_NotFound(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Receive(context.Background(), "MISSING", "default", MutationRequest{Quantity: 1})
	require.Error(t, err)
	appErr, ok := errors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeNotFound, appErr.Type)
}

func TestInventoryEngine_CreateGetUpdateDeleteItem(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	created, err := engine.CreateItem(context.Background(), "WIDGET-002", "default", 5, nil, nil, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, created.QuantityOnHand)

	fetched, err := engine.GetItem(context.Background(), "WIDGET-002", "default")
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)

	point := 2
	updated, err := engine.UpdateItem(context.Background(), "WIDGET-002", "default", &point, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, *updated.ReorderPoint)

	require.NoError(t, engine.DeleteItem(context.Background(), "WIDGET-002", "default"))
	_, err = engine.GetItem(context.Background(), "WIDGET-002", "default")
	assert.Error(t, err)
}

type fakeCacheInvalidator struct {
	mu   sync.Mutex
	skus []string
}

func (f *fakeCacheInvalidator) InvalidateCache(ctx context.Context, sku string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skus = append(f.skus, sku)
}

func TestInventoryEngine_AttachCacheInvalidator_FiresOnCommit(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	seedItem(t, db, "WIDGET-001", "default", 10, false)

	invalidator := &fakeCacheInvalidator{}
	engine.AttachCacheInvalidator(invalidator)

	_, err := engine.Adjust(context.Background(), "WIDGET-001", "default", MutationRequest{Quantity: 2, Reason: "test"})
	require.NoError(t, err)

	invalidator.mu.Lock()
	defer invalidator.mu.Unlock()
	require.Len(t, invalidator.skus, 1)
	assert.Equal(t, "WIDGET-001", invalidator.skus[0])
}

func TestInventoryEngine_AttachCacheInvalidator_FiresForBothSidesOfTransfer(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	seedItem(t, db, "WIDGET-001", "warehouse-a", 10, false)
	seedItem(t, db, "WIDGET-001", "warehouse-b", 5, false)

	invalidator := &fakeCacheInvalidator{}
	engine.AttachCacheInvalidator(invalidator)

	_, err := engine.Transfer(context.Background(), "WIDGET-001", "warehouse-a", "WIDGET-001", "warehouse-b", MutationRequest{Quantity: 3})
	require.NoError(t, err)

	invalidator.mu.Lock()
	defer invalidator.mu.Unlock()
	assert.Len(t, invalidator.skus, 2)
}
