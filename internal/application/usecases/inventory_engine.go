package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nicklaros/stockengine/internal/application/ports"
	"github.com/nicklaros/stockengine/internal/domain/entities"
	"github.com/nicklaros/stockengine/internal/domain/repositories"
	"github.com/nicklaros/stockengine/internal/infrastructure/metrics"
	"github.com/nicklaros/stockengine/pkg/errors"
	"github.com/nicklaros/stockengine/pkg/logger"
	"github.com/nicklaros/stockengine/pkg/utils"
)

// InventoryEngine is the single C2 service type: every stock-transition
// operation collapses here instead of being split across instance methods
// on InventoryItem and class methods on a separate service, per the
// "service object with module-level methods" design note.
type InventoryEngine struct {
	itemRepo         repositories.InventoryItemRepository
	movementRepo     repositories.StockMovementRepository
	database         ports.DatabasePort
	sink             ports.EventSinkPort
	cacheInvalidator ports.CacheInvalidator
	logger           logger.Logger
}

// NewInventoryEngine wires the engine to its persistence and event sink
// dependencies. itemRepo/movementRepo back the non-transactional reads;
// mutating operations obtain fresh, row-locked repositories from database
// for the duration of their transaction.
func NewInventoryEngine(
	itemRepo repositories.InventoryItemRepository,
	movementRepo repositories.StockMovementRepository,
	database ports.DatabasePort,
	sink ports.EventSinkPort,
	logger logger.Logger,
) *InventoryEngine {
	return &InventoryEngine{
		itemRepo:     itemRepo,
		movementRepo: movementRepo,
		database:     database,
		sink:         sink,
		logger:       logger,
	}
}

// AttachCacheInvalidator wires C3's read-through cache into C2's
// post-commit hook. Constructed separately from NewInventoryEngine because
// the query service and engine are siblings, not one a dependency of the
// other's constructor.
func (e *InventoryEngine) AttachCacheInvalidator(invalidator ports.CacheInvalidator) {
	e.cacheInvalidator = invalidator
}

// ItemResponse is the wire-shaped view of an InventoryItem including its
// derived quantities.
type ItemResponse struct {
	ID                  uuid.UUID              `json:"id"`
	SKU                 string                 `json:"sku"`
	Location            string                 `json:"location"`
	QuantityOnHand      int                    `json:"quantity_on_hand"`
	QuantityReserved    int                    `json:"quantity_reserved"`
	QuantityAvailable   int                    `json:"quantity_available"`
	AvailableToPromise  int                    `json:"available_to_promise"`
	ReorderPoint        *int                   `json:"reorder_point,omitempty"`
	ReorderQuantity     *int                   `json:"reorder_quantity,omitempty"`
	Backorderable       bool                   `json:"backorderable"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
	LockVersion         int64                  `json:"lock_version"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// MovementResponse is the wire-shaped view of a StockMovement.
type MovementResponse struct {
	ID              uuid.UUID              `json:"id"`
	InventoryItemID uuid.UUID              `json:"inventory_item_id"`
	MovementType    entities.MovementType  `json:"movement_type"`
	Quantity        int                    `json:"quantity"`
	QuantityBefore  int                    `json:"quantity_before"`
	QuantityAfter   int                    `json:"quantity_after"`
	Reason          string                 `json:"reason,omitempty"`
	ReferenceType   string                 `json:"reference_type,omitempty"`
	ReferenceID     string                 `json:"reference_id,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

func toItemResponse(item *entities.InventoryItem) *ItemResponse {
	return &ItemResponse{
		ID:                 item.ID,
		SKU:                item.SKU,
		Location:           item.Location,
		QuantityOnHand:     item.QuantityOnHand,
		QuantityReserved:   item.QuantityReserved,
		QuantityAvailable:  item.QuantityAvailable(),
		AvailableToPromise: item.AvailableToPromise(),
		ReorderPoint:       item.ReorderPoint,
		ReorderQuantity:    item.ReorderQuantity,
		Backorderable:      item.Backorderable,
		Metadata:           item.Metadata,
		LockVersion:        item.LockVersion,
		CreatedAt:          item.CreatedAt,
		UpdatedAt:          item.UpdatedAt,
	}
}

func toMovementResponse(mv *entities.StockMovement) *MovementResponse {
	return &MovementResponse{
		ID:              mv.ID,
		InventoryItemID: mv.InventoryItemID,
		MovementType:    mv.MovementType,
		Quantity:        mv.Quantity,
		QuantityBefore:  mv.QuantityBefore,
		QuantityAfter:   mv.QuantityAfter,
		Reason:          mv.Reason,
		ReferenceType:   mv.ReferenceType,
		ReferenceID:     mv.ReferenceID,
		Metadata:        mv.Metadata,
		CreatedAt:       mv.CreatedAt,
	}
}

// MutationRequest carries the common optional fields every transition
// accepts (reason, polymorphic reference, free-form metadata).
type MutationRequest struct {
	Quantity      int
	Reason        string
	ReferenceType string
	ReferenceID   string
	Metadata      map[string]interface{}
}

// TransitionResult is returned by every single-item, single-movement
// transition (receive, adjust, release, commit).
type TransitionResult struct {
	Item     *ItemResponse
	Movement *MovementResponse
}

// ReserveResult additionally carries the audit-only reservation handle.
type ReserveResult struct {
	Item          *ItemResponse
	Movement      *MovementResponse
	ReservationID string
}

// TransferResult carries both affected items and their paired movements.
type TransferResult struct {
	Source            *ItemResponse
	Destination       *ItemResponse
	SourceMovement    *MovementResponse
	DestinationMovement *MovementResponse
	TransferID        string
}

// CountAdjustmentResult carries the resulting item and, unless the count
// matched exactly, the reconciliation movement.
type CountAdjustmentResult struct {
	Item     *ItemResponse
	Movement *MovementResponse
	Delta    int
}

// CreateItem inserts a brand-new (sku, location) row.
func (e *InventoryEngine) CreateItem(ctx context.Context, sku, location string, quantityOnHand int, reorderPoint, reorderQuantity *int, backorderable bool, metadata map[string]interface{}) (*ItemResponse, error) {
	item, err := entities.NewInventoryItem(sku, location, quantityOnHand, reorderPoint, reorderQuantity, backorderable, metadata)
	if err != nil {
		return nil, err
	}

	if err := e.itemRepo.Create(ctx, item); err != nil {
		e.logger.WithField("error", err.Error()).Error("failed to create inventory item")
		return nil, errors.NewInternalError("failed to create inventory item", err)
	}

	return toItemResponse(item), nil
}

// GetItem fetches one item by (sku, location) without locking.
func (e *InventoryEngine) GetItem(ctx context.Context, sku, location string) (*ItemResponse, error) {
	if location == "" {
		location = entities.DefaultLocation
	}
	item, err := e.itemRepo.GetBySKULocation(ctx, sku, location)
	if err != nil {
		return nil, errors.NewNotFoundError("inventory item")
	}
	return toItemResponse(item), nil
}

// ListItems is a thin pass-through to the C3 filtered list query.
func (e *InventoryEngine) ListItems(ctx context.Context, filter repositories.InventoryItemFilter, pagination utils.PaginationInfo) ([]*ItemResponse, utils.PaginationInfo, error) {
	items, pageInfo, err := e.itemRepo.List(ctx, filter, pagination)
	if err != nil {
		return nil, pageInfo, errors.NewInternalError("failed to list inventory items", err)
	}
	out := make([]*ItemResponse, len(items))
	for i, item := range items {
		out[i] = toItemResponse(item)
	}
	return out, pageInfo, nil
}

// UpdateItem applies the PATCH-able subset of fields, rejecting the write
// under an optimistic lock_version conflict.
func (e *InventoryEngine) UpdateItem(ctx context.Context, sku, location string, reorderPoint, reorderQuantity *int, backorderable *bool, metadata map[string]interface{}) (*ItemResponse, error) {
	if location == "" {
		location = entities.DefaultLocation
	}
	item, err := e.itemRepo.GetBySKULocation(ctx, sku, location)
	if err != nil {
		return nil, errors.NewNotFoundError("inventory item")
	}

	previousLockVersion := item.LockVersion
	if err := item.ApplyMutableUpdate(reorderPoint, reorderQuantity, backorderable, metadata); err != nil {
		return nil, err
	}

	if err := e.itemRepo.Update(ctx, item, previousLockVersion); err != nil {
		return nil, err
	}
	return toItemResponse(item), nil
}

// DeleteItem removes an item; its movements cascade per §3.2(6).
func (e *InventoryEngine) DeleteItem(ctx context.Context, sku, location string) error {
	if location == "" {
		location = entities.DefaultLocation
	}
	item, err := e.itemRepo.GetBySKULocation(ctx, sku, location)
	if err != nil {
		return errors.NewNotFoundError("inventory item")
	}
	if err := e.itemRepo.Delete(ctx, item.ID); err != nil {
		return errors.NewInternalError("failed to delete inventory item", err)
	}
	return nil
}

// Receive increases on-hand. Precondition: req.Quantity > 0.
func (e *InventoryEngine) Receive(ctx context.Context, sku, location string, req MutationRequest) (*TransitionResult, error) {
	return e.singleItemTransition(ctx, sku, location, entities.MovementTypeReceipt, req, func(item *entities.InventoryItem) error {
		return item.Receive(req.Quantity)
	})
}

// Adjust applies a signed on-hand delta.
func (e *InventoryEngine) Adjust(ctx context.Context, sku, location string, req MutationRequest) (*TransitionResult, error) {
	return e.singleItemTransition(ctx, sku, location, entities.MovementTypeAdjustment, req, func(item *entities.InventoryItem) error {
		return item.Adjust(req.Quantity)
	})
}

// Reserve increases reserved and returns an audit-only reservation handle.
func (e *InventoryEngine) Reserve(ctx context.Context, sku, location string, req MutationRequest) (*ReserveResult, error) {
	reservationID := utils.GenerateReservationID()
	meta := mergeMetadata(req.Metadata, map[string]interface{}{"reservation_id": reservationID})

	reserveReq := req
	reserveReq.Metadata = meta

	result, err := e.singleItemTransition(ctx, sku, location, entities.MovementTypeReservation, reserveReq, func(item *entities.InventoryItem) error {
		return item.Reserve(reserveReq.Quantity)
	})
	if err != nil {
		return nil, err
	}

	return &ReserveResult{Item: result.Item, Movement: result.Movement, ReservationID: reservationID}, nil
}

// Release decreases reserved by req.Quantity.
func (e *InventoryEngine) Release(ctx context.Context, sku, location string, req MutationRequest) (*TransitionResult, error) {
	return e.singleItemTransition(ctx, sku, location, entities.MovementTypeRelease, req, func(item *entities.InventoryItem) error {
		return item.Release(req.Quantity)
	})
}

// Commit decreases both on-hand and reserved by req.Quantity.
func (e *InventoryEngine) Commit(ctx context.Context, sku, location string, req MutationRequest) (*TransitionResult, error) {
	return e.singleItemTransition(ctx, sku, location, entities.MovementTypeCommit, req, func(item *entities.InventoryItem) error {
		return item.Commit(req.Quantity)
	})
}

// singleItemTransition is the common shape every one-item transition
// shares: begin tx, lock row, mutate, snapshot, write movement, update,
// commit, then fire the post-commit hook outside the transaction.
func (e *InventoryEngine) singleItemTransition(ctx context.Context, sku, location string, movementType entities.MovementType, req MutationRequest, mutate func(*entities.InventoryItem) error) (*TransitionResult, error) {
	if location == "" {
		location = entities.DefaultLocation
	}

	tx, err := e.database.BeginTransaction(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	item, err := e.lockBySKULocation(ctx, tx, sku, location)
	if err != nil {
		return nil, err
	}

	quantityBefore := item.QuantityOnHand
	previousLockVersion := item.LockVersion

	signedQuantity, err := signedMovementQuantity(movementType, req.Quantity)
	if err != nil {
		return nil, err
	}

	if err := mutate(item); err != nil {
		if movementType == entities.MovementTypeReservation {
			if appErr, ok := errors.IsAppError(err); ok && appErr.Type == errors.ErrorTypeInsufficientStock {
				metrics.RecordReservationRejected(sku, location)
			}
		}
		return nil, err
	}

	movement, err := entities.NewStockMovement(item.ID, movementType, signedQuantity, quantityBefore, item.QuantityOnHand, req.Reason, req.ReferenceType, req.ReferenceID, req.Metadata)
	if err != nil {
		return nil, err
	}

	if err := tx.GetStockMovementRepository().Create(ctx, movement); err != nil {
		return nil, errors.NewInternalError("failed to record stock movement", err)
	}

	if err := tx.GetInventoryItemRepository().Update(ctx, item, previousLockVersion); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternalError("failed to commit transaction", err)
	}

	e.afterCommit(ctx, item, movement)

	return &TransitionResult{Item: toItemResponse(item), Movement: toMovementResponse(movement)}, nil
}

// Transfer moves q units from src to dst, locking both rows in ascending
// id order to preclude deadlock against a concurrent reverse transfer.
func (e *InventoryEngine) Transfer(ctx context.Context, srcSKU, srcLocation, dstSKU, dstLocation string, req MutationRequest) (*TransferResult, error) {
	if srcLocation == "" {
		srcLocation = entities.DefaultLocation
	}
	if dstLocation == "" {
		dstLocation = entities.DefaultLocation
	}
	if srcSKU == dstSKU && srcLocation == dstLocation {
		return nil, errors.NewBadInputError("invalid transfer", "source and destination must differ")
	}
	if req.Quantity <= 0 {
		return nil, errors.NewBadInputError("invalid quantity", "quantity must be greater than 0")
	}

	tx, err := e.database.BeginTransaction(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	itemRepo := tx.GetInventoryItemRepository()

	srcRef, err := itemRepo.GetBySKULocation(ctx, srcSKU, srcLocation)
	if err != nil {
		return nil, errors.NewNotFoundError("inventory item")
	}
	dstRef, err := itemRepo.GetBySKULocation(ctx, dstSKU, dstLocation)
	if err != nil {
		return nil, errors.NewNotFoundError("inventory item")
	}

	firstID, secondID := srcRef.ID, dstRef.ID
	srcIsFirst := true
	if secondID.String() < firstID.String() {
		firstID, secondID = secondID, firstID
		srcIsFirst = false
	}

	first, err := itemRepo.GetForUpdate(ctx, firstID)
	if err != nil {
		return nil, errors.NewInternalError("failed to lock inventory item", err)
	}
	second, err := itemRepo.GetForUpdate(ctx, secondID)
	if err != nil {
		return nil, errors.NewInternalError("failed to lock inventory item", err)
	}

	src, dst := first, second
	if !srcIsFirst {
		src, dst = second, first
	}

	if !src.CanFulfill(req.Quantity) {
		return nil, errors.NewInsufficientStockError(src.QuantityAvailable(), req.Quantity)
	}

	transferID := uuid.New().String()
	baseMeta := mergeMetadata(req.Metadata, map[string]interface{}{
		"transfer_id":         transferID,
		"source_location":     src.Location,
		"destination_location": dst.Location,
	})

	srcQuantityBefore := src.QuantityOnHand
	srcPreviousLockVersion := src.LockVersion
	if err := src.TransferOut(req.Quantity); err != nil {
		return nil, err
	}
	srcMovement, err := entities.NewStockMovement(src.ID, entities.MovementTypeTransferOut, -req.Quantity, srcQuantityBefore, src.QuantityOnHand, req.Reason, req.ReferenceType, req.ReferenceID, baseMeta)
	if err != nil {
		return nil, err
	}
	if err := tx.GetStockMovementRepository().Create(ctx, srcMovement); err != nil {
		return nil, errors.NewInternalError("failed to record stock movement", err)
	}
	if err := itemRepo.Update(ctx, src, srcPreviousLockVersion); err != nil {
		return nil, err
	}

	dstQuantityBefore := dst.QuantityOnHand
	dstPreviousLockVersion := dst.LockVersion
	if err := dst.TransferIn(req.Quantity); err != nil {
		return nil, err
	}
	dstMovement, err := entities.NewStockMovement(dst.ID, entities.MovementTypeTransferIn, req.Quantity, dstQuantityBefore, dst.QuantityOnHand, req.Reason, req.ReferenceType, req.ReferenceID, baseMeta)
	if err != nil {
		return nil, err
	}
	if err := tx.GetStockMovementRepository().Create(ctx, dstMovement); err != nil {
		return nil, errors.NewInternalError("failed to record stock movement", err)
	}
	if err := itemRepo.Update(ctx, dst, dstPreviousLockVersion); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternalError("failed to commit transaction", err)
	}

	e.afterCommit(ctx, src, srcMovement)
	e.afterCommit(ctx, dst, dstMovement)

	return &TransferResult{
		Source:              toItemResponse(src),
		Destination:         toItemResponse(dst),
		SourceMovement:      toMovementResponse(srcMovement),
		DestinationMovement: toMovementResponse(dstMovement),
		TransferID:          transferID,
	}, nil
}

// CountAdjustment reconciles on-hand to a physically counted actual.
func (e *InventoryEngine) CountAdjustment(ctx context.Context, sku, location string, actual int, countedAt time.Time) (*CountAdjustmentResult, error) {
	if location == "" {
		location = entities.DefaultLocation
	}

	tx, err := e.database.BeginTransaction(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	item, err := e.lockBySKULocation(ctx, tx, sku, location)
	if err != nil {
		return nil, err
	}

	quantityBefore := item.QuantityOnHand
	previousLockVersion := item.LockVersion

	delta, err := item.CountAdjustment(actual)
	if err != nil {
		return nil, err
	}

	if delta == 0 {
		if err := tx.Commit(); err != nil {
			return nil, errors.NewInternalError("failed to commit transaction", err)
		}
		return &CountAdjustmentResult{Item: toItemResponse(item), Delta: 0}, nil
	}

	meta := map[string]interface{}{
		"expected":   quantityBefore,
		"actual":     actual,
		"counted_at": countedAt,
	}
	movement, err := entities.NewStockMovement(item.ID, entities.MovementTypeCountAdjustment, delta, quantityBefore, item.QuantityOnHand, "", "", "", meta)
	if err != nil {
		return nil, err
	}
	if err := tx.GetStockMovementRepository().Create(ctx, movement); err != nil {
		return nil, errors.NewInternalError("failed to record stock movement", err)
	}
	if err := tx.GetInventoryItemRepository().Update(ctx, item, previousLockVersion); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternalError("failed to commit transaction", err)
	}

	e.afterCommit(ctx, item, movement)

	return &CountAdjustmentResult{Item: toItemResponse(item), Movement: toMovementResponse(movement), Delta: delta}, nil
}

func (e *InventoryEngine) lockBySKULocation(ctx context.Context, tx ports.TransactionPort, sku, location string) (*entities.InventoryItem, error) {
	itemRepo := tx.GetInventoryItemRepository()
	ref, err := itemRepo.GetBySKULocation(ctx, sku, location)
	if err != nil {
		return nil, errors.NewNotFoundError("inventory item")
	}
	item, err := itemRepo.GetForUpdate(ctx, ref.ID)
	if err != nil {
		return nil, errors.NewInternalError("failed to lock inventory item", err)
	}
	return item, nil
}

// afterCommit fires the post-commit event hook and reorder detection.
// Failures are logged, never propagated, per §4.2.
func (e *InventoryEngine) afterCommit(ctx context.Context, item *entities.InventoryItem, movement *entities.StockMovement) {
	metrics.RecordMovement(string(movement.MovementType), item.SKU, item.Location, item.QuantityAvailable())

	if e.cacheInvalidator != nil {
		e.cacheInvalidator.InvalidateCache(ctx, item.SKU)
	}

	if e.sink == nil {
		return
	}

	event := ports.InventoryEvent{
		EventType:    "stock_movement",
		SKU:          item.SKU,
		Location:     item.Location,
		MovementID:   movement.ID,
		MovementType: string(movement.MovementType),
		Quantity:     movement.Quantity,
		OccurredAt:   movement.CreatedAt,
	}
	if err := e.sink.Publish(ctx, event); err != nil {
		e.logger.WithField("error", err.Error()).Warn("failed to publish stock movement event")
	}

	if item.ShouldReorder() {
		reorderEvent := ports.InventoryEvent{
			EventType:  "low_stock",
			SKU:        item.SKU,
			Location:   item.Location,
			OccurredAt: time.Now(),
			Detail: map[string]interface{}{
				"quantity_available": item.QuantityAvailable(),
				"reorder_point":      *item.ReorderPoint,
			},
		}
		if err := e.sink.Publish(ctx, reorderEvent); err != nil {
			e.logger.WithField("error", err.Error()).Warn("failed to publish low_stock event")
		}
	}
}

// signedMovementQuantity applies §4.2's sign convention table for the
// transitions where the caller supplies an unsigned magnitude.
func signedMovementQuantity(movementType entities.MovementType, q int) (int, error) {
	switch movementType {
	case entities.MovementTypeReceipt:
		return q, nil
	case entities.MovementTypeAdjustment:
		return q, nil
	case entities.MovementTypeReservation:
		return -q, nil
	case entities.MovementTypeRelease:
		return q, nil
	case entities.MovementTypeCommit:
		return -q, nil
	default:
		return 0, errors.NewInternalError("unsupported single-item movement type", nil)
	}
}

func mergeMetadata(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
