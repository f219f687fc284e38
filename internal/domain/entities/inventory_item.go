package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/nicklaros/stockengine/pkg/errors"
)

// DefaultLocation is used whenever a caller omits location.
const DefaultLocation = "default"

// InventoryItem is the authoritative (sku, location) quantity record.
type InventoryItem struct {
	ID               uuid.UUID              `json:"id"`
	SKU              string                 `json:"sku"`
	Location         string                 `json:"location"`
	QuantityOnHand   int                    `json:"quantity_on_hand"`
	QuantityReserved int                    `json:"quantity_reserved"`
	ReorderPoint     *int                   `json:"reorder_point,omitempty"`
	ReorderQuantity  *int                   `json:"reorder_quantity,omitempty"`
	Backorderable    bool                   `json:"backorderable"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	LockVersion      int64                  `json:"lock_version"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// NewInventoryItem validates and constructs a new item. quantityOnHand must
// be non-negative; reorderPoint/reorderQuantity, when provided, must be
// non-negative per §3.2(7).
func NewInventoryItem(sku, location string, quantityOnHand int, reorderPoint, reorderQuantity *int, backorderable bool, metadata map[string]interface{}) (*InventoryItem, error) {
	if sku == "" {
		return nil, errors.NewValidationError("invalid sku", "sku must not be empty")
	}
	if location == "" {
		location = DefaultLocation
	}
	if quantityOnHand < 0 {
		return nil, errors.NewValidationError("invalid quantity_on_hand", "quantity_on_hand must not be negative")
	}
	if reorderPoint != nil && *reorderPoint < 0 {
		return nil, errors.NewValidationError("invalid reorder_point", "reorder_point must not be negative")
	}
	if reorderQuantity != nil && *reorderQuantity < 0 {
		return nil, errors.NewValidationError("invalid reorder_quantity", "reorder_quantity must not be negative")
	}

	now := time.Now()
	return &InventoryItem{
		ID:               uuid.New(),
		SKU:              sku,
		Location:         location,
		QuantityOnHand:   quantityOnHand,
		QuantityReserved: 0,
		ReorderPoint:     reorderPoint,
		ReorderQuantity:  reorderQuantity,
		Backorderable:    backorderable,
		Metadata:         metadata,
		LockVersion:      1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// QuantityAvailable is on-hand minus reserved.
func (i *InventoryItem) QuantityAvailable() int {
	return i.QuantityOnHand - i.QuantityReserved
}

// AvailableToPromise is +Inf (represented as MaxInt) when backorderable,
// otherwise QuantityAvailable.
func (i *InventoryItem) AvailableToPromise() int {
	if i.Backorderable {
		return int(^uint(0) >> 1)
	}
	return i.QuantityAvailable()
}

// CanReserve reports whether q more units may be reserved.
func (i *InventoryItem) CanReserve(q int) bool {
	return i.Backorderable || i.QuantityAvailable() >= q
}

// CanFulfill reports whether q units are available to ship or transfer out.
func (i *InventoryItem) CanFulfill(q int) bool {
	return i.Backorderable || i.QuantityAvailable() >= q
}

// IsLowStock reports whether available stock is at or below reorder_point.
func (i *InventoryItem) IsLowStock() bool {
	if i.ReorderPoint == nil {
		return false
	}
	return i.QuantityAvailable() <= *i.ReorderPoint
}

// ShouldReorder reports whether a low_stock event should be emitted,
// per §4.2's reorder detection rule.
func (i *InventoryItem) ShouldReorder() bool {
	return i.ReorderPoint != nil && i.QuantityAvailable() <= *i.ReorderPoint &&
		i.ReorderQuantity != nil && *i.ReorderQuantity > 0
}

// Receive increases on-hand by q. Precondition: q > 0.
func (i *InventoryItem) Receive(q int) error {
	if q <= 0 {
		return errors.NewBadInputError("invalid quantity", "quantity must be greater than 0")
	}
	i.QuantityOnHand += q
	i.touch()
	return nil
}

// Adjust applies a signed delta to on-hand. When q is negative and the item
// is not backorderable, the result must still cover quantity_reserved.
func (i *InventoryItem) Adjust(q int) error {
	if q < 0 && !i.Backorderable {
		if i.QuantityOnHand+q < i.QuantityReserved {
			return errors.NewInsufficientStockError(i.QuantityAvailable(), -q)
		}
	}
	i.QuantityOnHand += q
	i.touch()
	return nil
}

// Reserve increases reserved by q. Precondition: q > 0 and CanReserve(q).
func (i *InventoryItem) Reserve(q int) error {
	if q <= 0 {
		return errors.NewBadInputError("invalid quantity", "quantity must be greater than 0")
	}
	if !i.CanReserve(q) {
		return errors.NewInsufficientStockError(i.QuantityAvailable(), q)
	}
	i.QuantityReserved += q
	i.touch()
	return nil
}

// Release decreases reserved by q. Precondition: 0 < q <= reserved.
func (i *InventoryItem) Release(q int) error {
	if q <= 0 {
		return errors.NewBadInputError("invalid quantity", "quantity must be greater than 0")
	}
	if q > i.QuantityReserved {
		return errors.NewInsufficientReservationError(i.QuantityReserved, q)
	}
	i.QuantityReserved -= q
	i.touch()
	return nil
}

// Commit decreases on-hand and reserved by q. Precondition: 0 < q <= reserved.
func (i *InventoryItem) Commit(q int) error {
	if q <= 0 {
		return errors.NewBadInputError("invalid quantity", "quantity must be greater than 0")
	}
	if q > i.QuantityReserved {
		return errors.NewInsufficientReservationError(i.QuantityReserved, q)
	}
	i.QuantityOnHand -= q
	i.QuantityReserved -= q
	i.touch()
	return nil
}

// TransferOut decreases on-hand by q at the source of a transfer.
func (i *InventoryItem) TransferOut(q int) error {
	if q <= 0 {
		return errors.NewBadInputError("invalid quantity", "quantity must be greater than 0")
	}
	if !i.CanFulfill(q) {
		return errors.NewInsufficientStockError(i.QuantityAvailable(), q)
	}
	i.QuantityOnHand -= q
	i.touch()
	return nil
}

// TransferIn increases on-hand by q at the destination of a transfer.
func (i *InventoryItem) TransferIn(q int) error {
	if q <= 0 {
		return errors.NewBadInputError("invalid quantity", "quantity must be greater than 0")
	}
	i.QuantityOnHand += q
	i.touch()
	return nil
}

// CountAdjustment reconciles on-hand to actual. Returns the signed delta
// applied (zero if actual already equals on-hand).
func (i *InventoryItem) CountAdjustment(actual int) (int, error) {
	if actual < 0 {
		return 0, errors.NewBadInputError("invalid quantity", "actual must not be negative")
	}
	if actual < i.QuantityReserved && !i.Backorderable {
		return 0, errors.NewInsufficientStockError(actual, i.QuantityReserved)
	}

	delta := actual - i.QuantityOnHand
	if delta == 0 {
		return 0, nil
	}
	i.QuantityOnHand = actual
	i.touch()
	return delta, nil
}

// ApplyMutableUpdate updates the PATCH-able fields only, per §6.1.
func (i *InventoryItem) ApplyMutableUpdate(reorderPoint, reorderQuantity *int, backorderable *bool, metadata map[string]interface{}) error {
	if reorderPoint != nil && *reorderPoint < 0 {
		return errors.NewValidationError("invalid reorder_point", "reorder_point must not be negative")
	}
	if reorderQuantity != nil && *reorderQuantity < 0 {
		return errors.NewValidationError("invalid reorder_quantity", "reorder_quantity must not be negative")
	}

	if reorderPoint != nil {
		i.ReorderPoint = reorderPoint
	}
	if reorderQuantity != nil {
		i.ReorderQuantity = reorderQuantity
	}
	if backorderable != nil {
		i.Backorderable = *backorderable
	}
	if metadata != nil {
		i.Metadata = metadata
	}
	i.touch()
	return nil
}

func (i *InventoryItem) touch() {
	i.LockVersion++
	i.UpdatedAt = time.Now()
}
