package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/nicklaros/stockengine/pkg/errors"
)

// MovementType is the closed set of ledger entry kinds per §3.1.
type MovementType string

const (
	MovementTypeReceipt          MovementType = "receipt"
	MovementTypeSale             MovementType = "sale"
	MovementTypeAdjustment       MovementType = "adjustment"
	MovementTypeTransferIn       MovementType = "transfer_in"
	MovementTypeTransferOut      MovementType = "transfer_out"
	MovementTypeReservation      MovementType = "reservation"
	MovementTypeRelease          MovementType = "release"
	MovementTypeCommit           MovementType = "commit"
	MovementTypeReturn           MovementType = "return"
	MovementTypeDamage           MovementType = "damage"
	MovementTypeLoss             MovementType = "loss"
	MovementTypeFound            MovementType = "found"
	MovementTypeCountAdjustment  MovementType = "count_adjustment"
)

// ValidateMovementType rejects anything outside the closed set.
func ValidateMovementType(t MovementType) error {
	switch t {
	case MovementTypeReceipt, MovementTypeSale, MovementTypeAdjustment,
		MovementTypeTransferIn, MovementTypeTransferOut, MovementTypeReservation,
		MovementTypeRelease, MovementTypeCommit, MovementTypeReturn,
		MovementTypeDamage, MovementTypeLoss, MovementTypeFound,
		MovementTypeCountAdjustment:
		return nil
	default:
		return errors.NewBadInputError("invalid movement_type", "unknown movement_type: "+string(t))
	}
}

// StockMovement is an immutable ledger entry describing one change to one
// InventoryItem. Once persisted, InventoryItemID, MovementType, Quantity,
// QuantityBefore and QuantityAfter never change (§3.2-5).
type StockMovement struct {
	ID              uuid.UUID              `json:"id"`
	InventoryItemID uuid.UUID              `json:"inventory_item_id"`
	MovementType    MovementType           `json:"movement_type"`
	Quantity        int                    `json:"quantity"`
	QuantityBefore  int                    `json:"quantity_before"`
	QuantityAfter   int                    `json:"quantity_after"`
	Reason          string                 `json:"reason,omitempty"`
	ReferenceType   string                 `json:"reference_type,omitempty"`
	ReferenceID     string                 `json:"reference_id,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// NewStockMovement builds and validates one ledger entry. quantityBefore
// and quantityAfter must be the on-hand snapshots taken inside the same
// transaction that is about to commit them, so ledger continuity (§3.2-4)
// holds.
func NewStockMovement(itemID uuid.UUID, movementType MovementType, quantity, quantityBefore, quantityAfter int, reason, referenceType, referenceID string, metadata map[string]interface{}) (*StockMovement, error) {
	if err := ValidateMovementType(movementType); err != nil {
		return nil, err
	}

	return &StockMovement{
		ID:              uuid.New(),
		InventoryItemID: itemID,
		MovementType:    movementType,
		Quantity:        quantity,
		QuantityBefore:  quantityBefore,
		QuantityAfter:   quantityAfter,
		Reason:          reason,
		ReferenceType:   referenceType,
		ReferenceID:     referenceID,
		Metadata:        metadata,
		CreatedAt:       time.Now(),
	}, nil
}
