package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nicklaros/stockengine/internal/domain/entities"
	"github.com/nicklaros/stockengine/pkg/utils"
)

// InventoryItemRepository is the persistence surface C2 and C3 consult.
// GetForUpdate must only be called within an open transaction obtained from
// ports.TransactionPort; it blocks until the row lock is acquired.
type InventoryItemRepository interface {
	Create(ctx context.Context, item *entities.InventoryItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.InventoryItem, error)
	GetBySKULocation(ctx context.Context, sku, location string) (*entities.InventoryItem, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entities.InventoryItem, error)

	// Update performs the optimistic-version-checked write: it stores
	// item.LockVersion (already incremented by the entity's mutation) and
	// fails with a Conflict error if the stored lock_version no longer
	// equals previousLockVersion, the value read before the mutation.
	Update(ctx context.Context, item *entities.InventoryItem, previousLockVersion int64) error
	Delete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, filter InventoryItemFilter, pagination utils.PaginationInfo) ([]*entities.InventoryItem, utils.PaginationInfo, error)
	ListBySKU(ctx context.Context, sku string) ([]*entities.InventoryItem, error)
	ListLowStock(ctx context.Context, pagination utils.PaginationInfo) ([]*entities.InventoryItem, utils.PaginationInfo, error)
	ListLocations(ctx context.Context) ([]string, error)
	AggregateBySKU(ctx context.Context) ([]SKUAggregate, error)
}

// StockMovementRepository is the append-only ledger surface.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entities.StockMovement) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.StockMovement, error)
	List(ctx context.Context, filter StockMovementFilter, pagination utils.PaginationInfo) ([]*entities.StockMovement, utils.PaginationInfo, error)
	ListByInventoryItemID(ctx context.Context, itemID uuid.UUID, filter StockMovementFilter, pagination utils.PaginationInfo) ([]*entities.StockMovement, utils.PaginationInfo, error)
}

// InventoryItemFilter narrows List queries per the REST surface's
// `sku`, `location`, `in_stock`, `low_stock`, `out_of_stock` filters.
type InventoryItemFilter struct {
	SKU         string
	Location    string
	InStock     *bool
	LowStock    *bool
	OutOfStock  *bool
}

// StockMovementFilter narrows movement history queries.
type StockMovementFilter struct {
	MovementType  *entities.MovementType
	ReferenceType string
	ReferenceID   string
	FromDate      *time.Time
	ToDate        *time.Time
}

// SKUAggregate is one row of the aggregate_by_sku report.
type SKUAggregate struct {
	SKU             string `json:"sku"`
	TotalOnHand     int    `json:"total_on_hand"`
	TotalReserved   int    `json:"total_reserved"`
	TotalAvailable  int    `json:"total_available"`
}
