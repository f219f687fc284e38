package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nicklaros/stockengine/internal/domain/repositories"
)

// DatabasePort opens transactions and reports connectivity for readiness
// checks.
type DatabasePort interface {
	BeginTransaction(ctx context.Context) (TransactionPort, error)
	Health(ctx context.Context) error
}

// TransactionPort scopes repository access to one open database
// transaction, mirroring the teacher's per-transaction repository
// factory methods.
type TransactionPort interface {
	Commit() error
	Rollback() error
	GetInventoryItemRepository() repositories.InventoryItemRepository
	GetStockMovementRepository() repositories.StockMovementRepository
}

// CachePort is the optional read-through cache C3 consults for
// check_availability and aggregate_by_sku. A disabled or failing cache
// must never change the answer, only its latency.
type CachePort interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// InventoryEvent is the payload C2's post-commit hook publishes.
type InventoryEvent struct {
	EventType    string                 `json:"event_type"`
	SKU          string                 `json:"sku"`
	Location     string                 `json:"location"`
	MovementID   uuid.UUID              `json:"movement_id,omitempty"`
	MovementType string                 `json:"movement_type,omitempty"`
	Quantity     int                    `json:"quantity,omitempty"`
	Detail       map[string]interface{} `json:"detail,omitempty"`
	OccurredAt   time.Time              `json:"occurred_at"`
}

// EventSinkPort is the pluggable post-commit hook. The engine's
// correctness never depends on Publish succeeding; callers must log and
// swallow any error it returns.
type EventSinkPort interface {
	Publish(ctx context.Context, event InventoryEvent) error
}

// CacheInvalidator lets C2 evict C3's read-through cache entries for a sku
// after a committed mutation, without C2 depending on C3's concrete type.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context, sku string)
}
