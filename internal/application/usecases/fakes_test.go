package usecases

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/nicklaros/stockengine/internal/application/ports"
	"github.com/nicklaros/stockengine/internal/domain/entities"
	"github.com/nicklaros/stockengine/internal/domain/repositories"
	"github.com/nicklaros/stockengine/pkg/errors"
	"github.com/nicklaros/stockengine/pkg/utils"
)

// fakeStore is an in-memory stand-in for the PostgreSQL persistence layer.
// Row locking is simulated with a real per-item mutex so concurrency tests
// (S6) exercise genuine blocking instead of a sequential fake.
type fakeStore struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*entities.InventoryItem
	index     map[string]uuid.UUID
	movements []*entities.StockMovement
	itemLocks map[uuid.UUID]*sync.Mutex
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:     make(map[uuid.UUID]*entities.InventoryItem),
		index:     make(map[string]uuid.UUID),
		itemLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func key(sku, location string) string { return sku + "|" + location }

func copyItem(item *entities.InventoryItem) *entities.InventoryItem {
	cp := *item
	return &cp
}

func (s *fakeStore) seed(item *entities.InventoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = copyItem(item)
	s.index[key(item.SKU, item.Location)] = item.ID
	s.itemLocks[item.ID] = &sync.Mutex{}
}

func (s *fakeStore) lockFor(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.itemLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.itemLocks[id] = l
	}
	return l
}

type fakeDatabase struct {
	store *fakeStore
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{store: newFakeStore()}
}

func (d *fakeDatabase) BeginTransaction(ctx context.Context) (ports.TransactionPort, error) {
	return &fakeTx{store: d.store}, nil
}

func (d *fakeDatabase) Health(ctx context.Context) error { return nil }

type fakeTx struct {
	store    *fakeStore
	held     []uuid.UUID
	finished bool
}

func (t *fakeTx) GetInventoryItemRepository() repositories.InventoryItemRepository {
	return &fakeItemRepo{store: t.store, tx: t}
}

func (t *fakeTx) GetStockMovementRepository() repositories.StockMovementRepository {
	return &fakeMovementRepo{store: t.store}
}

func (t *fakeTx) Commit() error {
	t.release()
	return nil
}

func (t *fakeTx) Rollback() error {
	t.release()
	return nil
}

func (t *fakeTx) release() {
	if t.finished {
		return
	}
	t.finished = true
	for _, id := range t.held {
		t.store.lockFor(id).Unlock()
	}
}

type fakeItemRepo struct {
	store *fakeStore
	tx    *fakeTx
}

func (r *fakeItemRepo) Create(ctx context.Context, item *entities.InventoryItem) error {
	r.store.seed(item)
	return nil
}

func (r *fakeItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.InventoryItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	item, ok := r.store.items[id]
	if !ok {
		return nil, errors.NewNotFoundError("inventory item")
	}
	return copyItem(item), nil
}

func (r *fakeItemRepo) GetBySKULocation(ctx context.Context, sku, location string) (*entities.InventoryItem, error) {
	r.store.mu.Lock()
	id, ok := r.store.index[key(sku, location)]
	r.store.mu.Unlock()
	if !ok {
		return nil, errors.NewNotFoundError("inventory item")
	}
	return r.GetByID(ctx, id)
}

func (r *fakeItemRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*entities.InventoryItem, error) {
	lock := r.store.lockFor(id)
	lock.Lock()
	if r.tx != nil {
		r.tx.held = append(r.tx.held, id)
	}
	return r.GetByID(ctx, id)
}

func (r *fakeItemRepo) Update(ctx context.Context, item *entities.InventoryItem, previousLockVersion int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.items[item.ID]
	if !ok {
		return errors.NewNotFoundError("inventory item")
	}
	if stored.LockVersion != previousLockVersion {
		return errors.NewConflictError("stale lock_version")
	}
	r.store.items[item.ID] = copyItem(item)
	return nil
}

func (r *fakeItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	item, ok := r.store.items[id]
	if !ok {
		return errors.NewNotFoundError("inventory item")
	}
	delete(r.store.items, id)
	delete(r.store.index, key(item.SKU, item.Location))

	kept := r.store.movements[:0]
	for _, mv := range r.store.movements {
		if mv.InventoryItemID != id {
			kept = append(kept, mv)
		}
	}
	r.store.movements = kept
	return nil
}

func (r *fakeItemRepo) List(ctx context.Context, filter repositories.InventoryItemFilter, pagination utils.PaginationInfo) ([]*entities.InventoryItem, utils.PaginationInfo, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var matched []*entities.InventoryItem
	for _, item := range r.store.items {
		if filter.SKU != "" && item.SKU != filter.SKU {
			continue
		}
		if filter.Location != "" && item.Location != filter.Location {
			continue
		}
		if filter.InStock != nil && *filter.InStock && item.QuantityAvailable() <= 0 {
			continue
		}
		if filter.OutOfStock != nil && *filter.OutOfStock && item.QuantityAvailable() > 0 {
			continue
		}
		if filter.LowStock != nil && *filter.LowStock && !item.IsLowStock() {
			continue
		}
		matched = append(matched, copyItem(item))
	}

	pageInfo := utils.CalculatePagination(pagination.Page, pagination.PerPage, len(matched))
	return matched, pageInfo, nil
}

func (r *fakeItemRepo) ListBySKU(ctx context.Context, sku string) ([]*entities.InventoryItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entities.InventoryItem
	for _, item := range r.store.items {
		if item.SKU == sku {
			out = append(out, copyItem(item))
		}
	}
	return out, nil
}

func (r *fakeItemRepo) ListLowStock(ctx context.Context, pagination utils.PaginationInfo) ([]*entities.InventoryItem, utils.PaginationInfo, error) {
	lowStock := true
	return r.List(ctx, repositories.InventoryItemFilter{LowStock: &lowStock}, pagination)
}

func (r *fakeItemRepo) ListLocations(ctx context.Context) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, item := range r.store.items {
		if !seen[item.Location] {
			seen[item.Location] = true
			out = append(out, item.Location)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) AggregateBySKU(ctx context.Context) ([]repositories.SKUAggregate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	agg := map[string]*repositories.SKUAggregate{}
	for _, item := range r.store.items {
		a, ok := agg[item.SKU]
		if !ok {
			a = &repositories.SKUAggregate{SKU: item.SKU}
			agg[item.SKU] = a
		}
		a.TotalOnHand += item.QuantityOnHand
		a.TotalReserved += item.QuantityReserved
		a.TotalAvailable += item.QuantityAvailable()
	}
	out := make([]repositories.SKUAggregate, 0, len(agg))
	for _, a := range agg {
		out = append(out, *a)
	}
	return out, nil
}

type fakeMovementRepo struct {
	store *fakeStore
}

func (r *fakeMovementRepo) Create(ctx context.Context, movement *entities.StockMovement) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.movements = append(r.store.movements, movement)
	return nil
}

func (r *fakeMovementRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.StockMovement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, mv := range r.store.movements {
		if mv.ID == id {
			return mv, nil
		}
	}
	return nil, errors.NewNotFoundError("stock movement")
}

func (r *fakeMovementRepo) List(ctx context.Context, filter repositories.StockMovementFilter, pagination utils.PaginationInfo) ([]*entities.StockMovement, utils.PaginationInfo, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := append([]*entities.StockMovement{}, r.store.movements...)
	pageInfo := utils.CalculatePagination(pagination.Page, pagination.PerPage, len(out))
	return out, pageInfo, nil
}

func (r *fakeMovementRepo) ListByInventoryItemID(ctx context.Context, itemID uuid.UUID, filter repositories.StockMovementFilter, pagination utils.PaginationInfo) ([]*entities.StockMovement, utils.PaginationInfo, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entities.StockMovement
	for _, mv := range r.store.movements {
		if mv.InventoryItemID == itemID {
			out = append(out, mv)
		}
	}
	pageInfo := utils.CalculatePagination(pagination.Page, pagination.PerPage, len(out))
	return out, pageInfo, nil
}

type fakeEventSink struct {
	mu     sync.Mutex
	events []ports.InventoryEvent
}

func (s *fakeEventSink) Publish(ctx context.Context, event ports.InventoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeEventSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
