package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nicklaros/stockengine/internal/application/ports"
	"github.com/nicklaros/stockengine/internal/domain/entities"
	"github.com/nicklaros/stockengine/internal/domain/repositories"
	"github.com/nicklaros/stockengine/pkg/errors"
	"github.com/nicklaros/stockengine/pkg/logger"
	"github.com/nicklaros/stockengine/pkg/utils"
)

// InventoryQueryService is C3: read-only aggregations and availability
// checks, consulted directly by the adapters for pure-read operations.
type InventoryQueryService struct {
	itemRepo     repositories.InventoryItemRepository
	movementRepo repositories.StockMovementRepository
	cache        ports.CachePort
	cacheTTL     time.Duration
	logger       logger.Logger
}

// NewInventoryQueryService wires C3. cache may be nil, in which case every
// lookup falls through to the repository directly.
func NewInventoryQueryService(itemRepo repositories.InventoryItemRepository, movementRepo repositories.StockMovementRepository, cache ports.CachePort, cacheTTL time.Duration, logger logger.Logger) *InventoryQueryService {
	return &InventoryQueryService{
		itemRepo:     itemRepo,
		movementRepo: movementRepo,
		cache:        cache,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// PerLocationAvailability is one row of an AvailabilityReport.
type PerLocationAvailability struct {
	Location      string `json:"location"`
	Available     int    `json:"available"`
	Backorderable bool   `json:"backorderable"`
}

// AvailabilityReport answers "can q units of sku be fulfilled".
type AvailabilityReport struct {
	SKU             string                     `json:"sku"`
	TotalAvailable  int                        `json:"total_available"`
	IsAvailable     bool                       `json:"is_available"`
	Backorderable   bool                       `json:"backorderable"`
	PerLocation     []PerLocationAvailability  `json:"per_location"`
}

// BySKU returns every item for a SKU across all locations.
func (s *InventoryQueryService) BySKU(ctx context.Context, sku string) ([]*ItemResponse, error) {
	items, err := s.itemRepo.ListBySKU(ctx, sku)
	if err != nil {
		return nil, errors.NewInternalError("failed to list items by sku", err)
	}
	out := make([]*ItemResponse, len(items))
	for i, item := range items {
		out[i] = toItemResponse(item)
	}
	return out, nil
}

// LowStock returns paginated items at or below their reorder_point.
func (s *InventoryQueryService) LowStock(ctx context.Context, pagination utils.PaginationInfo) ([]*ItemResponse, utils.PaginationInfo, error) {
	items, pageInfo, err := s.itemRepo.ListLowStock(ctx, pagination)
	if err != nil {
		return nil, pageInfo, errors.NewInternalError("failed to list low stock items", err)
	}
	out := make([]*ItemResponse, len(items))
	for i, item := range items {
		out[i] = toItemResponse(item)
	}
	return out, pageInfo, nil
}

// InStock and OutOfStock are filtered variants of List, driven by the
// same InventoryItemFilter the REST adapter's query params populate.
func (s *InventoryQueryService) InStock(ctx context.Context, pagination utils.PaginationInfo) ([]*ItemResponse, utils.PaginationInfo, error) {
	inStock := true
	items, pageInfo, err := s.itemRepo.List(ctx, repositories.InventoryItemFilter{InStock: &inStock}, pagination)
	if err != nil {
		return nil, pageInfo, errors.NewInternalError("failed to list in-stock items", err)
	}
	out := make([]*ItemResponse, len(items))
	for i, item := range items {
		out[i] = toItemResponse(item)
	}
	return out, pageInfo, nil
}

func (s *InventoryQueryService) OutOfStock(ctx context.Context, pagination utils.PaginationInfo) ([]*ItemResponse, utils.PaginationInfo, error) {
	outOfStock := true
	items, pageInfo, err := s.itemRepo.List(ctx, repositories.InventoryItemFilter{OutOfStock: &outOfStock}, pagination)
	if err != nil {
		return nil, pageInfo, errors.NewInternalError("failed to list out-of-stock items", err)
	}
	out := make([]*ItemResponse, len(items))
	for i, item := range items {
		out[i] = toItemResponse(item)
	}
	return out, pageInfo, nil
}

// Locations returns the distinct location strings in use.
func (s *InventoryQueryService) Locations(ctx context.Context) ([]string, error) {
	locations, err := s.itemRepo.ListLocations(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to list locations", err)
	}
	return locations, nil
}

// MovementsFor returns the paginated movement history for one item.
func (s *InventoryQueryService) MovementsFor(ctx context.Context, sku, location string, filter repositories.StockMovementFilter, pagination utils.PaginationInfo) ([]*MovementResponse, utils.PaginationInfo, error) {
	if location == "" {
		location = entities.DefaultLocation
	}
	item, err := s.itemRepo.GetBySKULocation(ctx, sku, location)
	if err != nil {
		return nil, pagination, errors.NewNotFoundError("inventory item")
	}

	movements, pageInfo, err := s.movementRepo.ListByInventoryItemID(ctx, item.ID, filter, pagination)
	if err != nil {
		return nil, pageInfo, errors.NewInternalError("failed to list movements", err)
	}
	out := make([]*MovementResponse, len(movements))
	for i, mv := range movements {
		out[i] = toMovementResponse(mv)
	}
	return out, pageInfo, nil
}

// Movements browses the ledger independent of a specific item (GET /stock_movements).
func (s *InventoryQueryService) Movements(ctx context.Context, filter repositories.StockMovementFilter, pagination utils.PaginationInfo) ([]*MovementResponse, utils.PaginationInfo, error) {
	movements, pageInfo, err := s.movementRepo.List(ctx, filter, pagination)
	if err != nil {
		return nil, pageInfo, errors.NewInternalError("failed to list movements", err)
	}
	out := make([]*MovementResponse, len(movements))
	for i, mv := range movements {
		out[i] = toMovementResponse(mv)
	}
	return out, pageInfo, nil
}

// MovementByID fetches a single ledger entry.
func (s *InventoryQueryService) MovementByID(ctx context.Context, id string) (*MovementResponse, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.NewBadInputError("invalid movement id", err.Error())
	}
	mv, err := s.movementRepo.GetByID(ctx, parsed)
	if err != nil {
		return nil, errors.NewNotFoundError("stock movement")
	}
	return toMovementResponse(mv), nil
}

// CheckAvailability sums availability for a SKU across matching locations,
// read-through cached when a cache is configured.
func (s *InventoryQueryService) CheckAvailability(ctx context.Context, sku string, quantity int, location string) (*AvailabilityReport, error) {
	cacheKey := fmt.Sprintf("availability:%s:%s", sku, location)

	var items []*entities.InventoryItem
	cached := false
	if s.cache != nil {
		var report AvailabilityReport
		if hit, err := s.cache.Get(ctx, cacheKey, &report); err == nil && hit {
			report.IsAvailable = report.TotalAvailable >= quantity || report.Backorderable
			return &report, nil
		}
	}

	var err error
	if location != "" {
		item, itemErr := s.itemRepo.GetBySKULocation(ctx, sku, location)
		if itemErr == nil {
			items = []*entities.InventoryItem{item}
		}
	} else {
		items, err = s.itemRepo.ListBySKU(ctx, sku)
		if err != nil {
			return nil, errors.NewInternalError("failed to check availability", err)
		}
	}

	report := &AvailabilityReport{SKU: sku}
	for _, item := range items {
		report.TotalAvailable += item.QuantityAvailable()
		if item.Backorderable {
			report.Backorderable = true
		}
		report.PerLocation = append(report.PerLocation, PerLocationAvailability{
			Location:      item.Location,
			Available:     item.QuantityAvailable(),
			Backorderable: item.Backorderable,
		})
	}
	report.IsAvailable = report.TotalAvailable >= quantity || report.Backorderable

	if s.cache != nil && !cached {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.WithField("error", err.Error()).Warn("failed to populate availability cache")
		}
	}

	return report, nil
}

// CheckBulkAvailability runs CheckAvailability once per requested SKU.
func (s *InventoryQueryService) CheckBulkAvailability(ctx context.Context, requests []struct {
	SKU      string
	Quantity int
	Location string
}) ([]*AvailabilityReport, error) {
	reports := make([]*AvailabilityReport, 0, len(requests))
	for _, req := range requests {
		report, err := s.CheckAvailability(ctx, req.SKU, req.Quantity, req.Location)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// AggregateBySKU sums on-hand/reserved/available per SKU across locations.
func (s *InventoryQueryService) AggregateBySKU(ctx context.Context) ([]repositories.SKUAggregate, error) {
	cacheKey := "aggregate_by_sku"
	if s.cache != nil {
		var cached []repositories.SKUAggregate
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	aggregates, err := s.itemRepo.AggregateBySKU(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to aggregate by sku", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, aggregates, s.cacheTTL); err != nil {
			s.logger.WithField("error", err.Error()).Warn("failed to populate aggregate cache")
		}
	}

	return aggregates, nil
}

// TotalAvailableForSKU sums `available` across every location for a SKU.
func (s *InventoryQueryService) TotalAvailableForSKU(ctx context.Context, sku string) (int, error) {
	items, err := s.itemRepo.ListBySKU(ctx, sku)
	if err != nil {
		return 0, errors.NewInternalError("failed to sum availability", err)
	}
	total := 0
	for _, item := range items {
		total += item.QuantityAvailable()
	}
	return total, nil
}

// InvalidateCache drops cached availability/aggregate entries for a sku.
// Wired to the same post-commit hook C2 publishes through, so a cache
// miss or a disabled cache never changes correctness, only latency.
func (s *InventoryQueryService) InvalidateCache(ctx context.Context, sku string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, fmt.Sprintf("availability:%s:", sku)); err != nil {
		s.logger.WithField("error", err.Error()).Warn("failed to invalidate availability cache")
	}
	if err := s.cache.Delete(ctx, "aggregate_by_sku"); err != nil {
		s.logger.WithField("error", err.Error()).Warn("failed to invalidate aggregate cache")
	}
}

var _ ports.CacheInvalidator = (*InventoryQueryService)(nil)
