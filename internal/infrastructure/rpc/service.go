package rpc

import (
	"context"

	"github.com/nicklaros/stockengine/internal/application/usecases"
	"github.com/nicklaros/stockengine/pkg/errors"
	"github.com/nicklaros/stockengine/pkg/logger"
)

// InventoryService is C5: a typed request/response RPC surface over the
// same engine and query service the REST adapter uses. Business failures
// never surface as transport errors (§4.5); they are encoded into the
// response's Success/Error fields.
type InventoryService struct {
	engine *usecases.InventoryEngine
	query  *usecases.InventoryQueryService
	logger logger.Logger
}

// NewInventoryService wires C5 to the shared engine and query service.
func NewInventoryService(engine *usecases.InventoryEngine, query *usecases.InventoryQueryService, logger logger.Logger) *InventoryService {
	return &InventoryService{engine: engine, query: query, logger: logger}
}

func errorMessage(err error) string {
	if appErr, ok := errors.IsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

func toStockResponse(sku, location string, item *usecases.ItemResponse) StockResponse {
	return StockResponse{
		Success:           true,
		SKU:               sku,
		Location:          location,
		QuantityOnHand:    item.QuantityOnHand,
		QuantityReserved:  item.QuantityReserved,
		QuantityAvailable: item.QuantityAvailable,
		InStock:           item.QuantityAvailable > 0,
		Backorderable:     item.Backorderable,
	}
}

func failedStockResponse(sku, location string, err error) *StockResponse {
	return &StockResponse{Success: false, Error: errorMessage(err), SKU: sku, Location: location}
}

// GetStock returns the current snapshot for one item.
func (s *InventoryService) GetStock(ctx context.Context, req *GetStockRequest) (*StockResponse, error) {
	item, err := s.engine.GetItem(ctx, req.SKU, req.Location)
	if err != nil {
		return failedStockResponse(req.SKU, req.Location, err), nil
	}
	resp := toStockResponse(req.SKU, req.Location, item)
	return &resp, nil
}

// AdjustStock applies a signed on-hand delta.
func (s *InventoryService) AdjustStock(ctx context.Context, req *AdjustStockRequest) (*StockResponse, error) {
	result, err := s.engine.Adjust(ctx, req.SKU, req.Location, usecases.MutationRequest{Quantity: req.Quantity, Reason: req.Reason})
	if err != nil {
		return failedStockResponse(req.SKU, req.Location, err), nil
	}
	resp := toStockResponse(req.SKU, req.Location, result.Item)
	return &resp, nil
}

// ReserveStock reserves quantity against available-to-promise.
func (s *InventoryService) ReserveStock(ctx context.Context, req *ReserveStockRequest) (*ReserveStockResponse, error) {
	result, err := s.engine.Reserve(ctx, req.SKU, req.Location, usecases.MutationRequest{
		Quantity:      req.Quantity,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
	})
	if err != nil {
		return &ReserveStockResponse{Stock: *failedStockResponse(req.SKU, req.Location, err)}, nil
	}
	return &ReserveStockResponse{
		Stock:         toStockResponse(req.SKU, req.Location, result.Item),
		ReservationID: result.ReservationID,
	}, nil
}

// ReleaseReservation releases previously reserved quantity.
func (s *InventoryService) ReleaseReservation(ctx context.Context, req *MutateStockRequest) (*StockResponse, error) {
	result, err := s.engine.Release(ctx, req.SKU, req.Location, usecases.MutationRequest{
		Quantity: req.Quantity, Reason: req.Reason, ReferenceType: req.ReferenceType, ReferenceID: req.ReferenceID,
	})
	if err != nil {
		return failedStockResponse(req.SKU, req.Location, err), nil
	}
	resp := toStockResponse(req.SKU, req.Location, result.Item)
	return &resp, nil
}

// CommitReservation fulfills a reservation, decrementing on-hand and reserved.
func (s *InventoryService) CommitReservation(ctx context.Context, req *MutateStockRequest) (*StockResponse, error) {
	result, err := s.engine.Commit(ctx, req.SKU, req.Location, usecases.MutationRequest{
		Quantity: req.Quantity, Reason: req.Reason, ReferenceType: req.ReferenceType, ReferenceID: req.ReferenceID,
	})
	if err != nil {
		return failedStockResponse(req.SKU, req.Location, err), nil
	}
	resp := toStockResponse(req.SKU, req.Location, result.Item)
	return &resp, nil
}

// CheckAvailability answers whether quantity units of sku can be fulfilled.
func (s *InventoryService) CheckAvailability(ctx context.Context, req *CheckAvailabilityRequest) (*AvailabilityResponse, error) {
	report, err := s.query.CheckAvailability(ctx, req.SKU, req.Quantity, req.Location)
	if err != nil {
		return &AvailabilityResponse{Success: false, Error: errorMessage(err), SKU: req.SKU}, nil
	}
	return &AvailabilityResponse{
		Success:        true,
		SKU:            report.SKU,
		TotalAvailable: report.TotalAvailable,
		IsAvailable:    report.IsAvailable,
		Backorderable:  report.Backorderable,
	}, nil
}

// BulkCheckAvailability runs CheckAvailability once per requested SKU.
func (s *InventoryService) BulkCheckAvailability(ctx context.Context, req *BulkCheckAvailabilityRequest) (*BulkAvailabilityResponse, error) {
	results := make([]AvailabilityResponse, 0, len(req.Requests))
	for _, r := range req.Requests {
		resp, _ := s.CheckAvailability(ctx, &r)
		results = append(results, *resp)
	}
	return &BulkAvailabilityResponse{Results: results}, nil
}
