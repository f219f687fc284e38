package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nicklaros/stockengine/internal/application/usecases"
	"github.com/nicklaros/stockengine/internal/domain/entities"
	"github.com/nicklaros/stockengine/internal/domain/repositories"
	"github.com/nicklaros/stockengine/pkg/errors"
	"github.com/nicklaros/stockengine/pkg/utils"
)

func (s *Server) paginationFromQuery(c *gin.Context) utils.PaginationInfo {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	return utils.PaginationInfo{Page: page, PerPage: perPage}
}

func locationOrDefault(c *gin.Context) string {
	location := c.Query("location")
	if location == "" {
		location = entities.DefaultLocation
	}
	return location
}

func boolQueryFilter(c *gin.Context, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	value := raw == "true" || raw == "1"
	return &value
}

// listInventory handles GET /inventory.
func (s *Server) listInventory(c *gin.Context) {
	filter := repositories.InventoryItemFilter{
		SKU:        c.Query("sku"),
		Location:   c.Query("location"),
		InStock:    boolQueryFilter(c, "in_stock"),
		LowStock:   boolQueryFilter(c, "low_stock"),
		OutOfStock: boolQueryFilter(c, "out_of_stock"),
	}

	items, page, err := s.engine.ListItems(c.Request.Context(), filter, s.paginationFromQuery(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondList(c, items, page)
}

// getInventoryItem handles GET /inventory/:sku.
func (s *Server) getInventoryItem(c *gin.Context) {
	item, err := s.engine.GetItem(c.Request.Context(), c.Param("sku"), locationOrDefault(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondData(c, http.StatusOK, item)
}

type createInventoryItemRequest struct {
	SKU             string                 `json:"sku" binding:"required"`
	Location        string                 `json:"location"`
	QuantityOnHand  int                    `json:"quantity_on_hand"`
	ReorderPoint    *int                   `json:"reorder_point"`
	ReorderQuantity *int                   `json:"reorder_quantity"`
	Backorderable   bool                   `json:"backorderable"`
	Metadata        map[string]interface{} `json:"metadata"`
}

// createInventoryItem handles POST /inventory.
func (s *Server) createInventoryItem(c *gin.Context) {
	var req createInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}
	location := req.Location
	if location == "" {
		location = entities.DefaultLocation
	}

	item, err := s.engine.CreateItem(c.Request.Context(), req.SKU, location, req.QuantityOnHand, req.ReorderPoint, req.ReorderQuantity, req.Backorderable, req.Metadata)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondData(c, http.StatusCreated, item)
}

type updateInventoryItemRequest struct {
	ReorderPoint    *int                   `json:"reorder_point"`
	ReorderQuantity *int                   `json:"reorder_quantity"`
	Backorderable   *bool                  `json:"backorderable"`
	Metadata        map[string]interface{} `json:"metadata"`
}

// updateInventoryItem handles PATCH /inventory/:sku.
func (s *Server) updateInventoryItem(c *gin.Context) {
	var req updateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}

	item, err := s.engine.UpdateItem(c.Request.Context(), c.Param("sku"), locationOrDefault(c), req.ReorderPoint, req.ReorderQuantity, req.Backorderable, req.Metadata)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondData(c, http.StatusOK, item)
}

// deleteInventoryItem handles DELETE /inventory/:sku.
func (s *Server) deleteInventoryItem(c *gin.Context) {
	if err := s.engine.DeleteItem(c.Request.Context(), c.Param("sku"), locationOrDefault(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type mutationRequestBody struct {
	Quantity      int                    `json:"quantity" binding:"required"`
	Reason        string                 `json:"reason"`
	ReferenceType string                 `json:"reference_type"`
	ReferenceID   string                 `json:"reference_id"`
	Metadata      map[string]interface{} `json:"metadata"`
}

func (b mutationRequestBody) toMutationRequest() usecases.MutationRequest {
	return usecases.MutationRequest{
		Quantity:      b.Quantity,
		Reason:        b.Reason,
		ReferenceType: b.ReferenceType,
		ReferenceID:   b.ReferenceID,
		Metadata:      b.Metadata,
	}
}

func (s *Server) bindMutation(c *gin.Context) (usecases.MutationRequest, bool) {
	var body mutationRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, errors.NewValidationError("invalid request body", err.Error()))
		return usecases.MutationRequest{}, false
	}
	return body.toMutationRequest(), true
}

// adjustmentRequestBody omits mutationRequestBody's "required" tag on
// Quantity: adjust(0) is a valid, zero-quantity adjustment (§8), unlike
// reserve/release/commit where the engine rejects a zero quantity outright.
type adjustmentRequestBody struct {
	Quantity      int                    `json:"quantity"`
	Reason        string                 `json:"reason"`
	ReferenceType string                 `json:"reference_type"`
	ReferenceID   string                 `json:"reference_id"`
	Metadata      map[string]interface{} `json:"metadata"`
}

func (b adjustmentRequestBody) toMutationRequest() usecases.MutationRequest {
	return usecases.MutationRequest{
		Quantity:      b.Quantity,
		Reason:        b.Reason,
		ReferenceType: b.ReferenceType,
		ReferenceID:   b.ReferenceID,
		Metadata:      b.Metadata,
	}
}

func (s *Server) bindAdjustment(c *gin.Context) (usecases.MutationRequest, bool) {
	var body adjustmentRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, errors.NewValidationError("invalid request body", err.Error()))
		return usecases.MutationRequest{}, false
	}
	return body.toMutationRequest(), true
}

// adjustInventoryItem handles POST /inventory/:sku/adjust.
func (s *Server) adjustInventoryItem(c *gin.Context) {
	req, ok := s.bindAdjustment(c)
	if !ok {
		return
	}
	result, err := s.engine.Adjust(c.Request.Context(), c.Param("sku"), locationOrDefault(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result.Item, "movement": result.Movement})
}

// reserveInventoryItem handles POST /inventory/:sku/reserve.
func (s *Server) reserveInventoryItem(c *gin.Context) {
	req, ok := s.bindMutation(c)
	if !ok {
		return
	}
	result, err := s.engine.Reserve(c.Request.Context(), c.Param("sku"), locationOrDefault(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result.Item, "movement": result.Movement, "reservation_id": result.ReservationID})
}

// releaseInventoryItem handles POST /inventory/:sku/release.
func (s *Server) releaseInventoryItem(c *gin.Context) {
	req, ok := s.bindMutation(c)
	if !ok {
		return
	}
	result, err := s.engine.Release(c.Request.Context(), c.Param("sku"), locationOrDefault(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result.Item, "movement": result.Movement})
}

// commitInventoryItem handles POST /inventory/:sku/commit.
func (s *Server) commitInventoryItem(c *gin.Context) {
	req, ok := s.bindMutation(c)
	if !ok {
		return
	}
	result, err := s.engine.Commit(c.Request.Context(), c.Param("sku"), locationOrDefault(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result.Item, "movement": result.Movement})
}

// listItemMovements handles GET /inventory/:sku/movements.
func (s *Server) listItemMovements(c *gin.Context) {
	filter := movementFilterFromQuery(c)
	movements, page, err := s.query.MovementsFor(c.Request.Context(), c.Param("sku"), locationOrDefault(c), filter, s.paginationFromQuery(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondList(c, movements, page)
}

// listLowStock handles GET /inventory/low_stock.
func (s *Server) listLowStock(c *gin.Context) {
	items, page, err := s.query.LowStock(c.Request.Context(), s.paginationFromQuery(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondList(c, items, page)
}

// listLocations handles GET /inventory/locations.
func (s *Server) listLocations(c *gin.Context) {
	locations, err := s.query.Locations(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondData(c, http.StatusOK, locations)
}

type bulkAdjustRequest struct {
	Adjustments []struct {
		SKU      string `json:"sku" binding:"required"`
		Location string `json:"location"`
		Quantity int    `json:"quantity"`
		Reason   string `json:"reason"`
	} `json:"adjustments" binding:"required"`
}

type bulkAdjustResult struct {
	SKU      string                  `json:"sku"`
	Location string                  `json:"location"`
	Success  bool                    `json:"success"`
	Item     *usecases.ItemResponse  `json:"item,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// bulkAdjust handles POST /inventory/bulk_adjust, applying each adjustment
// independently so one failure does not roll back the others.
func (s *Server) bulkAdjust(c *gin.Context) {
	var req bulkAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}

	results := make([]bulkAdjustResult, 0, len(req.Adjustments))
	for _, adj := range req.Adjustments {
		location := adj.Location
		if location == "" {
			location = entities.DefaultLocation
		}

		result, err := s.engine.Adjust(c.Request.Context(), adj.SKU, location, usecases.MutationRequest{
			Quantity: adj.Quantity,
			Reason:   adj.Reason,
		})
		if err != nil {
			results = append(results, bulkAdjustResult{SKU: adj.SKU, Location: location, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, bulkAdjustResult{SKU: adj.SKU, Location: location, Success: true, Item: result.Item})
	}

	s.respondData(c, http.StatusOK, results)
}
