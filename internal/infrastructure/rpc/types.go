package rpc

// Request/response types mirror api/inventorypb/inventory.proto. They are
// plain Go structs rather than generated protobuf messages because the
// adapter uses a JSON codec in place of binary protobuf framing.

type GetStockRequest struct {
	SKU      string `json:"sku"`
	Location string `json:"location"`
}

type AdjustStockRequest struct {
	SKU      string `json:"sku"`
	Location string `json:"location"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

type MutateStockRequest struct {
	SKU           string `json:"sku"`
	Location      string `json:"location"`
	Quantity      int    `json:"quantity"`
	Reason        string `json:"reason"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
}

type ReserveStockRequest struct {
	SKU           string `json:"sku"`
	Location      string `json:"location"`
	Quantity      int    `json:"quantity"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
}

// StockResponse carries the updated view of one item. RPC never throws for
// business errors (§4.5): Success is false and Error is populated instead
// of returning a transport-level error.
type StockResponse struct {
	Success           bool   `json:"success"`
	Error             string `json:"error,omitempty"`
	SKU               string `json:"sku"`
	Location          string `json:"location"`
	QuantityOnHand    int    `json:"quantity_on_hand"`
	QuantityReserved  int    `json:"quantity_reserved"`
	QuantityAvailable int    `json:"quantity_available"`
	InStock           bool   `json:"in_stock"`
	Backorderable     bool   `json:"backorderable"`
}

type ReserveStockResponse struct {
	Stock         StockResponse `json:"stock"`
	ReservationID string        `json:"reservation_id,omitempty"`
}

type CheckAvailabilityRequest struct {
	SKU      string `json:"sku"`
	Location string `json:"location"`
	Quantity int    `json:"quantity"`
}

type AvailabilityResponse struct {
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	SKU            string `json:"sku"`
	TotalAvailable int    `json:"total_available"`
	IsAvailable    bool   `json:"is_available"`
	Backorderable  bool   `json:"backorderable"`
}

type BulkCheckAvailabilityRequest struct {
	Requests []CheckAvailabilityRequest `json:"requests"`
}

type BulkAvailabilityResponse struct {
	Results []AvailabilityResponse `json:"results"`
}
