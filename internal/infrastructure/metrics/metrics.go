package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	StockLevelGauge      *prometheus.GaugeVec
	StockMovementsTotal  *prometheus.CounterVec
	ReservationsRejected *prometheus.CounterVec
	DatabaseQueryDuration *prometheus.HistogramVec
	RPCRequestsTotal     *prometheus.CounterVec
	RPCRequestDuration   *prometheus.HistogramVec

	once sync.Once
)

// Init registers every collector this service exposes. Called once at
// startup before the metrics endpoint is served.
func Init() {
	once.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		)
		httpRequestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inventory_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		)
		StockLevelGauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "inventory_stock_available",
				Help: "Current available quantity (on hand minus reserved) per sku/location",
			},
			[]string{"sku", "location"},
		)
		StockMovementsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_stock_movements_total",
				Help: "Total number of stock movements recorded",
			},
			[]string{"movement_type"},
		)
		ReservationsRejected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_reservations_rejected_total",
				Help: "Total number of reserve calls rejected for insufficient stock",
			},
			[]string{"sku", "location"},
		)
		DatabaseQueryDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inventory_database_query_duration_seconds",
				Help:    "Database query duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation"},
		)
		RPCRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_rpc_requests_total",
				Help: "Total number of RPC requests",
			},
			[]string{"method", "status"},
		)
		RPCRequestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inventory_rpc_request_duration_seconds",
				Help:    "RPC request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)

		register(httpRequestsTotal)
		register(httpRequestDuration)
		register(StockLevelGauge)
		register(StockMovementsTotal)
		register(ReservationsRejected)
		register(DatabaseQueryDuration)
		register(RPCRequestsTotal)
		register(RPCRequestDuration)
	})
}

func register(c prometheus.Collector) {
	if err := prometheus.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			panic(err)
		}
	}
}

// GinMiddleware records per-request HTTP metrics for the REST surface.
func GinMiddleware() gin.HandlerFunc {
	Init()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// RecordMovement increments the movement counter and refreshes the stock
// level gauge after a successful transition.
func RecordMovement(movementType string, sku, location string, available int) {
	Init()
	StockMovementsTotal.WithLabelValues(movementType).Inc()
	StockLevelGauge.WithLabelValues(sku, location).Set(float64(available))
}

// RecordReservationRejected counts an insufficient-stock reserve attempt.
func RecordReservationRejected(sku, location string) {
	Init()
	ReservationsRejected.WithLabelValues(sku, location).Inc()
}

// RecordDatabaseQuery times one repository operation.
func RecordDatabaseQuery(operation string, duration time.Duration) {
	Init()
	DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRPCRequest times one RPC method call.
func RecordRPCRequest(method, status string, duration time.Duration) {
	Init()
	RPCRequestsTotal.WithLabelValues(method, status).Inc()
	RPCRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}
