package rpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	otelgrpc "go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"

	"github.com/nicklaros/stockengine/internal/infrastructure/metrics"
	"github.com/nicklaros/stockengine/pkg/logger"
)

// recordRPC times one RPC method call and returns its result unchanged, so
// every handler can report metrics without duplicating the status logic.
func recordRPC(method string, start time.Time, resp interface{}, err error) (interface{}, error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordRPCRequest(method, status, time.Since(start))
	return resp, err
}

// serviceDesc is hand-written in place of a protoc-generated one; see
// api/inventorypb/inventory.proto for the documented contract.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "inventorypb.InventoryService",
	HandlerType: (*InventoryService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStock", Handler: getStockHandler},
		{MethodName: "AdjustStock", Handler: adjustStockHandler},
		{MethodName: "ReserveStock", Handler: reserveStockHandler},
		{MethodName: "ReleaseReservation", Handler: releaseReservationHandler},
		{MethodName: "CommitReservation", Handler: commitReservationHandler},
		{MethodName: "CheckAvailability", Handler: checkAvailabilityHandler},
		{MethodName: "BulkCheckAvailability", Handler: bulkCheckAvailabilityHandler},
	},
	Metadata: "inventory.proto",
}

func getStockHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	start := time.Now()
	req := new(GetStockRequest)
	if err := dec(req); err != nil {
		return recordRPC("GetStock", start, nil, err)
	}
	if interceptor == nil {
		resp, err := srv.(*InventoryService).GetStock(ctx, req)
		return recordRPC("GetStock", start, resp, err)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/inventorypb.InventoryService/GetStock"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*InventoryService).GetStock(ctx, req.(*GetStockRequest))
	}
	resp, err := interceptor(ctx, req, info, handler)
	return recordRPC("GetStock", start, resp, err)
}

func adjustStockHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	start := time.Now()
	req := new(AdjustStockRequest)
	if err := dec(req); err != nil {
		return recordRPC("AdjustStock", start, nil, err)
	}
	if interceptor == nil {
		resp, err := srv.(*InventoryService).AdjustStock(ctx, req)
		return recordRPC("AdjustStock", start, resp, err)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/inventorypb.InventoryService/AdjustStock"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*InventoryService).AdjustStock(ctx, req.(*AdjustStockRequest))
	}
	resp, err := interceptor(ctx, req, info, handler)
	return recordRPC("AdjustStock", start, resp, err)
}

func reserveStockHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	start := time.Now()
	req := new(ReserveStockRequest)
	if err := dec(req); err != nil {
		return recordRPC("ReserveStock", start, nil, err)
	}
	if interceptor == nil {
		resp, err := srv.(*InventoryService).ReserveStock(ctx, req)
		return recordRPC("ReserveStock", start, resp, err)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/inventorypb.InventoryService/ReserveStock"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*InventoryService).ReserveStock(ctx, req.(*ReserveStockRequest))
	}
	resp, err := interceptor(ctx, req, info, handler)
	return recordRPC("ReserveStock", start, resp, err)
}

func releaseReservationHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	start := time.Now()
	req := new(MutateStockRequest)
	if err := dec(req); err != nil {
		return recordRPC("ReleaseReservation", start, nil, err)
	}
	if interceptor == nil {
		resp, err := srv.(*InventoryService).ReleaseReservation(ctx, req)
		return recordRPC("ReleaseReservation", start, resp, err)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/inventorypb.InventoryService/ReleaseReservation"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*InventoryService).ReleaseReservation(ctx, req.(*MutateStockRequest))
	}
	resp, err := interceptor(ctx, req, info, handler)
	return recordRPC("ReleaseReservation", start, resp, err)
}

func commitReservationHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	start := time.Now()
	req := new(MutateStockRequest)
	if err := dec(req); err != nil {
		return recordRPC("CommitReservation", start, nil, err)
	}
	if interceptor == nil {
		resp, err := srv.(*InventoryService).CommitReservation(ctx, req)
		return recordRPC("CommitReservation", start, resp, err)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/inventorypb.InventoryService/CommitReservation"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*InventoryService).CommitReservation(ctx, req.(*MutateStockRequest))
	}
	resp, err := interceptor(ctx, req, info, handler)
	return recordRPC("CommitReservation", start, resp, err)
}

func checkAvailabilityHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	start := time.Now()
	req := new(CheckAvailabilityRequest)
	if err := dec(req); err != nil {
		return recordRPC("CheckAvailability", start, nil, err)
	}
	if interceptor == nil {
		resp, err := srv.(*InventoryService).CheckAvailability(ctx, req)
		return recordRPC("CheckAvailability", start, resp, err)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/inventorypb.InventoryService/CheckAvailability"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*InventoryService).CheckAvailability(ctx, req.(*CheckAvailabilityRequest))
	}
	resp, err := interceptor(ctx, req, info, handler)
	return recordRPC("CheckAvailability", start, resp, err)
}

func bulkCheckAvailabilityHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	start := time.Now()
	req := new(BulkCheckAvailabilityRequest)
	if err := dec(req); err != nil {
		return recordRPC("BulkCheckAvailability", start, nil, err)
	}
	if interceptor == nil {
		resp, err := srv.(*InventoryService).BulkCheckAvailability(ctx, req)
		return recordRPC("BulkCheckAvailability", start, resp, err)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/inventorypb.InventoryService/BulkCheckAvailability"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*InventoryService).BulkCheckAvailability(ctx, req.(*BulkCheckAvailabilityRequest))
	}
	resp, err := interceptor(ctx, req, info, handler)
	return recordRPC("BulkCheckAvailability", start, resp, err)
}

// Server wraps a *grpc.Server bound to the hand-written InventoryService
// descriptor, framed with the JSON codec registered in codec.go.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	logger     logger.Logger
}

// NewServer binds port and registers the service, statistics and codec.
func NewServer(port string, maxConcurrentStreams uint32, service *InventoryService, log logger.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, fmt.Errorf("failed to bind rpc listener: %w", err)
	}

	grpcServer := grpc.NewServer(
		grpc.ForceServerCodec(encoding.GetCodec("json")),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.MaxConcurrentStreams(maxConcurrentStreams),
	)
	grpcServer.RegisterService(&serviceDesc, service)

	return &Server{grpcServer: grpcServer, listener: lis, logger: log}, nil
}

// Start blocks serving RPC traffic until GracefulStop is called.
func (s *Server) Start() error {
	s.logger.Info("starting RPC server on " + s.listener.Addr().String())
	return s.grpcServer.Serve(s.listener)
}

// Shutdown gracefully drains in-flight RPCs.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info("shutting down RPC server")
	s.grpcServer.GracefulStop()
	return nil
}
