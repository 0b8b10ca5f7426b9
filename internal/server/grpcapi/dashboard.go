// Package grpcapi declares the bbdash.v1.DashboardService gRPC service.
//
// Messages are google.protobuf.Struct values carrying the same JSON
// documents the HTTP API serves, so the service needs no generated message
// types.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	DashboardService_ServiceName                   = "bbdash.v1.DashboardService"
	DashboardService_GetServerInfo_FullMethodName  = "/bbdash.v1.DashboardService/GetServerInfo"
	DashboardService_GetDashboard_FullMethodName   = "/bbdash.v1.DashboardService/GetDashboard"
	DashboardService_WatchDashboard_FullMethodName = "/bbdash.v1.DashboardService/WatchDashboard"
)

// DashboardServiceClient is the client API for DashboardService.
type DashboardServiceClient interface {
	GetServerInfo(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetDashboard(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	WatchDashboard(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type dashboardServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDashboardServiceClient(cc grpc.ClientConnInterface) DashboardServiceClient {
	return &dashboardServiceClient{cc: cc}
}

func (c *dashboardServiceClient) GetServerInfo(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, DashboardService_GetServerInfo_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dashboardServiceClient) GetDashboard(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, DashboardService_GetDashboard_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dashboardServiceClient) WatchDashboard(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &DashboardService_ServiceDesc.Streams[0], DashboardService_WatchDashboard_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// DashboardServiceServer is the server API for DashboardService.
// Implementations must embed UnimplementedDashboardServiceServer.
type DashboardServiceServer interface {
	GetServerInfo(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetDashboard(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WatchDashboard(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
	mustEmbedUnimplementedDashboardServiceServer()
}

type UnimplementedDashboardServiceServer struct{}

func (UnimplementedDashboardServiceServer) GetServerInfo(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetServerInfo not implemented")
}

func (UnimplementedDashboardServiceServer) GetDashboard(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetDashboard not implemented")
}

func (UnimplementedDashboardServiceServer) WatchDashboard(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Error(codes.Unimplemented, "method WatchDashboard not implemented")
}

func (UnimplementedDashboardServiceServer) mustEmbedUnimplementedDashboardServiceServer() {}

func RegisterDashboardServiceServer(s grpc.ServiceRegistrar, srv DashboardServiceServer) {
	s.RegisterService(&DashboardService_ServiceDesc, srv)
}

func _DashboardService_GetServerInfo_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardServiceServer).GetServerInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DashboardService_GetServerInfo_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DashboardServiceServer).GetServerInfo(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _DashboardService_GetDashboard_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardServiceServer).GetDashboard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DashboardService_GetDashboard_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DashboardServiceServer).GetDashboard(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _DashboardService_WatchDashboard_Handler(srv any, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(DashboardServiceServer).WatchDashboard(m, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

var DashboardService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: DashboardService_ServiceName,
	HandlerType: (*DashboardServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetServerInfo", Handler: _DashboardService_GetServerInfo_Handler},
		{MethodName: "GetDashboard", Handler: _DashboardService_GetDashboard_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchDashboard", Handler: _DashboardService_WatchDashboard_Handler, ServerStreams: true},
	},
	Metadata: "bbdash/v1/dashboard.proto",
}
