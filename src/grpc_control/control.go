package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Service and method names on the wire
const (
	ServiceName       = "aggregator.v1.AggregatorControl"
	methodGetStatus   = "/" + ServiceName + "/GetStatus"
	methodListSymbols = "/" + ServiceName + "/ListSymbols"
	methodGetHistory  = "/" + ServiceName + "/GetHistory"
)

// -----------------------------------------------------------------------------
// AggregatorControlServer is the read-only control API. Messages are
// well-known protobuf types so no generated code is needed.
// -----------------------------------------------------------------------------

type AggregatorControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// ListSymbols filters by instrument class; an empty value lists all.
	ListSymbols(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetHistory(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

func RegisterAggregatorControlServer(s grpc.ServiceRegistrar, srv AggregatorControlServer) {
	s.RegisterService(&AggregatorControl_ServiceDesc, srv)
}

// -----------------------------------------------------------------------------

func _AggregatorControl_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AggregatorControlServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetStatus}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AggregatorControlServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _AggregatorControl_ListSymbols_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AggregatorControlServer).ListSymbols(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListSymbols}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AggregatorControlServer).ListSymbols(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _AggregatorControl_GetHistory_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AggregatorControlServer).GetHistory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetHistory}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AggregatorControlServer).GetHistory(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// AggregatorControl_ServiceDesc describes the service for grpc.Server.
var AggregatorControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AggregatorControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: _AggregatorControl_GetStatus_Handler},
		{MethodName: "ListSymbols", Handler: _AggregatorControl_ListSymbols_Handler},
		{MethodName: "GetHistory", Handler: _AggregatorControl_GetHistory_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "aggregator/v1/control.proto",
}

// -----------------------------------------------------------------------------
// AggregatorControlClient
// -----------------------------------------------------------------------------

type AggregatorControlClient struct {
	cc grpc.ClientConnInterface
}

func NewAggregatorControlClient(cc grpc.ClientConnInterface) *AggregatorControlClient {
	return &AggregatorControlClient{cc: cc}
}

func (c *AggregatorControlClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetStatus, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AggregatorControlClient) ListSymbols(ctx context.Context, class string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodListSymbols, wrapperspb.String(class), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AggregatorControlClient) GetHistory(ctx context.Context, symbol string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetHistory, wrapperspb.String(symbol), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
