// Package focusv1 defines the multifocus.v1.FocusControl gRPC service.
//
// Messages are protobuf well-known types so no generated message code is
// needed: triggers take Empty, scalar parameters use wrappers, and
// structured payloads (status, history, events) travel as Struct.
package focusv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified service name.
const ServiceName = "multifocus.v1.FocusControl"

// Method names.
const (
	MethodReset           = "Reset"
	MethodNext            = "Next"
	MethodCalibrate       = "Calibrate"
	MethodSetWork         = "SetWork"
	MethodSetParam        = "SetParam"
	MethodGetStatus       = "GetStatus"
	MethodGetPlans        = "GetPlans"
	MethodSetPlans        = "SetPlans"
	MethodGetHistory      = "GetHistory"
	MethodGetDaemonStatus = "GetDaemonStatus"
	MethodShutdown        = "Shutdown"
	MethodWatchEvents     = "WatchEvents"
)

// FullMethod returns "/multifocus.v1.FocusControl/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// FocusControlServer is the server API for the FocusControl service.
type FocusControlServer interface {
	// Reset discards the plan list and starts a new discovery.
	Reset(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	// Next confirms the current manual plan, or starts a manual discovery.
	Next(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	// Calibrate measures the actuator latency.
	Calibrate(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	SetWork(context.Context, *wrapperspb.BoolValue) (*emptypb.Empty, error)
	// SetParam assigns every field of the struct as a named parameter.
	SetParam(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetPlans(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	// SetPlans parses plan text and answers with the parse result.
	SetPlans(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// GetHistory returns up to limit scan and calibration records, newest first.
	GetHistory(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error)
	GetDaemonStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Shutdown(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	// WatchEvents streams engine events until the client goes away.
	WatchEvents(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// UnimplementedFocusControlServer answers every method with Unimplemented.
// Embed it by value.
type UnimplementedFocusControlServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedFocusControlServer) Reset(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, unimplemented(MethodReset)
}

func (UnimplementedFocusControlServer) Next(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, unimplemented(MethodNext)
}

func (UnimplementedFocusControlServer) Calibrate(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, unimplemented(MethodCalibrate)
}

func (UnimplementedFocusControlServer) SetWork(context.Context, *wrapperspb.BoolValue) (*emptypb.Empty, error) {
	return nil, unimplemented(MethodSetWork)
}

func (UnimplementedFocusControlServer) SetParam(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, unimplemented(MethodSetParam)
}

func (UnimplementedFocusControlServer) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGetStatus)
}

func (UnimplementedFocusControlServer) GetPlans(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return nil, unimplemented(MethodGetPlans)
}

func (UnimplementedFocusControlServer) SetPlans(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, unimplemented(MethodSetPlans)
}

func (UnimplementedFocusControlServer) GetHistory(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGetHistory)
}

func (UnimplementedFocusControlServer) GetDaemonStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGetDaemonStatus)
}

func (UnimplementedFocusControlServer) Shutdown(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, unimplemented(MethodShutdown)
}

func (UnimplementedFocusControlServer) WatchEvents(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error {
	return unimplemented(MethodWatchEvents)
}

// RegisterFocusControlServer registers srv with s.
func RegisterFocusControlServer(s grpc.ServiceRegistrar, srv FocusControlServer) {
	s.RegisterService(&FocusControl_ServiceDesc, srv)
}

// unary builds a method descriptor that decodes Req, calls fn and honours
// the server's interceptor chain.
func unary[Req, Resp any](method string, fn func(FocusControlServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(FocusControlServer)
			if interceptor == nil {
				return fn(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(FocusControlServer).WatchEvents(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// FocusControl_ServiceDesc is the grpc.ServiceDesc for the FocusControl service.
//
//nolint:revive,stylecheck // matches generated naming
var FocusControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FocusControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodReset, FocusControlServer.Reset),
		unary(MethodNext, FocusControlServer.Next),
		unary(MethodCalibrate, FocusControlServer.Calibrate),
		unary(MethodSetWork, FocusControlServer.SetWork),
		unary(MethodSetParam, FocusControlServer.SetParam),
		unary(MethodGetStatus, FocusControlServer.GetStatus),
		unary(MethodGetPlans, FocusControlServer.GetPlans),
		unary(MethodSetPlans, FocusControlServer.SetPlans),
		unary(MethodGetHistory, FocusControlServer.GetHistory),
		unary(MethodGetDaemonStatus, FocusControlServer.GetDaemonStatus),
		unary(MethodShutdown, FocusControlServer.Shutdown),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodWatchEvents,
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "multifocus/v1/focus.proto",
}

// FocusControlClient is the client API for the FocusControl service.
type FocusControlClient interface {
	Reset(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Next(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Calibrate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	SetWork(ctx context.Context, in *wrapperspb.BoolValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	SetParam(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetPlans(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	SetPlans(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetHistory(ctx context.Context, in *wrapperspb.Int32Value, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetDaemonStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Shutdown(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	WatchEvents(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type focusControlClient struct {
	cc grpc.ClientConnInterface
}

// NewFocusControlClient returns a client over cc.
func NewFocusControlClient(cc grpc.ClientConnInterface) FocusControlClient {
	return &focusControlClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *focusControlClient) Reset(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, MethodReset, in, opts)
}

func (c *focusControlClient) Next(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, MethodNext, in, opts)
}

func (c *focusControlClient) Calibrate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, MethodCalibrate, in, opts)
}

func (c *focusControlClient) SetWork(ctx context.Context, in *wrapperspb.BoolValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, MethodSetWork, in, opts)
}

func (c *focusControlClient) SetParam(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, MethodSetParam, in, opts)
}

func (c *focusControlClient) GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodGetStatus, in, opts)
}

func (c *focusControlClient) GetPlans(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, MethodGetPlans, in, opts)
}

func (c *focusControlClient) SetPlans(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodSetPlans, in, opts)
}

func (c *focusControlClient) GetHistory(ctx context.Context, in *wrapperspb.Int32Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodGetHistory, in, opts)
}

func (c *focusControlClient) GetDaemonStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodGetDaemonStatus, in, opts)
}

func (c *focusControlClient) Shutdown(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, MethodShutdown, in, opts)
}

func (c *focusControlClient) WatchEvents(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &FocusControl_ServiceDesc.Streams[0], FullMethod(MethodWatchEvents), opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
