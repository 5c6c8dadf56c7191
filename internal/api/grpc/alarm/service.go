package alarm

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "geoalarm.v1.AlarmService"

// Full method names.
const (
	MethodAddCheckpoint    = "/" + ServiceName + "/AddCheckpoint"
	MethodRemoveCheckpoint = "/" + ServiceName + "/RemoveCheckpoint"
	MethodListCheckpoints  = "/" + ServiceName + "/ListCheckpoints"
	MethodSubmitPosition   = "/" + ServiceName + "/SubmitPosition"
	MethodStop             = "/" + ServiceName + "/Stop"
	MethodSnooze           = "/" + ServiceName + "/Snooze"
	MethodClearSnooze      = "/" + ServiceName + "/ClearSnooze"
	MethodGetStatus        = "/" + ServiceName + "/GetStatus"
	MethodWatchEvents      = "/" + ServiceName + "/WatchEvents"
)

// AlarmServiceServer is the server API for the alarm service.
type AlarmServiceServer interface {
	// AddCheckpoint takes {id?, latitude, longitude, radius_meters, label}
	// and returns the stored checkpoint.
	AddCheckpoint(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// RemoveCheckpoint takes {id} and returns {removed}.
	RemoveCheckpoint(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// ListCheckpoints takes {from?: {latitude, longitude}} and returns
	// {checkpoints: [...]} in creation order. With from, every item also
	// carries distance_meters, remaining_meters and inside.
	ListCheckpoints(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// SubmitPosition takes {latitude, longitude, timestamp?, source?}.
	SubmitPosition(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	// Stop takes {actor} and returns {applied, status}.
	Stop(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// Snooze takes {actor, minutes?} and returns {applied, snoozed_until?, status}.
	Snooze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// ClearSnooze takes {actor} and returns {applied, status}.
	ClearSnooze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// GetStatus returns the status payload.
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	// WatchEvents streams every engine event until the client goes away.
	WatchEvents(req *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error
}

// AlarmServiceDesc describes the service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by gRPC convention.
var AlarmServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlarmServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddCheckpoint", Handler: unary(MethodAddCheckpoint, newStruct, AlarmServiceServer.AddCheckpoint)},
		{MethodName: "RemoveCheckpoint", Handler: unary(MethodRemoveCheckpoint, newStruct, AlarmServiceServer.RemoveCheckpoint)},
		{MethodName: "ListCheckpoints", Handler: unary(MethodListCheckpoints, newStruct, AlarmServiceServer.ListCheckpoints)},
		{MethodName: "SubmitPosition", Handler: unary(MethodSubmitPosition, newStruct, AlarmServiceServer.SubmitPosition)},
		{MethodName: "Stop", Handler: unary(MethodStop, newStruct, AlarmServiceServer.Stop)},
		{MethodName: "Snooze", Handler: unary(MethodSnooze, newStruct, AlarmServiceServer.Snooze)},
		{MethodName: "ClearSnooze", Handler: unary(MethodClearSnooze, newStruct, AlarmServiceServer.ClearSnooze)},
		{MethodName: "GetStatus", Handler: unary(MethodGetStatus, newEmpty, AlarmServiceServer.GetStatus)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "geoalarm/v1/alarm.proto",
}

// RegisterAlarmServiceServer registers srv on s.
func RegisterAlarmServiceServer(s grpc.ServiceRegistrar, srv AlarmServiceServer) {
	s.RegisterService(&AlarmServiceDesc, srv)
}

func newStruct() *structpb.Struct { return new(structpb.Struct) }

func newEmpty() *emptypb.Empty { return new(emptypb.Empty) }

// unary adapts a typed server method to grpc.MethodHandler.
func unary[Req, Res any](
	fullMethod string,
	newRequest func() Req,
	call func(AlarmServiceServer, context.Context, Req) (Res, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newRequest()
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(AlarmServiceServer), ctx, in) //nolint:forcetypeassert // Guaranteed by HandlerType.
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AlarmServiceServer), ctx, req.(Req)) //nolint:forcetypeassert // Guaranteed by HandlerType.
		}

		return interceptor(ctx, in, info, handler)
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	//nolint:forcetypeassert // Guaranteed by HandlerType.
	return srv.(AlarmServiceServer).WatchEvents(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{
		ServerStream: stream,
	})
}

// AlarmServiceClient is the raw client API for the alarm service.
type AlarmServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAlarmServiceClient creates a client over cc.
func NewAlarmServiceClient(cc grpc.ClientConnInterface) *AlarmServiceClient {
	return &AlarmServiceClient{cc: cc}
}

// AddCheckpoint calls MethodAddCheckpoint.
func (c *AlarmServiceClient) AddCheckpoint(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodAddCheckpoint, in, opts)
}

// RemoveCheckpoint calls MethodRemoveCheckpoint.
func (c *AlarmServiceClient) RemoveCheckpoint(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodRemoveCheckpoint, in, opts)
}

// ListCheckpoints calls MethodListCheckpoints.
func (c *AlarmServiceClient) ListCheckpoints(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodListCheckpoints, in, opts)
}

// SubmitPosition calls MethodSubmitPosition.
func (c *AlarmServiceClient) SubmitPosition(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, MethodSubmitPosition, in, opts)
}

// Stop calls MethodStop.
func (c *AlarmServiceClient) Stop(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodStop, in, opts)
}

// Snooze calls MethodSnooze.
func (c *AlarmServiceClient) Snooze(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodSnooze, in, opts)
}

// ClearSnooze calls MethodClearSnooze.
func (c *AlarmServiceClient) ClearSnooze(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodClearSnooze, in, opts)
}

// GetStatus calls MethodGetStatus.
func (c *AlarmServiceClient) GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodGetStatus, in, opts)
}

// WatchEvents opens the server stream of engine events.
func (c *AlarmServiceClient) WatchEvents(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &AlarmServiceDesc.Streams[0], MethodWatchEvents, opts...)
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

func invoke[Res any](
	ctx context.Context,
	cc grpc.ClientConnInterface,
	method string,
	in any,
	opts []grpc.CallOption,
) (*Res, error) {
	out := new(Res)

	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
