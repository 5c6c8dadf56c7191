package alarm

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/engine"
	"github.com/oshokin/geoalarm/internal/logger"
)

// Engine abstracts the engine operations the transport layer depends on.
type Engine interface {
	AddCheckpoint(ctx context.Context, in domain.CheckpointInput) (domain.Checkpoint, error)
	RemoveCheckpoint(ctx context.Context, id string) bool
	ListCheckpoints() []domain.Checkpoint
	Proximities(p domain.Position) []engine.Proximity
	SubmitPosition(ctx context.Context, p domain.Position) error
	Stop(ctx context.Context, actor *domain.Actor) bool
	Snooze(ctx context.Context, minutes int, actor *domain.Actor) (time.Time, bool)
	ClearSnooze(ctx context.Context, actor *domain.Actor) bool
	Status() domain.Status
	SubscribeAll(h engine.Handler) engine.SubscriptionID
	Unsubscribe(id engine.SubscriptionID) bool
}

// DefaultWatchBuffer is how many events a watcher may lag behind before it is dropped.
const DefaultWatchBuffer = 64

// Server implements AlarmServiceServer on top of an Engine.
type Server struct {
	// engine provides the alarm operations.
	engine Engine
	// watchBuffer is the per-stream event buffer.
	watchBuffer int
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithWatchBuffer sets the per-stream event buffer.
func WithWatchBuffer(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.watchBuffer = n
		}
	}
}

// NewServer wires the provided engine into a gRPC handler.
func NewServer(engine Engine, opts ...ServerOption) *Server {
	s := &Server{
		engine:      engine,
		watchBuffer: DefaultWatchBuffer,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

var errRequestRequired = status.Error(codes.InvalidArgument, "request is required")

// AddCheckpoint validates and stores a new checkpoint.
func (s *Server) AddCheckpoint(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, errRequestRequired
	}

	in, err := domain.CheckpointInputFromPayload(req.AsMap())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	checkpoint, err := s.engine.AddCheckpoint(ctx, in)
	if err != nil {
		return nil, statusFromError(err)
	}

	return toStruct(checkpoint.Payload())
}

// RemoveCheckpoint deletes a checkpoint by id.
func (s *Server) RemoveCheckpoint(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := req.GetFields()["id"].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	removed := s.engine.RemoveCheckpoint(ctx, id)

	return toStruct(map[string]any{"removed": removed})
}

// ListCheckpoints returns every checkpoint in creation order. When the
// request carries a from position, each item also reports how far it is.
func (s *Server) ListCheckpoints(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	from := req.GetFields()["from"].GetStructValue()
	if from == nil {
		var (
			checkpoints = s.engine.ListCheckpoints()
			items       = make([]any, 0, len(checkpoints))
		)

		for i := range checkpoints {
			items = append(items, checkpoints[i].Payload())
		}

		return toStruct(map[string]any{"checkpoints": items})
	}

	position, err := domain.PositionFromPayload(from.AsMap())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "from: "+err.Error())
	}

	if err = position.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, "from: "+err.Error())
	}

	var (
		proximities = s.engine.Proximities(position)
		items       = make([]any, 0, len(proximities))
	)

	for _, p := range proximities {
		item := p.Checkpoint.Payload()
		item["distance_meters"] = p.DistanceMeters
		item["remaining_meters"] = p.RemainingMeters
		item["inside"] = p.Inside

		items = append(items, item)
	}

	return toStruct(map[string]any{"checkpoints": items})
}

// SubmitPosition hands a remote sample to the engine.
func (s *Server) SubmitPosition(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if req == nil {
		return nil, errRequestRequired
	}

	position, err := domain.PositionFromPayload(req.AsMap())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = position.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.engine.SubmitPosition(ctx, position); err != nil {
		return nil, statusFromError(err)
	}

	return new(emptypb.Empty), nil
}

// Stop silences the sounding alarm and consumes its checkpoint.
func (s *Server) Stop(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromRequest(req)
	if err != nil {
		return nil, err
	}

	applied := s.engine.Stop(ctx, actor)

	return s.commandResult(applied, nil)
}

// Snooze silences the sounding alarm for the requested minutes.
func (s *Server) Snooze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromRequest(req)
	if err != nil {
		return nil, err
	}

	minutes := req.GetFields()["minutes"].GetNumberValue()
	if math.IsNaN(minutes) || minutes > float64(engine.MaxSnoozeMinutes) {
		return nil, status.Error(codes.InvalidArgument, "minutes out of range")
	}

	// Non-positive minutes select the engine default.
	minutes = math.Max(minutes, 0)

	until, applied := s.engine.Snooze(ctx, int(minutes), actor)

	extra := map[string]any{}
	if applied {
		extra["snoozed_until"] = until.UTC().Format(domain.TimeLayout)
	}

	return s.commandResult(applied, extra)
}

// ClearSnooze ends an active snooze.
func (s *Server) ClearSnooze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromRequest(req)
	if err != nil {
		return nil, err
	}

	applied := s.engine.ClearSnooze(ctx, actor)

	return s.commandResult(applied, nil)
}

// GetStatus returns the current alarm state.
func (s *Server) GetStatus(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	current := s.engine.Status()

	return toStruct(current.Payload())
}

// WatchEvents streams engine events. A watcher that falls more than the
// buffer behind is disconnected with ResourceExhausted instead of slowing
// the engine down.
func (s *Server) WatchEvents(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	var (
		ctx      = logger.WithName(stream.Context(), "watch")
		events   = make(chan domain.Event, s.watchBuffer)
		overflow = make(chan struct{})
		once     sync.Once
	)

	id := s.engine.SubscribeAll(func(e domain.Event) {
		select {
		case events <- e:
		default:
			once.Do(func() { close(overflow) })
		}
	})
	defer s.engine.Unsubscribe(id)

	// Headers tell the client the subscription is in place.
	if err := stream.SendHeader(metadata.MD{}); err != nil {
		return err
	}

	logger.Debug(ctx, "Event watcher attached")

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "Event watcher detached")

			return nil
		case <-overflow:
			logger.Warn(ctx, "Event watcher dropped, it fell behind")

			return status.Error(codes.ResourceExhausted, "event watcher fell behind")
		case e := <-events:
			message, err := toStruct(domain.EventPayload(e))
			if err != nil {
				return err
			}

			if err = stream.Send(message); err != nil {
				return err
			}
		}
	}
}

// commandResult builds {applied, status, ...extra}.
func (s *Server) commandResult(applied bool, extra map[string]any) (*structpb.Struct, error) {
	current := s.engine.Status()

	result := map[string]any{
		"applied": applied,
		"status":  current.Payload(),
	}

	for key, value := range extra {
		result[key] = value
	}

	return toStruct(result)
}

func actorFromRequest(req *structpb.Struct) (*domain.Actor, error) {
	if req == nil {
		return nil, errRequestRequired
	}

	fields := req.GetFields()["actor"].GetStructValue()
	if fields == nil {
		return nil, status.Error(codes.InvalidArgument, "actor is required")
	}

	return domain.ActorFromPayload(fields.AsMap()), nil
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	result, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}

	return result, nil
}

// statusFromError maps engine errors to gRPC status codes.
func statusFromError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCheckpoint), errors.Is(err, domain.ErrInvalidPosition):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrDuplicateID):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, engine.ErrStopped):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
