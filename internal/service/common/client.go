//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	grpcapi "github.com/oshokin/geoalarm/internal/api/grpc/alarm"
	"github.com/oshokin/geoalarm/internal/config"
	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/engine"
)

// Client wraps the gRPC AlarmService client with domain-typed helpers.
type Client struct {
	// conn is the underlying gRPC connection to the geoalarm daemon.
	conn *grpc.ClientConn
	// api is the raw AlarmService client.
	api *grpcapi.AlarmServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// dialOptions are appended to the defaults when connecting.
	dialOptions []grpc.DialOption
}

// CommandResult is the outcome of Stop, Snooze and ClearSnooze.
type CommandResult struct {
	// Applied is false when the command was a no-op.
	Applied bool
	// SnoozedUntil is set by an applied Snooze.
	SnoozedUntil time.Time
	// Status is the alarm state right after the command.
	Status domain.Status
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithDialOptions adds gRPC dial options such as a user agent or a custom dialer.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errActorRequired is returned when an actor is not provided but is required for the operation.
	errActorRequired = errors.New("actor must be provided")
)

// Dial prepares a gRPC connection to the geoalarm daemon.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, client.dialOptions...)

	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial geoalarm server: %w", err)
	}

	client.conn = conn
	client.api = grpcapi.NewAlarmServiceClient(conn)

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// AddCheckpoint creates a checkpoint. An empty id lets the daemon pick one.
func (c *Client) AddCheckpoint(ctx context.Context, in domain.CheckpointInput) (domain.Checkpoint, error) {
	request, err := structpb.NewStruct(map[string]any{
		"id":            in.ID,
		"latitude":      in.Latitude,
		"longitude":     in.Longitude,
		"radius_meters": in.RadiusMeters,
		"label":         in.Label,
	})
	if err != nil {
		return domain.Checkpoint{}, fmt.Errorf("encode checkpoint: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.AddCheckpoint(callCtx, request)
	if err != nil {
		return domain.Checkpoint{}, fmt.Errorf("add checkpoint: %w", err)
	}

	return domain.CheckpointFromPayload(response.AsMap())
}

// RemoveCheckpoint deletes a checkpoint and reports whether it existed.
func (c *Client) RemoveCheckpoint(ctx context.Context, id string) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request := &structpb.Struct{Fields: map[string]*structpb.Value{
		"id": structpb.NewStringValue(id),
	}}

	response, err := c.api.RemoveCheckpoint(callCtx, request)
	if err != nil {
		return false, fmt.Errorf("remove checkpoint: %w", err)
	}

	return response.GetFields()["removed"].GetBoolValue(), nil
}

// ListCheckpoints returns every checkpoint in creation order.
func (c *Client) ListCheckpoints(ctx context.Context) ([]domain.Checkpoint, error) {
	values, err := c.listCheckpoints(ctx, new(structpb.Struct))
	if err != nil {
		return nil, err
	}

	result := make([]domain.Checkpoint, 0, len(values))

	for _, value := range values {
		checkpoint, err := domain.CheckpointFromPayload(value.GetStructValue().AsMap())
		if err != nil {
			return nil, fmt.Errorf("decode checkpoint: %w", err)
		}

		result = append(result, checkpoint)
	}

	return result, nil
}

// ListCheckpointsFrom returns every checkpoint in creation order together
// with its distance from the given position.
func (c *Client) ListCheckpointsFrom(ctx context.Context, from domain.Position) ([]engine.Proximity, error) {
	request, err := structpb.NewStruct(map[string]any{
		"from": map[string]any{
			"latitude":  from.Latitude,
			"longitude": from.Longitude,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode reference position: %w", err)
	}

	values, err := c.listCheckpoints(ctx, request)
	if err != nil {
		return nil, err
	}

	result := make([]engine.Proximity, 0, len(values))

	for _, value := range values {
		fields := value.GetStructValue().GetFields()

		checkpoint, err := domain.CheckpointFromPayload(value.GetStructValue().AsMap())
		if err != nil {
			return nil, fmt.Errorf("decode checkpoint: %w", err)
		}

		result = append(result, engine.Proximity{
			Checkpoint:      checkpoint,
			DistanceMeters:  fields["distance_meters"].GetNumberValue(),
			RemainingMeters: fields["remaining_meters"].GetNumberValue(),
			Inside:          fields["inside"].GetBoolValue(),
		})
	}

	return result, nil
}

func (c *Client) listCheckpoints(ctx context.Context, request *structpb.Struct) ([]*structpb.Value, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.ListCheckpoints(callCtx, request)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	return response.GetFields()["checkpoints"].GetListValue().GetValues(), nil
}

// SubmitPosition pushes a position sample to the daemon.
func (c *Client) SubmitPosition(ctx context.Context, p domain.Position) error {
	request, err := structpb.NewStruct(p.Payload())
	if err != nil {
		return fmt.Errorf("encode position: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err = c.api.SubmitPosition(callCtx, request); err != nil {
		return fmt.Errorf("submit position: %w", err)
	}

	return nil
}

// Stop silences the sounding alarm and consumes its checkpoint.
func (c *Client) Stop(ctx context.Context, actor *domain.Actor) (*CommandResult, error) {
	return c.command(ctx, "stop", actor, nil, c.api.Stop)
}

// Snooze silences the sounding alarm for minutes; zero asks for the daemon's default.
func (c *Client) Snooze(ctx context.Context, minutes int, actor *domain.Actor) (*CommandResult, error) {
	return c.command(ctx, "snooze", actor, map[string]any{"minutes": minutes}, c.api.Snooze)
}

// ClearSnooze ends an active snooze.
func (c *Client) ClearSnooze(ctx context.Context, actor *domain.Actor) (*CommandResult, error) {
	return c.command(ctx, "clear snooze", actor, nil, c.api.ClearSnooze)
}

// Status retrieves the current alarm state.
func (c *Client) Status(ctx context.Context) (domain.Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.GetStatus(callCtx, new(emptypb.Empty))
	if err != nil {
		return domain.Status{}, fmt.Errorf("get status: %w", err)
	}

	return domain.StatusFromPayload(response.AsMap())
}

// WatchEvents calls fn for every event until ctx is canceled, the stream
// ends or fn returns an error. It is not bound by the call timeout.
func (c *Client) WatchEvents(ctx context.Context, fn func(domain.Event) error) error {
	stream, err := c.api.WatchEvents(ctx, new(emptypb.Empty))
	if err != nil {
		return fmt.Errorf("watch events: %w", err)
	}

	for {
		message, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("receive event: %w", err)
		}

		event, err := domain.EventFromPayload(message.AsMap())
		if err != nil {
			return fmt.Errorf("decode event: %w", err)
		}

		if err = fn(event); err != nil {
			return err
		}
	}
}

type commandCall func(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)

func (c *Client) command(
	ctx context.Context,
	name string,
	actor *domain.Actor,
	fields map[string]any,
	call commandCall,
) (*CommandResult, error) {
	if actor == nil {
		return nil, errActorRequired
	}

	payload := map[string]any{"actor": actor.Payload()}
	for key, value := range fields {
		payload[key] = value
	}

	request, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", name, err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := call(callCtx, request)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	decoded := response.AsMap()

	current, err := domain.StatusFromPayload(asObject(decoded["status"]))
	if err != nil {
		return nil, fmt.Errorf("decode %s status: %w", name, err)
	}

	result := &CommandResult{
		Applied: response.GetFields()["applied"].GetBoolValue(),
		Status:  current,
	}

	if until := response.GetFields()["snoozed_until"].GetStringValue(); until != "" {
		if result.SnoozedUntil, err = time.Parse(domain.TimeLayout, until); err != nil {
			return nil, fmt.Errorf("decode snoozed_until: %w", err)
		}
	}

	return result, nil
}

func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)

	return m
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
