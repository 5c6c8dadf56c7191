package engine

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/geo"
)

// home is the reference checkpoint used across engine tests.
var home = domain.CheckpointInput{
	ID:           "A",
	Latitude:     28.70,
	Longitude:    77.10,
	RadiusMeters: 500,
	Label:        "Home",
}

// northOf returns a position the given number of meters due north of lat/lon.
func northOf(lat, lon, meters float64) domain.Position {
	return domain.Position{
		Latitude:  lat + meters/geo.EarthRadiusMeters*180/math.Pi,
		Longitude: lon,
		Source:    domain.SourceForeground,
	}
}

// recorder collects every event published on a bus.
type recorder struct {
	events []domain.Event
	mu     sync.Mutex
}

func (r *recorder) handle(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
}

func (r *recorder) all() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.Event(nil), r.events...)
}

func (r *recorder) types() []domain.EventType {
	events := r.all()
	types := make([]domain.EventType, 0, len(events))

	for _, e := range events {
		types = append(types, e.Type())
	}

	return types
}

func (r *recorder) count(t domain.EventType) int {
	n := 0

	for _, e := range r.all() {
		if e.Type() == t {
			n++
		}
	}

	return n
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}

// newTestEngine builds an engine with a recorder subscribed to every event.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *recorder) {
	t.Helper()

	e, err := New(context.Background(), opts...)
	require.NoError(t, err)

	rec := new(recorder)
	e.SubscribeAll(rec.handle)

	return e, rec
}
