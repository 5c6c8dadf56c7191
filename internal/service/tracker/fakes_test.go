package tracker

import (
	"context"
	"sync"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
)

type fakeSubmitter struct {
	positions []domain.Position
	err       error
	mu        sync.Mutex
}

func (s *fakeSubmitter) SubmitPosition(_ context.Context, p domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions = append(s.positions, p)

	return s.err
}

func (s *fakeSubmitter) submitted() []domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.Position(nil), s.positions...)
}

// scriptedLocator returns its results in order and repeats the last one.
type scriptedLocator struct {
	results []locateResult
	calls   int
	mu      sync.Mutex
}

type locateResult struct {
	position domain.Position
	err      error
}

func (l *scriptedLocator) Locate(context.Context) (domain.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := l.results[min(l.calls, len(l.results)-1)]
	l.calls++

	return r.position, r.err
}
