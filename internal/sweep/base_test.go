package sweep

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/labstack-instruments/sweepengine/internal/instrument"
	"github.com/labstack-instruments/sweepengine/internal/timeutil"
)

type fakePersister struct {
	mu       sync.Mutex
	begun    []string
	appended []Point
	finished []State
}

func (f *fakePersister) BeginMeasurement(_ context.Context, sweepID string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begun = append(f.begun, sweepID)
	return nil
}

func (f *fakePersister) Append(_ context.Context, _ string, p Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, p)
	return nil
}

func (f *fakePersister) Finish(_ context.Context, _ string, state State, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, state)
	return nil
}

type fakeRegistry struct {
	mu       sync.Mutex
	active   *Sweep
	refusals int
}

func (r *fakeRegistry) TryActivate(s *Sweep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil && !r.active.isRelatedTo(s) {
		r.refusals++
		return &ConcurrencyError{Message: "an unrelated sweep is already active"}
	}
	r.active = s
	return nil
}

func (r *fakeRegistry) Release(s *Sweep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == s {
		r.active = nil
	}
}

func TestSweepLifecycleRunsToCompletion(t *testing.T) {
	instrument.SetRetryDelay(time.Millisecond)
	p := newTestParameter(t, 0)
	k := NewOneAxis(p, Trajectory{Start: 0, Stop: 2, Step: 1})
	persister := &fakePersister{}

	s, err := New(k, WithInterDelay(10*time.Millisecond), WithPersister(persister))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var points []Point
	for pt := range s.DataChan() {
		points = append(points, pt)
	}
	<-s.Done()

	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}
	if s.Progress().State != StateDone {
		t.Fatalf("final state = %v, want DONE", s.Progress().State)
	}
	if len(persister.finished) != 1 || persister.finished[0] != StateDone {
		t.Fatalf("persister.finished = %v, want [DONE]", persister.finished)
	}
	if len(persister.appended) != 3 {
		t.Fatalf("persister recorded %d points, want 3", len(persister.appended))
	}
}

func TestSweepKillStopsImmediately(t *testing.T) {
	instrument.SetRetryDelay(time.Millisecond)
	p := newTestParameter(t, 0)
	k := NewOneAxis(p, Trajectory{Start: 0, Stop: 1000, Step: 1})

	s, err := New(k, WithInterDelay(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	go func() {
		<-s.DataChan()
		s.Kill()
	}()

	for range s.DataChan() {
	}
	<-s.Done()

	if s.Progress().State != StateKilled {
		t.Fatalf("final state = %v, want KILLED", s.Progress().State)
	}
}

func TestSweepRefusedByUnrelatedActiveSweep(t *testing.T) {
	instrument.SetRetryDelay(time.Millisecond)
	registry := &fakeRegistry{}

	p1 := newTestParameter(t, 0)
	k1 := NewOneAxis(p1, Trajectory{Start: 0, Stop: 100, Step: 1})
	s1, err := New(k1, WithInterDelay(20*time.Millisecond), WithRegistry(registry))
	if err != nil {
		t.Fatalf("New s1: %v", err)
	}
	if err := s1.Start(context.Background()); err != nil {
		t.Fatalf("Start s1: %v", err)
	}
	defer s1.Kill()

	p2 := newTestParameter(t, 0)
	k2 := NewOneAxis(p2, Trajectory{Start: 0, Stop: 10, Step: 1})
	s2, err := New(k2, WithRegistry(registry))
	if err != nil {
		t.Fatalf("New s2: %v", err)
	}
	if err := s2.Start(context.Background()); err == nil {
		t.Fatalf("expected s2.Start to be refused")
	}
}

func TestSweepRelatedChildNotRefused(t *testing.T) {
	instrument.SetRetryDelay(time.Millisecond)
	registry := &fakeRegistry{}

	p1 := newTestParameter(t, 0)
	k1 := NewOneAxis(p1, Trajectory{Start: 0, Stop: 100, Step: 1})
	parent, err := New(k1, WithInterDelay(20*time.Millisecond), WithRegistry(registry))
	if err != nil {
		t.Fatalf("New parent: %v", err)
	}
	if err := parent.Start(context.Background()); err != nil {
		t.Fatalf("Start parent: %v", err)
	}
	defer parent.Kill()

	p2 := instrument.NewParameter("bench", "child-voltage", "V", func() (float64, error) { return 0, nil },
		instrument.WithSet(func(float64) error { return nil }))
	k2 := NewOneAxis(p2, Trajectory{Start: 0, Stop: 1, Step: 1})
	child, err := New(k2, WithRegistry(registry), WithParent(parent))
	if err != nil {
		t.Fatalf("New child: %v", err)
	}
	if err := child.Start(context.Background()); err != nil {
		t.Fatalf("related child should not be refused: %v", err)
	}
	defer child.Kill()
}

func TestSweepUsesInjectedClockForPointTimestamps(t *testing.T) {
	p := newTestParameter(t, 0)
	interDelay := 10 * time.Millisecond
	clock := timeutil.NewMockClock(time.Unix(1000, 0))

	kind := NewOneAxis(p, Trajectory{Start: 0, Stop: 1, Step: 1, Mode: OneShot})
	s, err := New(kind, WithInterDelay(interDelay), WithClock(clock))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	first, ok := <-s.DataChan()
	if !ok {
		t.Fatal("expected a point before channel close")
	}
	if !first.Timestamp.Equal(clock.Now()) {
		t.Fatalf("point timestamp = %v, want %v", first.Timestamp, clock.Now())
	}

	// The Runner is now blocked on the injected clock's inter-step delay;
	// advance it manually rather than waiting on a real timer.
	clock.Advance(interDelay)

	second, ok := <-s.DataChan()
	if !ok {
		t.Fatal("expected a second point before channel close")
	}
	if !second.Timestamp.Equal(clock.Now()) {
		t.Fatalf("second point timestamp = %v, want %v", second.Timestamp, clock.Now())
	}

	<-s.Done()
	if got := s.Progress().State; got != StateDone {
		t.Fatalf("final state = %v, want StateDone", got)
	}
}
