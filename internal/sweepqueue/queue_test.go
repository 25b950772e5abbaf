package sweepqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/labstack-instruments/sweepengine/internal/instrument"
	"github.com/labstack-instruments/sweepengine/internal/sweep"
)

func newQueueTestSweep(t *testing.T, stop float64) *sweep.Sweep {
	t.Helper()
	var v float64
	p := instrument.NewParameter("bench", "voltage", "V",
		func() (float64, error) { return v, nil },
		instrument.WithSet(func(nv float64) error { v = nv; return nil }))
	k := sweep.NewOneAxis(p, sweep.Trajectory{Start: 0, Stop: stop, Step: 1})
	s, err := sweep.New(k, sweep.WithInterDelay(time.Millisecond))
	if err != nil {
		t.Fatalf("sweep.New: %v", err)
	}
	return s
}

func TestQueueRunsEntriesInOrder(t *testing.T) {
	instrument.SetRetryDelay(time.Millisecond)
	var ranCallable bool

	q := New()
	q.Enqueue(
		Entry{Kind: EntrySweep, Sweep: newQueueTestSweep(t, 2), Label: "first"},
		Entry{Kind: EntryCallable, Label: "between", Callable: func(context.Context) error {
			ranCallable = true
			return nil
		}},
		Entry{Kind: EntrySweep, Sweep: newQueueTestSweep(t, 1), Label: "second"},
	)

	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ranCallable {
		t.Fatalf("callable entry did not run")
	}
	if q.Cursor() != 3 {
		t.Fatalf("cursor = %d, want 3", q.Cursor())
	}
	if q.State() != StateIdle {
		t.Fatalf("state = %v, want IDLE", q.State())
	}
}

func TestQueueStopHaltsBeforeNextEntry(t *testing.T) {
	instrument.SetRetryDelay(time.Millisecond)

	q := New()
	q.Enqueue(
		Entry{Kind: EntryCallable, Label: "first", Callable: func(context.Context) error {
			q.Stop()
			return nil
		}},
		Entry{Kind: EntrySweep, Sweep: newQueueTestSweep(t, 1), Label: "never runs"},
	)

	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if q.Cursor() != 1 {
		t.Fatalf("cursor = %d, want 1 (stop takes effect before the second entry)", q.Cursor())
	}
	if q.State() != StateIdle {
		t.Fatalf("state = %v, want IDLE", q.State())
	}
}

func TestQueueStopsOnEntryFailure(t *testing.T) {
	instrument.SetRetryDelay(time.Millisecond)
	wantErr := errors.New("boom")

	q := New()
	q.Enqueue(
		Entry{Kind: EntryCallable, Label: "fails", Callable: func(context.Context) error {
			return wantErr
		}},
		Entry{Kind: EntrySweep, Sweep: newQueueTestSweep(t, 1), Label: "never runs"},
	)

	err := q.Run(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if q.State() != StateError {
		t.Fatalf("state = %v, want ERROR", q.State())
	}
	if q.Cursor() != 0 {
		t.Fatalf("cursor = %d, want 0 (first entry failed)", q.Cursor())
	}
}
