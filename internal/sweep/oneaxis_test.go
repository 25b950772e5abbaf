package sweep

import (
	"sync"
	"testing"

	"github.com/labstack-instruments/sweepengine/internal/instrument"
)

func newTestParameter(t *testing.T, initial float64) *instrument.Parameter {
	t.Helper()
	var mu sync.Mutex
	v := initial
	return instrument.NewParameter("bench", "voltage", "V",
		func() (float64, error) {
			mu.Lock()
			defer mu.Unlock()
			return v, nil
		},
		instrument.WithSet(func(nv float64) error {
			mu.Lock()
			defer mu.Unlock()
			v = nv
			return nil
		}),
	)
}

func TestOneAxisStepSequence(t *testing.T) {
	p := newTestParameter(t, 0)
	k := NewOneAxis(p, Trajectory{Start: 0, Stop: 4, Step: 2})
	if err := k.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	var got []float64
	dir := 1
	for {
		setpoints, atBoundary, err := k.Step(dir)
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		got = append(got, setpoints[0])
		if atBoundary {
			break
		}
	}

	want := []float64{0, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestOneAxisValidateRejectsUnsettable(t *testing.T) {
	p := instrument.NewParameter("bench", "readonly", "V", func() (float64, error) { return 0, nil })
	k := NewOneAxis(p, Trajectory{Start: 0, Stop: 1, Step: 1})
	if err := k.Validate(); err == nil {
		t.Fatalf("expected error for unsettable parameter")
	}
}

func TestOneAxisFlip(t *testing.T) {
	p := newTestParameter(t, 0)
	k := NewOneAxis(p, Trajectory{Start: 0, Stop: 4, Step: 2})
	k.Flip()
	setpoints, _, err := k.Step(1)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if setpoints[0] != 4 {
		t.Fatalf("after Flip, first setpoint = %v, want 4", setpoints[0])
	}
}
