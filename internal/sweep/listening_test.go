package sweep

import (
	"errors"
	"testing"

	"github.com/labstack-instruments/sweepengine/internal/instrument"
)

func TestListeningSuppressesUnchangedReadings(t *testing.T) {
	values := []float64{1.0, 1.02, 1.5, 1.51}
	i := 0
	p := instrument.NewParameter("bench", "pressure", "Pa", func() (float64, error) {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v, nil
	})
	k := NewListening(p, 0.1)

	var emitted []float64
	for n := 0; n < len(values); n++ {
		setpoints, _, err := k.Step(0)
		if errors.Is(err, errSkipPoint) {
			continue
		}
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		emitted = append(emitted, setpoints[0])
	}

	want := []float64{1.0, 1.5}
	if len(emitted) != len(want) {
		t.Fatalf("emitted = %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted = %v, want %v", emitted, want)
		}
	}
}

func TestLeakageLimiterFlipsOnTripThenFinishes(t *testing.T) {
	p := newTestParameter(t, 0)
	mon := instrument.NewParameter("bench", "leakage", "A", func() (float64, error) { return 5, nil })
	inner := NewOneAxis(p, Trajectory{Start: 0, Stop: 10, Step: 1})
	k := NewLeakageLimiter(inner, mon, 1.0, 2)

	_, atBoundary, err := k.Step(1)
	if err != nil {
		t.Fatalf("first trip: unexpected error %v", err)
	}
	if !atBoundary {
		t.Fatalf("first trip: expected atBoundary")
	}
	if k.TrajectoryMode() != Bidirectional {
		t.Fatalf("first trip: mode = %v, want Bidirectional", k.TrajectoryMode())
	}
	k.Flip()

	_, atBoundary, err = k.Step(-1)
	if err != nil {
		t.Fatalf("second trip: unexpected error %v", err)
	}
	if !atBoundary {
		t.Fatalf("second trip: expected atBoundary")
	}
	if k.TrajectoryMode() != OneShot {
		t.Fatalf("second trip: mode = %v, want OneShot", k.TrajectoryMode())
	}
}
