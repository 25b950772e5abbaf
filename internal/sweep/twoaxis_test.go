package sweep

import "testing"

func TestTwoAxisForwardReturnLineBreakAndOuterAdvance(t *testing.T) {
	outer := newTestParameter(t, 0)
	inner := newCoupledTestParameter(t, 0)
	k := NewTwoAxis(outer, Trajectory{Start: 0, Stop: 1, Step: 1}, inner, Trajectory{Start: 0, Stop: 2, Step: 1}, 2)

	type tick struct {
		outerVal, innerVal float64
		boundary           bool
		lineBreak          bool
	}
	want := []tick{
		{0, 0, false, false},
		{0, 1, false, false},
		{0, 2, false, false}, // forward leg completes
		{0, 2, false, false}, // return leg, thinned: re-visits the boundary value
		{0, 0, false, true},  // return leg completes: line break, outer about to advance
		{1, 0, false, false},
		{1, 1, false, false},
		{1, 2, false, false},
		{1, 2, false, false},
		{1, 0, true, true}, // grid exhausted
	}

	for i, w := range want {
		setpoints, atBoundary, err := k.Step(1)
		if err != nil {
			t.Fatalf("tick %d: Step: %v", i, err)
		}
		if setpoints[0] != w.outerVal || setpoints[1] != w.innerVal {
			t.Fatalf("tick %d: setpoints = %v, want [%v %v]", i, setpoints, w.outerVal, w.innerVal)
		}
		if atBoundary != w.boundary {
			t.Fatalf("tick %d: atBoundary = %v, want %v", i, atBoundary, w.boundary)
		}
		if k.OuterBoundary() != w.lineBreak {
			t.Fatalf("tick %d: OuterBoundary = %v, want %v", i, k.OuterBoundary(), w.lineBreak)
		}
	}
}

func TestTwoAxisTotalPointsAccountsForThinnedReturn(t *testing.T) {
	outer := newTestParameter(t, 0)
	inner := newCoupledTestParameter(t, 0)
	k := NewTwoAxis(outer, Trajectory{Start: 0, Stop: 1, Step: 1}, inner, Trajectory{Start: 0, Stop: 2, Step: 1}, 2)

	if got, want := k.TotalPoints(), 10; got != want {
		t.Fatalf("TotalPoints = %d, want %d", got, want)
	}
}

func TestTwoAxisRejectsNonPositiveBackMultiplier(t *testing.T) {
	outer := newTestParameter(t, 0)
	inner := newCoupledTestParameter(t, 0)
	k := NewTwoAxis(outer, Trajectory{Start: 0, Stop: 1, Step: 1}, inner, Trajectory{Start: 0, Stop: 2, Step: 1}, 0)

	if err := k.Validate(); err == nil {
		t.Fatalf("expected an error for back_multiplier 0")
	}
}
