package sweep

import (
	"fmt"

	"github.com/labstack-instruments/sweepengine/internal/instrument"
)

type twoAxisLeg int

const (
	legForward twoAxisLeg = iota
	legReturn
)

// TwoAxis drives an outer parameter one step at a time, each step
// followed by a complete pass of an inner one-axis sweep that it owns
// and runs bidirectionally: forward across the inner trajectory (the
// data-bearing leg), then back to the inner start (the non-data leg,
// thinned by backMultiplier) before the outer parameter advances.
// Controlled() reports the outer parameter first, then the inner,
// matching the order setpoints are returned in from Step.
type TwoAxis struct {
	outerParam *instrument.Parameter
	outerTraj  Trajectory
	inner      *OneAxis

	innerTrajOriginal Trajectory
	backMultiplier    int

	outerIndex int
	leg        twoAxisLeg
	lineBreak  bool
}

// NewTwoAxis constructs a two-axis composed sweep: inner always runs
// bidirectionally (the innerTraj Mode is overridden), completing a
// forward-then-return pass for every outer index. backMultiplier
// thins the return leg, stepping the inner index by backMultiplier
// instead of one so the non-data direction samples fewer points and
// gets back to the inner start faster; a backMultiplier of 1 walks it
// at full resolution.
func NewTwoAxis(outerParam *instrument.Parameter, outerTraj Trajectory, innerParam *instrument.Parameter, innerTraj Trajectory, backMultiplier int) *TwoAxis {
	innerTraj.Mode = Bidirectional
	return &TwoAxis{
		outerParam:        outerParam,
		outerTraj:         outerTraj,
		inner:             NewOneAxis(innerParam, innerTraj),
		innerTrajOriginal: innerTraj,
		backMultiplier:    backMultiplier,
	}
}

func (k *TwoAxis) KindName() string { return "two_axis" }

func (k *TwoAxis) Controlled() []ControlledParam {
	inner := k.inner.Controlled()[0]
	return []ControlledParam{
		{Param: k.outerParam, Trajectory: k.outerTraj},
		{Param: inner.Param, Trajectory: k.innerTrajOriginal},
	}
}

// TotalPoints counts both legs of every outer index: the inner's full
// forward pass plus the thinned return pass.
func (k *TwoAxis) TotalPoints() int {
	innerN := k.innerTrajOriginal.Count()
	returnTicks := (innerN-1)/k.backMultiplier + 1
	return k.outerTraj.Count() * (innerN + returnTicks)
}

func (k *TwoAxis) Validate() error {
	if k.outerParam == nil || k.inner.param == nil {
		return fmt.Errorf("two_axis sweep requires both an outer and an inner parameter")
	}
	if !k.outerParam.Settable() || !k.inner.param.Settable() {
		return fmt.Errorf("two_axis sweep parameters must both be settable")
	}
	if err := k.outerTraj.Validate(); err != nil {
		return fmt.Errorf("outer trajectory: %w", err)
	}
	if err := k.innerTrajOriginal.Validate(); err != nil {
		return fmt.Errorf("inner trajectory: %w", err)
	}
	if k.backMultiplier < 1 {
		return fmt.Errorf("two_axis sweep requires back_multiplier >= 1")
	}
	return nil
}

// Step ignores dir: a two-axis composed sweep always advances forward
// through its outer trajectory (flip_direction is not supported, see
// Flippable) while driving its owned inner sweep bidirectionally.
// atBoundary is true only once the outer trajectory itself is
// exhausted; a completed inner pass instead sets lineBreak, which
// OuterBoundary reports to the Runner for both outer-delay selection
// and line-break emission.
func (k *TwoAxis) Step(int) ([]float64, bool, error) {
	k.lineBreak = false
	outerVal := k.outerTraj.ValueAt(k.outerIndex)

	switch k.leg {
	case legForward:
		innerVal, atBoundary, _ := k.inner.Step(1)
		if atBoundary {
			k.inner.Flip()
			k.leg = legReturn
		}
		return []float64{outerVal, innerVal[0]}, false, nil
	default: // legReturn
		innerVal, atBoundary, _ := k.inner.Step(k.backMultiplier)
		if !atBoundary {
			return []float64{outerVal, innerVal[0]}, false, nil
		}
		k.inner.Flip()
		k.leg = legForward
		k.outerIndex++
		k.lineBreak = true
		return []float64{outerVal, innerVal[0]}, k.outerIndex >= k.outerTraj.Count(), nil
	}
}

func (k *TwoAxis) Flippable() bool { return false }

func (k *TwoAxis) Flip() {}

func (k *TwoAxis) RampTargets() []RampTarget {
	return []RampTarget{
		{Param: k.outerParam, Target: k.outerTraj.Start},
		{Param: k.inner.param, Target: k.innerTrajOriginal.Start},
	}
}

// OuterBoundary reports whether the Step just completed finished an
// inner pass (forward leg plus thinned return leg), i.e. the outer
// parameter is about to advance. The Runner consults this, via an
// optional interface, both to apply OuterDelay instead of InterDelay
// and to emit a line-break marker between outer lines.
func (k *TwoAxis) OuterBoundary() bool {
	return k.lineBreak
}

func (k *TwoAxis) Attributes() map[string]any {
	return map[string]any{
		"outer_parameter": k.outerParam.Identity(),
		"outer_start":     k.outerTraj.Start,
		"outer_stop":      k.outerTraj.Stop,
		"outer_step":      k.outerTraj.Step,
		"inner_parameter": k.inner.param.Identity(),
		"inner_start":     k.innerTrajOriginal.Start,
		"inner_stop":      k.innerTrajOriginal.Stop,
		"inner_step":      k.innerTrajOriginal.Step,
		"back_multiplier": k.backMultiplier,
	}
}
