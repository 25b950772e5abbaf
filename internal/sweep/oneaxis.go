package sweep

import (
	"fmt"

	"github.com/labstack-instruments/sweepengine/internal/instrument"
)

// OneAxis drives a single parameter through one Trajectory.
type OneAxis struct {
	param      *instrument.Parameter
	trajectory Trajectory
	index      int
}

// NewOneAxis constructs a one-axis sweep over param following traj.
func NewOneAxis(param *instrument.Parameter, traj Trajectory) *OneAxis {
	return &OneAxis{param: param, trajectory: traj}
}

func (k *OneAxis) KindName() string { return "one_axis" }

func (k *OneAxis) Controlled() []ControlledParam {
	return []ControlledParam{{Param: k.param, Trajectory: k.trajectory}}
}

func (k *OneAxis) TotalPoints() int {
	if k.trajectory.Mode != OneShot {
		return -1
	}
	return k.trajectory.Count()
}

func (k *OneAxis) Validate() error {
	if k.param == nil {
		return fmt.Errorf("one_axis sweep requires a controlled parameter")
	}
	if !k.param.Settable() {
		return fmt.Errorf("one_axis sweep parameter %s is not settable", k.param.Identity())
	}
	return k.trajectory.Validate()
}

// Step returns the setpoint at the current index and advances it by dir
// (+1 or -1). atBoundary is true once the step just produced is the
// last index in that direction.
func (k *OneAxis) Step(dir int) ([]float64, bool, error) {
	n := k.trajectory.Count()
	if k.index < 0 {
		k.index = 0
	}
	if k.index > n-1 {
		k.index = n - 1
	}
	v := k.trajectory.ValueAt(k.index)

	atBoundary := false
	if dir >= 0 {
		atBoundary = k.index >= n-1
	} else {
		atBoundary = k.index <= 0
	}
	k.index += dir
	return []float64{v}, atBoundary, nil
}

func (k *OneAxis) Flippable() bool { return true }

func (k *OneAxis) Flip() {
	k.trajectory = k.trajectory.Flipped()
	k.index = 0
}

// TrajectoryMode exposes the one-axis Mode to the Runner's boundary
// handling (one_shot stops, bidirectional reverses, continual re-ramps).
func (k *OneAxis) TrajectoryMode() Mode { return k.trajectory.Mode }

func (k *OneAxis) RampTargets() []RampTarget {
	return []RampTarget{{Param: k.param, Target: k.trajectory.Start}}
}

func (k *OneAxis) Attributes() map[string]any {
	return map[string]any{
		"parameter": k.param.Identity(),
		"start":     k.trajectory.Start,
		"stop":      k.trajectory.Stop,
		"step":      k.trajectory.Step,
		"mode":      k.trajectory.Mode.String(),
	}
}
