package sweep

import (
	"fmt"

	"github.com/labstack-instruments/sweepengine/internal/instrument"
)

// Simultaneous drives N parameters in lockstep, each along its own
// Trajectory, advancing all of them by one index per step. Every
// trajectory must produce the same point Count — there is no notion of
// one axis finishing before another.
type Simultaneous struct {
	axes  []ControlledParam
	index int
}

// NewSimultaneous constructs a simultaneous multi-axis sweep. Every
// trajectory in axes must have an equal Count (validated by Validate,
// not at construction, so construction errors aggregate through New).
func NewSimultaneous(axes ...ControlledParam) *Simultaneous {
	return &Simultaneous{axes: axes}
}

func (k *Simultaneous) KindName() string { return "simultaneous" }

func (k *Simultaneous) Controlled() []ControlledParam { return k.axes }

func (k *Simultaneous) TotalPoints() int {
	if len(k.axes) == 0 {
		return 0
	}
	return k.axes[0].Trajectory.Count()
}

func (k *Simultaneous) Validate() error {
	if len(k.axes) < 2 {
		return fmt.Errorf("simultaneous sweep requires at least two axes")
	}
	n := k.axes[0].Trajectory.Count()
	for i, a := range k.axes {
		if a.Param == nil {
			return fmt.Errorf("simultaneous axis %d has no parameter", i)
		}
		if !a.Param.Settable() {
			return fmt.Errorf("simultaneous axis %d parameter %s is not settable", i, a.Param.Identity())
		}
		if err := a.Trajectory.Validate(); err != nil {
			return fmt.Errorf("simultaneous axis %d: %w", i, err)
		}
		if a.Trajectory.Count() != n {
			return fmt.Errorf("simultaneous axis %d has %d points, axis 0 has %d", i, a.Trajectory.Count(), n)
		}
		if a.Trajectory.Mode != k.axes[0].Trajectory.Mode {
			return fmt.Errorf("simultaneous axis %d mode %s disagrees with axis 0 mode %s", i, a.Trajectory.Mode, k.axes[0].Trajectory.Mode)
		}
	}
	return nil
}

func (k *Simultaneous) Step(dir int) ([]float64, bool, error) {
	n := k.TotalPoints()
	if k.index < 0 {
		k.index = 0
	}
	if k.index > n-1 {
		k.index = n - 1
	}
	setpoints := make([]float64, len(k.axes))
	for i, a := range k.axes {
		setpoints[i] = a.Trajectory.ValueAt(k.index)
	}
	atBoundary := false
	if dir >= 0 {
		atBoundary = k.index >= n-1
	} else {
		atBoundary = k.index <= 0
	}
	k.index += dir
	return setpoints, atBoundary, nil
}

func (k *Simultaneous) Flippable() bool { return true }

func (k *Simultaneous) Flip() {
	for i := range k.axes {
		k.axes[i].Trajectory = k.axes[i].Trajectory.Flipped()
	}
	k.index = 0
}

// TrajectoryMode exposes the shared axis Mode to the Runner's boundary
// handling. Validate enforces that every axis agrees on Mode, so axis 0
// is representative.
func (k *Simultaneous) TrajectoryMode() Mode {
	if len(k.axes) == 0 {
		return OneShot
	}
	return k.axes[0].Trajectory.Mode
}

func (k *Simultaneous) RampTargets() []RampTarget {
	targets := make([]RampTarget, len(k.axes))
	for i, a := range k.axes {
		targets[i] = RampTarget{Param: a.Param, Target: a.Trajectory.Start}
	}
	return targets
}

func (k *Simultaneous) Attributes() map[string]any {
	axes := make([]map[string]any, len(k.axes))
	for i, a := range k.axes {
		axes[i] = map[string]any{
			"parameter": a.Param.Identity(),
			"start":     a.Trajectory.Start,
			"stop":      a.Trajectory.Stop,
			"step":      a.Trajectory.Step,
		}
	}
	return map[string]any{"axes": axes}
}
