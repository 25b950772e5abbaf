package sweep

import "github.com/labstack-instruments/sweepengine/internal/instrument"

// ControlledParam pairs a Parameter with the trajectory it is driven
// through for the lifetime of a sweep.
type ControlledParam struct {
	Param      *instrument.Parameter
	Trajectory Trajectory
}

// RampTarget is one (parameter, value) pair that ramp-to-start must
// converge on before a sweep may enter RUNNING.
type RampTarget struct {
	Param  *instrument.Parameter
	Target float64
}

// Kind is the capability-trait each sweep variant implements: time-only,
// one-axis, two-axis composed, simultaneous multi-axis, listening, and
// the leakage-limiter/magnet-coupled specializations. Base delegates
// every kind-specific decision to it instead of subclassing, the same
// way teacher's SweepBackend is a narrow interface that Runner drives
// without caring which concrete backend it holds.
type Kind interface {
	// KindName identifies the kind for metadata export (e.g. "one_axis").
	KindName() string

	// Controlled returns every parameter this kind drives, in the order
	// setpoints are produced for each step.
	Controlled() []ControlledParam

	// TotalPoints returns the number of points a single traversal will
	// produce, or -1 if the kind is unbounded (time-only, listening,
	// continual trajectories).
	TotalPoints() int

	// Validate checks kind-specific construction invariants beyond each
	// Trajectory's own Validate (e.g. simultaneous axis count agreement).
	Validate() error

	// Step advances the sweep by one unit in direction dir (+1 or -1)
	// and returns the setpoints to command. atBoundary is true when this
	// step reached (or would overshoot) a trajectory endpoint; err is
	// non-nil only for a kind-specific failure unrelated to bounds.
	Step(dir int) (setpoints []float64, atBoundary bool, err error)

	// Flippable reports whether flip_direction() is meaningful for this
	// kind (time-only and listening sweeps have no spatial direction).
	Flippable() bool

	// Flip reverses the trajectory/trajectories this kind drives.
	Flip()

	// RampTargets returns the (parameter, value) pairs ramp-to-start
	// must converge on before the first step may run.
	RampTargets() []RampTarget

	// Attributes returns kind-specific fields for metadata export, keyed
	// by name (e.g. one-axis trajectory bounds, listening thresholds).
	Attributes() map[string]any
}
