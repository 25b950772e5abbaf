package sweep

import (
	"fmt"
	"time"

	"github.com/labstack-instruments/sweepengine/internal/instrument"
	"github.com/labstack-instruments/sweepengine/internal/timeutil"
)

// MagnetCoupled wraps a one-axis sweep whose primary parameter is
// mechanically/electrically coupled to a second parameter that must be
// driven to a value derived from the primary's current setpoint at
// every step (e.g. a compensation coil tracking a sweeping magnet). The
// coupled parameter typically ramps on its own hardware clock after
// being commanded, so each step first polls it for "at setpoint" before
// computing the next one.
type MagnetCoupled struct {
	inner     *OneAxis
	coupled   *instrument.Parameter
	couple    func(primary float64) float64
	tolerance float64
	maxWait   time.Duration
	clock     timeutil.Clock

	pendingTarget float64
	havePending   bool
}

// NewMagnetCoupled wraps inner so that coupled is driven to couple(v)
// whenever the primary axis is set to v, and so that every step after
// the first blocks until coupled reads back within tolerance of its
// previous target or maxWait elapses.
func NewMagnetCoupled(inner *OneAxis, coupled *instrument.Parameter, couple func(float64) float64, tolerance float64, maxWait time.Duration) *MagnetCoupled {
	return &MagnetCoupled{
		inner:     inner,
		coupled:   coupled,
		couple:    couple,
		tolerance: tolerance,
		maxWait:   maxWait,
		clock:     timeutil.RealClock{},
	}
}

func (k *MagnetCoupled) KindName() string { return "magnet_coupled" }

func (k *MagnetCoupled) Controlled() []ControlledParam {
	primary := k.inner.Controlled()
	return append(primary, ControlledParam{Param: k.coupled, Trajectory: Trajectory{}})
}

func (k *MagnetCoupled) TotalPoints() int { return k.inner.TotalPoints() }

func (k *MagnetCoupled) Validate() error {
	if k.coupled == nil || k.couple == nil {
		return fmt.Errorf("magnet_coupled sweep requires a coupled parameter and coupling function")
	}
	if !k.coupled.Settable() {
		return fmt.Errorf("magnet_coupled coupled parameter %s is not settable", k.coupled.Identity())
	}
	if k.tolerance <= 0 {
		return fmt.Errorf("magnet_coupled sweep requires a positive settle tolerance")
	}
	if k.maxWait <= 0 {
		return fmt.Errorf("magnet_coupled sweep requires a positive settle timeout")
	}
	return k.inner.Validate()
}

// Step waits for the coupled parameter to settle at the target set on
// the previous call, then advances the primary trajectory and appends
// the derived coupled setpoint. Both setpoints are returned so the
// Runner commands both through the normal Controlled()-indexed SafeSet
// loop; the settle wait only ever looks backward at what was already
// commanded, never at the value this call is about to produce.
func (k *MagnetCoupled) Step(dir int) ([]float64, bool, error) {
	if k.havePending {
		if err := k.waitAtSetpoint(k.pendingTarget); err != nil {
			return nil, false, err
		}
	}

	setpoints, atBoundary, err := k.inner.Step(dir)
	if err != nil {
		return nil, false, err
	}
	coupledVal := k.couple(setpoints[0])
	k.pendingTarget = coupledVal
	k.havePending = true
	return append(setpoints, coupledVal), atBoundary, nil
}

// waitAtSetpoint polls the coupled parameter until it reads within
// tolerance of target, the same tolerance-and-poll idiom rampToStart
// uses, or returns an error once maxWait has elapsed.
func (k *MagnetCoupled) waitAtSetpoint(target float64) error {
	deadline := k.clock.Now().Add(k.maxWait)
	for {
		actual, err := instrument.SafeGet(k.coupled)
		if err == nil && absF(actual-target) <= k.tolerance {
			return nil
		}
		if k.clock.Now().After(deadline) {
			return fmt.Errorf("magnet_coupled: coupled parameter %s did not settle at %.6g within %v", k.coupled.Identity(), target, k.maxWait)
		}
		k.clock.Sleep(rampPollInterval)
	}
}

func (k *MagnetCoupled) Flippable() bool { return k.inner.Flippable() }

func (k *MagnetCoupled) Flip() { k.inner.Flip() }

func (k *MagnetCoupled) TrajectoryMode() Mode { return k.inner.TrajectoryMode() }

func (k *MagnetCoupled) RampTargets() []RampTarget {
	targets := k.inner.RampTargets()
	if len(targets) > 0 {
		targets = append(targets, RampTarget{Param: k.coupled, Target: k.couple(targets[0].Target)})
	}
	return targets
}

func (k *MagnetCoupled) Attributes() map[string]any {
	attrs := k.inner.Attributes()
	attrs["coupled_parameter"] = k.coupled.Identity()
	attrs["settle_tolerance"] = k.tolerance
	attrs["settle_max_wait_ms"] = k.maxWait.Milliseconds()
	return attrs
}
