package sweep

import (
	"fmt"

	"github.com/labstack-instruments/sweepengine/internal/instrument"
)

// LeakageLimiter wraps a one-axis sweep with a monitored leakage-current
// parameter: each time the monitored value exceeds limit, the sweep
// trips — it reverses direction in place, the same as a bidirectional
// trajectory end, instead of pushing the setpoint further out of range.
// After maxFlips trips it gives up and finishes instead of reversing
// again, trading two-sided containment for a bounded number of retries.
type LeakageLimiter struct {
	inner    *OneAxis
	monitor  *instrument.Parameter
	limit    float64
	maxFlips int

	flips        int
	boundaryMode Mode
}

// NewLeakageLimiter wraps inner with a leakage guard against monitor.
// maxFlips bounds how many times the sweep may reverse before it is
// declared done rather than tripping again.
func NewLeakageLimiter(inner *OneAxis, monitor *instrument.Parameter, limit float64, maxFlips int) *LeakageLimiter {
	return &LeakageLimiter{
		inner:        inner,
		monitor:      monitor,
		limit:        limit,
		maxFlips:     maxFlips,
		boundaryMode: inner.TrajectoryMode(),
	}
}

func (k *LeakageLimiter) KindName() string { return "leakage_limiter" }

func (k *LeakageLimiter) Controlled() []ControlledParam { return k.inner.Controlled() }

func (k *LeakageLimiter) TotalPoints() int { return -1 }

func (k *LeakageLimiter) Validate() error {
	if k.monitor == nil {
		return fmt.Errorf("leakage_limiter sweep requires a monitor parameter")
	}
	if k.maxFlips <= 0 {
		return fmt.Errorf("leakage_limiter sweep requires max_flips > 0")
	}
	return k.inner.Validate()
}

// Step samples the monitor before committing to inner's setpoint. A trip
// reports the current setpoint again with atBoundary set, so the Runner's
// usual boundary handling flips direction for us; once flips reaches
// maxFlips the same boundary is instead reported as one-shot, so the
// Runner finishes the sweep.
func (k *LeakageLimiter) Step(dir int) ([]float64, bool, error) {
	v, err := instrument.SafeGet(k.monitor)
	if err != nil {
		return nil, false, err
	}
	if v > k.limit {
		k.flips++
		setpoints, _, err := k.inner.Step(0)
		if err != nil {
			return nil, false, err
		}
		if k.flips >= k.maxFlips {
			k.boundaryMode = OneShot
		} else {
			k.boundaryMode = Bidirectional
		}
		return setpoints, true, nil
	}
	setpoints, atBoundary, err := k.inner.Step(dir)
	if err != nil {
		return nil, false, err
	}
	if atBoundary {
		k.boundaryMode = k.inner.TrajectoryMode()
	}
	return setpoints, atBoundary, nil
}

func (k *LeakageLimiter) Flippable() bool { return true }

func (k *LeakageLimiter) Flip() { k.inner.Flip() }

// TrajectoryMode reports the mode that applies to the boundary Step just
// produced: bidirectional while trips remain, one_shot once flips has
// reached maxFlips.
func (k *LeakageLimiter) TrajectoryMode() Mode { return k.boundaryMode }

func (k *LeakageLimiter) RampTargets() []RampTarget { return k.inner.RampTargets() }

func (k *LeakageLimiter) Attributes() map[string]any {
	attrs := k.inner.Attributes()
	attrs["leakage_monitor_parameter"] = k.monitor.Identity()
	attrs["leakage_limit"] = k.limit
	attrs["max_flips"] = k.maxFlips
	attrs["flips"] = k.flips
	return attrs
}
