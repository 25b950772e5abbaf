package sweep

import (
	"fmt"

	"github.com/labstack-instruments/sweepengine/internal/instrument"
)

// Listening drives no controlled parameter. Instead it samples a
// monitored parameter each step and compares it against the value it
// last emitted (not the value it last sampled — two consecutive reads
// that each differ slightly from the true previous emission should not
// both be suppressed) using Threshold; a step is only emitted as a
// change when the difference exceeds Threshold.
type Listening struct {
	monitor   *instrument.Parameter
	threshold float64

	lastEmitted  float64
	haveLastEmit bool
}

// NewListening constructs a listening sweep over monitor with the given
// change threshold.
func NewListening(monitor *instrument.Parameter, threshold float64) *Listening {
	return &Listening{monitor: monitor, threshold: threshold}
}

func (k *Listening) KindName() string { return "listening" }

func (k *Listening) Controlled() []ControlledParam { return nil }

func (k *Listening) TotalPoints() int { return -1 }

func (k *Listening) Validate() error {
	if k.monitor == nil {
		return fmt.Errorf("listening sweep requires a monitor parameter")
	}
	if k.threshold < 0 {
		return fmt.Errorf("listening sweep threshold must not be negative")
	}
	return nil
}

// Step samples the monitor parameter. It never reports atBoundary — a
// listening sweep runs until explicitly stopped. When the sampled value
// has not moved by more than Threshold since the last value this Kind
// actually emitted, Step returns errSkipPoint and the Runner emits
// nothing for this tick.
func (k *Listening) Step(int) ([]float64, bool, error) {
	v, err := instrument.SafeGet(k.monitor)
	if err != nil {
		return nil, false, err
	}
	if k.haveLastEmit && absF(v-k.lastEmitted) <= k.threshold {
		return nil, false, errSkipPoint
	}
	k.lastEmitted = v
	k.haveLastEmit = true
	return []float64{v}, false, nil
}

// MonitorOnly marks this Kind's Step output as sampled values rather
// than commanded setpoints, so the Runner records them in Point.Values.
func (k *Listening) MonitorOnly() bool { return true }

func (k *Listening) Flippable() bool { return false }

func (k *Listening) Flip() {}

func (k *Listening) RampTargets() []RampTarget { return nil }

func (k *Listening) Attributes() map[string]any {
	return map[string]any{
		"monitor_parameter": k.monitor.Identity(),
		"threshold":         k.threshold,
	}
}
