package sweep

// TimeOnly is a Kind that drives no parameter at all: it emits one
// point per tick purely to sample whatever follow parameter the Sweep
// was constructed with, at a fixed cadence. It has no trajectory, no
// direction, and no boundary — every step is interior.
type TimeOnly struct{}

// NewTimeOnly constructs a time-only sweep. Attach a monitored channel
// via sweep.WithFollowParameter, not through this Kind.
func NewTimeOnly() *TimeOnly { return &TimeOnly{} }

func (k *TimeOnly) KindName() string { return "time_only" }

func (k *TimeOnly) Controlled() []ControlledParam { return nil }

func (k *TimeOnly) TotalPoints() int { return -1 }

func (k *TimeOnly) Validate() error { return nil }

func (k *TimeOnly) Step(int) ([]float64, bool, error) { return nil, false, nil }

// MonitorOnly marks this Kind as having no commanded setpoints, so any
// follow-parameter reading the Runner attaches goes to Point.Values.
func (k *TimeOnly) MonitorOnly() bool { return true }

func (k *TimeOnly) Flippable() bool { return false }

func (k *TimeOnly) Flip() {}

func (k *TimeOnly) RampTargets() []RampTarget { return nil }

func (k *TimeOnly) Attributes() map[string]any { return nil }
