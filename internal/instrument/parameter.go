// Package instrument defines the Parameter Binding layer: a uniform
// read/get and write/set contract over instrument channels, plus the
// Station registry used to resolve parameter identities out of exported
// sweep metadata.
package instrument

import "fmt"

// GetFunc reads the current value of a parameter from its instrument.
type GetFunc func() (float64, error)

// SetFunc writes a new value to a parameter's instrument.
type SetFunc func(value float64) error

// Parameter is an external handle onto one instrument channel: a stable
// name, a unit, a get capability, and an optional set capability. Sweeps
// hold a non-owning reference — the instrument driver package owns the
// lifetime of the underlying transport.
type Parameter struct {
	instrument string
	name       string
	unit       string
	label      string
	minValue   float64
	maxValue   float64
	hasRange   bool

	get GetFunc
	set SetFunc
}

// Option configures optional Parameter metadata at construction.
type Option func(*Parameter)

// WithLabel sets a human-readable label distinct from the stable name.
func WithLabel(label string) Option {
	return func(p *Parameter) { p.label = label }
}

// WithRange records the instrument's documented operating range. It is
// advisory metadata only; Parameter Binding does not clamp values to it.
func WithRange(min, max float64) Option {
	return func(p *Parameter) {
		p.minValue = min
		p.maxValue = max
		p.hasRange = true
	}
}

// WithSet attaches a settable capability. Parameters without it are
// get-only (e.g. follow parameters that are never controlled).
func WithSet(set SetFunc) Option {
	return func(p *Parameter) { p.set = set }
}

// NewParameter constructs a Parameter bound to the given instrument
// identity, name, unit and get capability.
func NewParameter(instrumentName, name, unit string, get GetFunc, opts ...Option) *Parameter {
	p := &Parameter{
		instrument: instrumentName,
		name:       name,
		unit:       unit,
		label:      name,
		get:        get,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Identity returns the stable "<instrument>.<name>" identity used in
// metadata export/import and in the Active-Sweep Registry's relatedness
// bookkeeping.
func (p *Parameter) Identity() string {
	return fmt.Sprintf("%s.%s", p.instrument, p.name)
}

// Instrument returns the owning instrument's identity.
func (p *Parameter) Instrument() string { return p.instrument }

// Name returns the parameter's stable name.
func (p *Parameter) Name() string { return p.name }

// Unit returns the parameter's unit string.
func (p *Parameter) Unit() string { return p.unit }

// Label returns the human-readable label (defaults to Name).
func (p *Parameter) Label() string { return p.label }

// Range returns the documented operating range, if any.
func (p *Parameter) Range() (min, max float64, ok bool) {
	return p.minValue, p.maxValue, p.hasRange
}

// Settable reports whether this parameter accepts Set calls.
func (p *Parameter) Settable() bool { return p.set != nil }

// Get invokes the underlying get capability directly, with no retry.
// Sweep code should call SafeGet instead; Get exists for Parameter
// Binding's own retry wrapper and for tests.
func (p *Parameter) Get() (float64, error) {
	if p.get == nil {
		return 0, fmt.Errorf("parameter %s has no get capability", p.Identity())
	}
	return p.get()
}

// Set invokes the underlying set capability directly, with no retry —
// setting may have side effects, so Parameter Binding never retries a
// failed set. Sweep code should call SafeSet instead.
func (p *Parameter) Set(value float64) error {
	if p.set == nil {
		return fmt.Errorf("parameter %s is not settable", p.Identity())
	}
	return p.set(value)
}
