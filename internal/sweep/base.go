// Package sweep implements the Sweep Base, Sweep Kinds and Runner: the
// lifecycle state machine that drives one or more instrument.Parameter
// values through a trajectory, emitting Point tuples on a data channel
// while accepting control messages on a separate channel.
package sweep

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/labstack-instruments/sweepengine/internal/instrument"
	"github.com/labstack-instruments/sweepengine/internal/timeutil"
)

// Persister is the narrow slice of the Persistence Façade a Sweep needs:
// opening a measurement run and appending points to it. It is satisfied
// by *persistence.Context; Sweep depends on the interface so tests can
// supply an in-memory fake.
type Persister interface {
	BeginMeasurement(ctx context.Context, sweepID string, metadata []byte) error
	Append(ctx context.Context, sweepID string, p Point) error
	Finish(ctx context.Context, sweepID string, state State, errMessage string) error
}

// RelatedChecker is implemented by the Active-Sweep Registry. Sweep
// calls it at start() time instead of importing the registry package
// directly, avoiding an import cycle (registry needs to reference
// *Sweep for relatedness traversal).
type RelatedChecker interface {
	TryActivate(s *Sweep) error
	Release(s *Sweep)
}

const (
	defaultMinDelay  = 10 * time.Millisecond
	minOuterDelay    = 100 * time.Millisecond
	defaultRampErr   = 0.5
	defaultRampWait  = 30 * time.Second
	rampPollInterval = 50 * time.Millisecond
)

// SweepOption configures optional Sweep construction parameters.
type SweepOption func(*Sweep) error

// WithFollowParameter attaches one or more get-only parameters whose
// values are recorded alongside each emitted point, in the given order,
// without being driven by the sweep itself. Calling it more than once
// appends to the follow set rather than overwriting it.
func WithFollowParameter(params ...*instrument.Parameter) SweepOption {
	return func(s *Sweep) error {
		s.followSet = append(s.followSet, params...)
		return nil
	}
}

// WithInterDelay sets the delay between successive steps along a
// trajectory. It must be at least defaultMinDelay (10ms).
func WithInterDelay(d time.Duration) SweepOption {
	return func(s *Sweep) error {
		if d < defaultMinDelay {
			return fmt.Errorf("inter_delay %v below minimum %v", d, defaultMinDelay)
		}
		s.interDelay = d
		return nil
	}
}

// WithOuterDelay sets the delay applied at outer-axis boundaries of a
// two-axis composed sweep (ignored by kinds with no outer axis). It
// must be at least the outer-axis settling floor.
func WithOuterDelay(d time.Duration) SweepOption {
	return func(s *Sweep) error {
		if d < minOuterDelay {
			return fmt.Errorf("outer_delay %v below minimum %v", d, minOuterDelay)
		}
		s.outerDelay = d
		return nil
	}
}

// WithParent records the sweep this one was spawned from, for the
// Active-Sweep Registry's ancestor/descendant relatedness check.
func WithParent(parent *Sweep) SweepOption {
	return func(s *Sweep) error {
		s.parent = parent
		return nil
	}
}

// WithPersister attaches a Persistence Façade handle. A Sweep with no
// persister runs without recording any rows (useful for dry runs/tests).
func WithPersister(p Persister) SweepOption {
	return func(s *Sweep) error {
		s.persister = p
		return nil
	}
}

// WithRegistry attaches the Active-Sweep Registry that Start consults.
// A Sweep with no registry never refuses to start on concurrency
// grounds — only StartForce should be used in that configuration.
func WithRegistry(r RelatedChecker) SweepOption {
	return func(s *Sweep) error {
		s.registry = r
		return nil
	}
}

// WithLogger overrides the package-default logger for one Sweep.
func WithLogger(l *log.Logger) SweepOption {
	return func(s *Sweep) error {
		s.logger = l
		return nil
	}
}

// WithClock overrides the Sweep's time source. Tests that need
// deterministic inter-delay and ramp-timeout behavior supply a
// timeutil.MockClock instead of the real clock.
func WithClock(c timeutil.Clock) SweepOption {
	return func(s *Sweep) error {
		s.clock = c
		return nil
	}
}

// Sweep is the Sweep Base: the lifecycle state machine shared by every
// Kind. Construction validates the kind and options atomically; nothing
// about the returned Sweep can change its configuration errors after
// the fact.
type Sweep struct {
	id string

	mu       sync.RWMutex
	kind     Kind
	progress Progress

	followSet  []*instrument.Parameter
	interDelay time.Duration
	outerDelay time.Duration

	parent   *Sweep
	persister Persister
	registry  RelatedChecker
	logger    *log.Logger
	clock     timeutil.Clock

	cancel  context.CancelFunc
	dataCh  chan Point
	ctrlCh  chan controlMsg
	done    chan struct{}
}

// New constructs a Sweep around kind, applying opts. All construction
// failures — an invalid kind, a misconfigured delay — are aggregated
// into a single ConfigError rather than returned one at a time.
func New(kind Kind, opts ...SweepOption) (*Sweep, error) {
	s := &Sweep{
		id:         uuid.NewString(),
		kind:       kind,
		interDelay: 100 * time.Millisecond,
		outerDelay: minOuterDelay,
		logger:     log.Default(),
		clock:      timeutil.RealClock{},
		progress:   Progress{State: StateReady, TotalPoints: kind.TotalPoints(), Direction: 1},
	}

	var errs []error
	if err := kind.Validate(); err != nil {
		errs = append(errs, err)
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			errs = append(errs, err)
		}
	}
	if err := newConfigError(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the sweep's unique identifier, assigned at construction.
func (s *Sweep) ID() string { return s.id }

// Progress returns a snapshot of the sweep's current run state. The
// (state, error_message, error_count) triple is always read together
// under the same RLock so callers never observe ERROR without its
// message, matching the single-critical-section requirement the Runner
// upholds when writing it.
func (s *Sweep) Progress() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.progress
	p.CurrentSetpoints = append([]float64(nil), s.progress.CurrentSetpoints...)
	return p
}

// Parent returns the sweep this one was spawned from, or nil.
func (s *Sweep) Parent() *Sweep {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parent
}

// RelatedTo reports whether other is this sweep's ancestor, its
// descendant, or shares a common ancestor with it. The parent chain is
// a tree by construction (WithParent is set once, at New), so this
// traversal always terminates. The Active-Sweep Registry uses this to
// decide whether two sweeps may be active at once.
func (s *Sweep) RelatedTo(other *Sweep) bool {
	return s.isRelatedTo(other)
}

func (s *Sweep) isRelatedTo(other *Sweep) bool {
	if s == other {
		return true
	}
	for a := s; a != nil; a = a.Parent() {
		for b := other; b != nil; b = b.Parent() {
			if a == b {
				return true
			}
		}
	}
	return false
}

// Start validates that no unrelated sweep is active (via the attached
// Active-Sweep Registry, if any), ramps every controlled parameter to
// its trajectory start, and then begins the Runner's step loop. It
// returns once RUNNING (or ERROR, if ramp-to-start failed to converge)
// is reached.
func (s *Sweep) Start(ctx context.Context) error {
	return s.start(ctx, false)
}

// StartForce bypasses the Active-Sweep Registry check. It exists for
// the Queue's context-switch entries and for operator override.
func (s *Sweep) StartForce(ctx context.Context) error {
	return s.start(ctx, true)
}

func (s *Sweep) start(ctx context.Context, force bool) error {
	s.mu.Lock()
	if s.progress.State != StateReady {
		s.mu.Unlock()
		return &ConcurrencyError{Message: fmt.Sprintf("sweep %s: cannot start from state %s", s.id, s.progress.State)}
	}
	registry := s.registry
	s.mu.Unlock()

	if !force && registry != nil {
		if err := registry.TryActivate(s); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.progress.State = StateRampingToStart
	s.dataCh = make(chan Point, 16)
	s.ctrlCh = make(chan controlMsg, 4)
	s.done = make(chan struct{})
	s.mu.Unlock()

	if err := s.rampToStart(runCtx); err != nil {
		s.mu.Lock()
		s.progress.State = StateError
		s.progress.ErrorMessage = err.Error()
		s.progress.ErrorCount++
		s.mu.Unlock()
		cancel()
		if registry != nil {
			registry.Release(s)
		}
		return err
	}

	if s.persister != nil {
		meta, _ := s.ExportMetadata()
		if err := s.persister.BeginMeasurement(runCtx, s.id, meta); err != nil {
			s.mu.Lock()
			s.progress.State = StateError
			s.progress.ErrorMessage = err.Error()
			s.progress.ErrorCount++
			s.mu.Unlock()
			cancel()
			if registry != nil {
				registry.Release(s)
			}
			return &PersistenceError{Cause: err}
		}
	}

	s.mu.Lock()
	s.progress.State = StateRunning
	s.mu.Unlock()

	go s.run(runCtx, registry)
	return nil
}

// rampToStart drives every controlled parameter toward its trajectory
// start value and blocks until each one converges within tolerance or
// defaultRampWait elapses.
func (s *Sweep) rampToStart(ctx context.Context) error {
	targets := s.kind.RampTargets()
	deadline := s.clock.Now().Add(defaultRampWait)
	for _, t := range targets {
		if !t.Param.Settable() {
			continue
		}
		tolerance := defaultRampErr * rampStepHint(t)
		if err := instrument.SafeSet(t.Param, t.Target); err != nil {
			return &RampConvergenceError{Parameter: t.Param.Identity(), Expected: t.Target, Tolerance: tolerance}
		}
		for {
			actual, err := instrument.SafeGet(t.Param)
			if err == nil && absF(actual-t.Target) <= tolerance {
				break
			}
			if s.clock.Now().After(deadline) {
				return &RampConvergenceError{Parameter: t.Param.Identity(), Expected: t.Target, Actual: actual, Tolerance: tolerance}
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.clock.After(rampPollInterval):
			}
		}
	}
	return nil
}

func rampStepHint(t RampTarget) float64 {
	if t.Target == 0 {
		return 1
	}
	return absF(t.Target) * 0.01
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// DataChan returns the channel the Runner publishes Points on. It is
// valid only once Start has returned nil; Plot Sink and Persistence
// consumers subscribe to it via a fan-out, not directly, in production
// wiring — tests may read it directly.
func (s *Sweep) DataChan() <-chan Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataCh
}

// Done is closed when the Runner's goroutine has exited, regardless of
// terminal state.
func (s *Sweep) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// Stop requests a graceful stop: the Runner finishes its current step,
// persists any final row, and transitions to DONE.
func (s *Sweep) Stop() {
	s.postControl(controlMsg{kind: ctrlStop})
}

// Kill requests an immediate stop: the Runner abandons its current step
// and transitions to KILLED without waiting for the trajectory to reach
// a boundary.
func (s *Sweep) Kill() {
	s.postControl(controlMsg{kind: ctrlKill})
}

// Pause suspends stepping without releasing the Active-Sweep Registry
// slot; Resume continues from the same cursor (see Resume for its
// restart argument).
func (s *Sweep) Pause() {
	s.postControl(controlMsg{kind: ctrlPause})
}

// Resume continues a PAUSED sweep from the paused cursor. restart, when
// true, first re-ramps every controlled parameter to its trajectory
// start; the Kind's step cursor is not reset, so stepping still
// continues from the paused cursor.
func (s *Sweep) Resume(restart bool) {
	s.postControl(controlMsg{kind: ctrlResume, restart: restart})
}

// FlipDirection reverses every controlled parameter's trajectory
// direction, if the sweep's Kind supports it.
func (s *Sweep) FlipDirection() error {
	s.mu.RLock()
	ok := s.kind.Flippable()
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("sweep %s: kind %s does not support flip_direction", s.id, s.kind.KindName())
	}
	s.postControl(controlMsg{kind: ctrlFlip})
	return nil
}

// SetInterDelay updates the inter-step delay of a running sweep.
func (s *Sweep) SetInterDelay(d time.Duration) error {
	if d < defaultMinDelay {
		return fmt.Errorf("inter_delay %v below minimum %v", d, defaultMinDelay)
	}
	s.postControl(controlMsg{kind: ctrlSetInterDelay, delay: d})
	return nil
}

// SetOuterDelay updates the outer-axis delay of a running sweep.
func (s *Sweep) SetOuterDelay(d time.Duration) error {
	if d < minOuterDelay {
		return fmt.Errorf("outer_delay %v below minimum %v", d, minOuterDelay)
	}
	s.postControl(controlMsg{kind: ctrlSetOuterDelay, delay: d})
	return nil
}

func (s *Sweep) postControl(msg controlMsg) {
	s.mu.RLock()
	ch := s.ctrlCh
	s.mu.RUnlock()
	if ch == nil {
		return
	}
	select {
	case ch <- msg:
	default:
		// Control channel is small and drained promptly by the Runner;
		// a full channel means a control message is already in flight
		// for this step, so the newest request wins on the next drain.
	}
}
