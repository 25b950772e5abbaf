package sweep

import (
	"context"
	"errors"
	"time"

	"github.com/labstack-instruments/sweepengine/internal/instrument"
)

// run is the Runner's step loop, launched as a goroutine by start. It
// owns every mutation of s.progress from this point on; Stop/Kill/Pause
// etc. only ever post to s.ctrlCh, never touch s.progress directly,
// keeping the state-transition critical section single-threaded.
func (s *Sweep) run(ctx context.Context, registry RelatedChecker) {
	defer func() {
		s.mu.Lock()
		close(s.dataCh)
		close(s.done)
		s.mu.Unlock()
		if registry != nil {
			registry.Release(s)
		}
	}()

	dir := 1
	paused := false

	for {
		select {
		case <-ctx.Done():
			s.finish(ctx, StateKilled, ctx.Err())
			return
		case msg := <-s.ctrlCh:
			if done := s.applyControl(msg, &dir, &paused); done {
				return
			}
			continue
		default:
		}

		if paused {
			select {
			case <-ctx.Done():
				s.finish(ctx, StateKilled, ctx.Err())
				return
			case msg := <-s.ctrlCh:
				if done := s.applyControl(msg, &dir, &paused); done {
					return
				}
			}
			continue
		}

		setpoints, atBoundary, err := s.kind.Step(dir)
		if errors.Is(err, errSkipPoint) {
			select {
			case <-ctx.Done():
				s.finish(ctx, StateKilled, ctx.Err())
				return
			case <-s.clock.After(s.nextDelay()):
			}
			continue
		}
		if err != nil {
			s.finish(ctx, StateError, err)
			return
		}

		monitorOnly := false
		if mo, ok := s.kind.(interface{ MonitorOnly() bool }); ok {
			monitorOnly = mo.MonitorOnly()
		}

		point := Point{Timestamp: s.clock.Now()}
		if monitorOnly {
			point.Values = append(point.Values, setpoints...)
		} else {
			point.Setpoints = setpoints
			for i, c := range s.kind.Controlled() {
				if i >= len(setpoints) {
					break
				}
				if c.Param.Settable() {
					if err := instrument.SafeSet(c.Param, setpoints[i]); err != nil {
						s.finish(ctx, StateError, err)
						return
					}
				}
			}
		}
		for _, fp := range s.followSet {
			if v, err := instrument.SafeGet(fp); err == nil {
				point.Values = append(point.Values, v)
			}
		}

		s.mu.Lock()
		s.progress.PointsEmitted++
		s.progress.CurrentSetpoints = setpoints
		s.progress.Direction = dir
		s.mu.Unlock()

		if s.persister != nil {
			if err := s.persister.Append(ctx, s.id, point); err != nil {
				s.finish(ctx, StateError, &PersistenceError{Cause: err})
				return
			}
		}

		select {
		case s.dataCh <- point:
		case <-ctx.Done():
			s.finish(ctx, StateKilled, ctx.Err())
			return
		}

		if ob, ok := s.kind.(outerBoundaryReporter); ok && ob.OuterBoundary() && !atBoundary {
			select {
			case s.dataCh <- breakPoint(s.clock.Now()):
			case <-ctx.Done():
				s.finish(ctx, StateKilled, ctx.Err())
				return
			}
		}

		if atBoundary {
			switch modeOf(s.kind) {
			case OneShot:
				s.finish(ctx, StateDone, nil)
				return
			case Bidirectional:
				dir = -dir
				s.kind.Flip()
				select {
				case s.dataCh <- breakPoint(s.clock.Now()):
				case <-ctx.Done():
					s.finish(ctx, StateKilled, ctx.Err())
					return
				}
			case Continual:
				if err := s.rampToStart(ctx); err != nil {
					s.finish(ctx, StateError, err)
					return
				}
				select {
				case s.dataCh <- breakPoint(s.clock.Now()):
				case <-ctx.Done():
					s.finish(ctx, StateKilled, ctx.Err())
					return
				}
			}
		}

		select {
		case <-ctx.Done():
			s.finish(ctx, StateKilled, ctx.Err())
			return
		case <-s.clock.After(s.nextDelay()):
		}
	}
}

type outerBoundaryReporter interface{ OuterBoundary() bool }

// nextDelay returns OuterDelay when the Kind reports it just crossed an
// outer-axis boundary (two-axis composed sweeps), InterDelay otherwise.
func (s *Sweep) nextDelay() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ob, ok := s.kind.(outerBoundaryReporter); ok && ob.OuterBoundary() {
		return s.outerDelay
	}
	return s.interDelay
}

// applyControl handles one control-channel message. It returns true if
// the Runner should exit (Stop/Kill).
func (s *Sweep) applyControl(msg controlMsg, dir *int, paused *bool) bool {
	switch msg.kind {
	case ctrlStop:
		s.finish(context.Background(), StateDone, nil)
		return true
	case ctrlKill:
		s.finish(context.Background(), StateKilled, nil)
		return true
	case ctrlPause:
		*paused = true
		s.mu.Lock()
		s.progress.State = StatePaused
		s.mu.Unlock()
	case ctrlResume:
		*paused = false
		if msg.restart {
			_ = s.rampToStart(context.Background())
		}
		s.mu.Lock()
		s.progress.State = StateRunning
		s.mu.Unlock()
	case ctrlFlip:
		*dir = -*dir
		s.kind.Flip()
	case ctrlSetInterDelay:
		s.mu.Lock()
		s.interDelay = msg.delay
		s.mu.Unlock()
	case ctrlSetOuterDelay:
		s.mu.Lock()
		s.outerDelay = msg.delay
		s.mu.Unlock()
	}
	return false
}

// finish performs the single transition into a terminal state, updating
// (state, error_message, error_count) together under one lock, and
// notifies the Persistence Façade. It always uses a fresh
// background context for the Finish call: a sweep terminating because
// its run context was cancelled must still be able to flush its final
// row rather than have that write rejected by the same cancellation.
func (s *Sweep) finish(_ context.Context, state State, cause error) {
	s.mu.Lock()
	s.progress.State = state
	if cause != nil {
		s.progress.ErrorMessage = cause.Error()
		s.progress.ErrorCount++
	}
	s.mu.Unlock()

	if s.persister != nil {
		msg := ""
		if cause != nil {
			msg = cause.Error()
		}
		_ = s.persister.Finish(context.Background(), s.id, state, msg)
	}
}

func modeOf(k Kind) Mode {
	type modeProvider interface{ TrajectoryMode() Mode }
	if mp, ok := k.(modeProvider); ok {
		return mp.TrajectoryMode()
	}
	return OneShot
}
