// Package sweepqueue implements the Queue: an ordered sequence of
// sweep, callable and context-switch entries consumed by a single
// background supervisor. The Queue is independent of the Active-Sweep
// Registry — it decides what runs next, the Registry decides whether a
// given sweep is allowed to start when the Queue tries to start it.
package sweepqueue

import (
	"context"
	"fmt"
	"sync"

	"github.com/labstack-instruments/sweepengine/internal/sweep"
)

// EntryKind distinguishes what a Queue entry does when consumed.
type EntryKind int

const (
	// EntrySweep runs a *sweep.Sweep to completion before advancing.
	EntrySweep EntryKind = iota
	// EntryCallable runs an arbitrary function, for scripted setup/teardown
	// steps between sweeps (e.g. changing an unrelated instrument mode).
	EntryCallable
	// EntryContextSwitch force-starts a sweep that bypasses the Active-Sweep
	// Registry's relatedness check, for deliberate context changes the
	// operator has already reasoned about.
	EntryContextSwitch
)

// Entry is one unit of queued work.
type Entry struct {
	Kind     EntryKind
	Sweep    *sweep.Sweep
	Callable func(context.Context) error
	Label    string
}

// State enumerates the Queue's own run state, distinct from any entry's
// Sweep.Progress().State.
type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
	StateError   State = "ERROR"
)

// QueueError reports that an entry failed while being consumed. The
// Queue stops advancing (entering StateError) rather than silently
// skipping the failed entry.
type QueueError struct {
	EntryIndex int
	Label      string
	Cause      error
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("queue: entry %d (%s) failed: %v", e.EntryIndex, e.Label, e.Cause)
}
func (e *QueueError) Unwrap() error { return e.Cause }

// Queue is a FIFO sequence of Entry values consumed by one supervisor
// goroutine started by Run.
type Queue struct {
	mu      sync.RWMutex
	entries []Entry
	cursor  int
	state   State
	lastErr error
	stopCh  chan struct{}
	killCh  chan struct{}
	doneCh  chan struct{}
}

// New constructs an empty queue.
func New() *Queue {
	return &Queue{state: StateIdle}
}

// Enqueue appends entries to the end of the queue. It is safe to call
// while the queue is running — the supervisor reads entries by index.
func (q *Queue) Enqueue(entries ...Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entries...)
}

// State returns the queue's current run state.
func (q *Queue) State() State {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.state
}

// LastError returns the error that put the queue into StateError, if any.
func (q *Queue) LastError() error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.lastErr
}

// Cursor returns the index of the next entry to be consumed.
func (q *Queue) Cursor() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.cursor
}

// Run starts the supervisor goroutine and blocks until the queue is
// drained, killed, or an entry fails. Callers typically invoke it in
// its own goroutine.
func (q *Queue) Run(ctx context.Context) error {
	q.mu.Lock()
	q.state = StateRunning
	q.stopCh = make(chan struct{})
	q.killCh = make(chan struct{})
	q.doneCh = make(chan struct{})
	q.mu.Unlock()
	defer close(q.doneCh)

	for {
		q.mu.RLock()
		idx := q.cursor
		var entry Entry
		haveEntry := idx < len(q.entries)
		if haveEntry {
			entry = q.entries[idx]
		}
		q.mu.RUnlock()

		if !haveEntry {
			q.mu.Lock()
			q.state = StateIdle
			q.mu.Unlock()
			return nil
		}

		select {
		case <-q.killCh:
			// Kill halts consumption immediately AND kills any in-flight
			// sweep entry — it is not a graceful stop, it is a hard stop of
			// both the queue and whatever it was running.
			if entry.Kind != EntryCallable && entry.Sweep != nil {
				entry.Sweep.Kill()
			}
			q.mu.Lock()
			q.state = StateIdle
			q.mu.Unlock()
			return nil
		case <-q.stopCh:
			// Stop never reaches into an in-flight entry — it only takes
			// effect between entries, letting whatever is currently
			// consuming finish on its own.
			q.mu.Lock()
			q.state = StateIdle
			q.mu.Unlock()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := q.consume(ctx, entry); err != nil {
			q.mu.Lock()
			q.state = StateError
			q.lastErr = err
			q.mu.Unlock()
			return &QueueError{EntryIndex: idx, Label: entry.Label, Cause: err}
		}

		q.mu.Lock()
		q.cursor++
		q.mu.Unlock()
	}
}

func (q *Queue) consume(ctx context.Context, entry Entry) error {
	switch entry.Kind {
	case EntryCallable:
		return entry.Callable(ctx)
	case EntrySweep:
		if err := entry.Sweep.Start(ctx); err != nil {
			return err
		}
		return q.waitForSweep(entry.Sweep)
	case EntryContextSwitch:
		if err := entry.Sweep.StartForce(ctx); err != nil {
			return err
		}
		return q.waitForSweep(entry.Sweep)
	default:
		return fmt.Errorf("queue: unknown entry kind %d", entry.Kind)
	}
}

func (q *Queue) waitForSweep(s *sweep.Sweep) error {
	for range s.DataChan() {
	}
	<-s.Done()
	p := s.Progress()
	if p.State == sweep.StateError {
		return fmt.Errorf("%s", p.ErrorMessage)
	}
	return nil
}

// Stop halts the queue's supervisor loop once the currently consuming
// entry finishes on its own; no further entries are started. It does
// not touch whatever sweep is in flight — callers who also want that
// sweep to wind down should call its own Stop.
func (q *Queue) Stop() {
	q.mu.RLock()
	ch := q.stopCh
	q.mu.RUnlock()
	if ch != nil {
		close(ch)
	}
}

// Kill halts the queue's supervisor loop and kills whatever sweep entry
// is currently running, without waiting for it to reach a trajectory
// boundary.
func (q *Queue) Kill() {
	q.mu.RLock()
	ch := q.killCh
	var inFlight *sweep.Sweep
	if q.cursor < len(q.entries) && q.entries[q.cursor].Kind != EntryCallable {
		inFlight = q.entries[q.cursor].Sweep
	}
	q.mu.RUnlock()
	if ch != nil {
		close(ch)
		if inFlight != nil {
			inFlight.Kill()
		}
	}
}
