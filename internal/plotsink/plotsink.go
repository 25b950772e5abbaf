// Package plotsink implements the Plot Sink: a bounded fan-out consumer
// of a sweep's Point stream. Each subscriber gets its own small buffered
// channel; a slow subscriber drops frames instead of backpressuring the
// sweep, the same tradeoff the teacher's visualiser.Publisher makes for
// live viewers versus its persistence path.
package plotsink

import (
	"sync"
	"sync/atomic"

	"github.com/labstack-instruments/sweepengine/internal/sweep"
)

// Bin is one accumulated sample ready for rendering: a setpoint/value
// pair (or a break, for a discontinuity the renderer should gap rather
// than connect).
type Bin struct {
	X     float64
	Y     float64
	Break bool
}

// Subscriber receives Bin values derived from one axis of a sweep's
// Point stream.
type Subscriber struct {
	id   string
	ch   chan Bin
	done chan struct{}
}

// Chan returns the subscriber's bin channel. Closed when the sink stops
// forwarding to it (subscriber removed, or the sink itself closes).
func (s *Subscriber) Chan() <-chan Bin { return s.ch }

// Sink fans one sweep's Point stream out to any number of Subscribers,
// deriving one X/Y Bin per point from a configurable pair of indices
// into Setpoints/Values.
type Sink struct {
	xIndex     int
	yIndex     int
	fromValues bool

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	dropped     atomic.Uint64

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Sink that derives each Bin's X from Setpoints[xIndex]
// and Y from Setpoints[yIndex] (or Values[yIndex] when fromValues is
// true, e.g. rendering a listening sweep's monitored reading).
func New(xIndex, yIndex int, fromValues bool) *Sink {
	return &Sink{
		xIndex:      xIndex,
		yIndex:      yIndex,
		fromValues:  fromValues,
		subscribers: make(map[string]*Subscriber),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Subscribe registers a new subscriber with a small bounded buffer.
func (s *Sink) Subscribe(id string) *Subscriber {
	sub := &Subscriber{id: id, ch: make(chan Bin, 32), done: make(chan struct{})}
	s.mu.Lock()
	s.subscribers[id] = sub
	s.mu.Unlock()
	return sub
}

// Unsubscribe removes and closes a subscriber's channel.
func (s *Sink) Unsubscribe(id string) {
	s.mu.Lock()
	sub, ok := s.subscribers[id]
	if ok {
		delete(s.subscribers, id)
	}
	s.mu.Unlock()
	if ok {
		close(sub.ch)
	}
}

// Dropped returns the total number of bins dropped across all
// subscribers because their buffer was full, for admin/status surfaces.
func (s *Sink) Dropped() uint64 { return s.dropped.Load() }

// Run consumes data until the channel closes or Stop is called,
// forwarding a derived Bin to every current subscriber on each point.
func (s *Sink) Run(data <-chan sweep.Point) {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			return
		case p, ok := <-data:
			if !ok {
				s.mu.Lock()
				for id, sub := range s.subscribers {
					close(sub.ch)
					delete(s.subscribers, id)
				}
				s.mu.Unlock()
				return
			}
			s.broadcast(s.binFor(p))
		}
	}
}

func (s *Sink) binFor(p sweep.Point) Bin {
	if p.Break {
		return Bin{Break: true}
	}
	src := p.Setpoints
	if s.fromValues {
		src = p.Values
	}
	var x, y float64
	if s.xIndex < len(p.Setpoints) {
		x = p.Setpoints[s.xIndex]
	}
	if s.yIndex < len(src) {
		y = src[s.yIndex]
	}
	return Bin{X: x, Y: y}
}

func (s *Sink) broadcast(b Bin) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subscribers {
		select {
		case sub.ch <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

// Stop halts Run and closes every subscriber's channel.
func (s *Sink) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sub := range s.subscribers {
		close(sub.ch)
		delete(s.subscribers, id)
	}
}
