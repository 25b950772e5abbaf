package plotsink

import (
	"testing"
	"time"

	"github.com/labstack-instruments/sweepengine/internal/sweep"
)

func TestSinkForwardsBinsToSubscribers(t *testing.T) {
	sink := New(0, 0, false)
	sub := sink.Subscribe("a")

	data := make(chan sweep.Point, 4)
	data <- sweep.Point{Setpoints: []float64{1}}
	data <- sweep.Point{Setpoints: []float64{2}}
	data <- sweep.Point{Break: true}
	close(data)

	done := make(chan struct{})
	go func() {
		sink.Run(data)
		close(done)
	}()
	<-done

	var bins []Bin
	for b := range sub.Chan() {
		bins = append(bins, b)
	}
	if len(bins) != 3 {
		t.Fatalf("got %d bins, want 3", len(bins))
	}
	if bins[0].X != 1 || bins[1].X != 2 {
		t.Fatalf("bins = %+v, want x=1,2", bins)
	}
	if !bins[2].Break {
		t.Fatalf("expected third bin to be a break marker")
	}
}

func TestSinkDropsWhenSubscriberBufferFull(t *testing.T) {
	sink := New(0, 0, false)
	sub := sink.Subscribe("slow")

	data := make(chan sweep.Point, 64)
	for i := 0; i < 64; i++ {
		data <- sweep.Point{Setpoints: []float64{float64(i)}}
	}
	close(data)

	done := make(chan struct{})
	go func() {
		sink.Run(data)
		close(done)
	}()
	<-done
	time.Sleep(10 * time.Millisecond)

	if sink.Dropped() == 0 {
		t.Fatalf("expected some bins to be dropped for a slow subscriber")
	}
	sink.Unsubscribe("slow")
	_ = sub
}
