package plotsink

import (
	"math"
	"testing"
)

func TestSummarizeComputesMeanAndQuantiles(t *testing.T) {
	s := Summarize([]float64{1, 2, 3, 4, 5})
	if math.Abs(s.Mean-3) > 1e-9 {
		t.Fatalf("mean = %v, want 3", s.Mean)
	}
	if s.P50 < 2.9 || s.P50 > 3.1 {
		t.Fatalf("p50 = %v, want ~3", s.P50)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	if s := Summarize(nil); s != (Summary{}) {
		t.Fatalf("expected zero Summary for empty input, got %+v", s)
	}
}

func TestLiveHandlerSummarySkipsBreaks(t *testing.T) {
	h := NewLiveHandler(New(0, 0, false), "s", "t", 10)
	h.recent = []Bin{{Y: 1}, {Break: true}, {Y: 3}}
	s := h.Summary()
	if math.Abs(s.Mean-2) > 1e-9 {
		t.Fatalf("mean = %v, want 2", s.Mean)
	}
}
