package sweep

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMetadataRoundTripsThroughJSON(t *testing.T) {
	p := newTestParameter(t, 0)
	follow := newCoupledTestParameter(t, 0)
	kind := NewOneAxis(p, Trajectory{Start: 0, Stop: 2, Step: 1, Mode: OneShot})
	s, err := New(kind, WithOuterDelay(150*time.Millisecond), WithFollowParameter(follow))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	b, err := s.ExportMetadata()
	if err != nil {
		t.Fatalf("ExportMetadata: %v", err)
	}

	got, err := DecodeMetadata(b)
	if err != nil {
		t.Fatalf("DecodeMetadata: %v", err)
	}

	want := s.exportMetadataLocked()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("metadata round-trip mismatch (-want +got):\n%s", diff)
	}
}
