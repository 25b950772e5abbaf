package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack-instruments/sweepengine/internal/sweep"
)

func TestOpenBeginAppendFinish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.db")
	ctx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ctx.Close()

	sweepID := "sweep-1"
	if err := ctx.BeginMeasurement(context.Background(), sweepID, []byte(`{"kind":"one_axis"}`)); err != nil {
		t.Fatalf("BeginMeasurement: %v", err)
	}

	p := sweep.Point{Timestamp: time.Now(), Setpoints: []float64{1, 2}}
	if err := ctx.Append(context.Background(), sweepID, p); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := ctx.Finish(context.Background(), sweepID, sweep.StateDone, ""); err != nil {
		t.Fatalf("Finish: %v", err)
	}
}

func TestAppendAssignsIncreasingSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.db")
	ctx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ctx.Close()

	sweepID := "sweep-2"
	if err := ctx.BeginMeasurement(context.Background(), sweepID, []byte(`{"kind":"one_axis"}`)); err != nil {
		t.Fatalf("BeginMeasurement: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := ctx.Append(context.Background(), sweepID, sweep.Point{Timestamp: time.Now()}); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	var count int
	if err := ctx.db.QueryRow(`SELECT COUNT(*) FROM sweep_points WHERE sweep_id = ?`, sweepID).Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}
