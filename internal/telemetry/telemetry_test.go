package telemetry

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewExposesPrometheusHandler(t *testing.T) {
	tel, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tel.Shutdown(context.Background())

	tel.PointsEmitted.Add(context.Background(), 3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	tel.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sweep_points_emitted") {
		t.Fatalf("body missing sweep_points_emitted metric:\n%s", rec.Body.String())
	}
}
