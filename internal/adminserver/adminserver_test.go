package adminserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack-instruments/sweepengine/internal/registry"
	"github.com/labstack-instruments/sweepengine/internal/sweepqueue"
)

func TestAttachAdminRoutesServesStatusEndpoints(t *testing.T) {
	srv := &Server{Registry: registry.New(), Queue: sweepqueue.New()}
	mux := http.NewServeMux()
	if err := srv.AttachAdminRoutes(mux); err != nil {
		t.Fatalf("AttachAdminRoutes: %v", err)
	}

	req := httptest.NewRequest("GET", "/debug/active-sweeps", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("active-sweeps status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "[]") {
		t.Fatalf("expected empty active-sweep list, got %s", rec.Body.String())
	}

	req = httptest.NewRequest("GET", "/debug/queue-status", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("queue-status status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"IDLE"`) {
		t.Fatalf("expected idle queue state, got %s", rec.Body.String())
	}
}
