// Package adminserver mounts sweepd's operator-facing debug surface:
// live registry/queue status, a Prometheus scrape endpoint, and a
// read-only SQL console over the persistence dataset. It mirrors the
// teacher's AttachAdminRoutes convention (tsweb.Debugger fronting a
// handful of named debug handlers) rather than inventing a bespoke
// admin API.
package adminserver

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tailscale/tailsql"
	"tailscale.com/tsweb"

	"github.com/labstack-instruments/sweepengine/internal/registry"
	"github.com/labstack-instruments/sweepengine/internal/sweepqueue"
)

// Server bundles the process-wide components an admin mux reports on.
// Any field may be nil, in which case the routes that depend on it are
// skipped rather than panicking — sweepctl's script tests, for
// instance, run without a dataset attached.
type Server struct {
	Registry    *registry.Registry
	Queue       *sweepqueue.Queue
	Metrics     http.Handler
	Dataset     *sql.DB
	DatasetPath string
}

// queueStatus is the JSON shape served at debug/queue-status.
type queueStatus struct {
	State     sweepqueue.State `json:"state"`
	Cursor    int              `json:"cursor"`
	LastError string           `json:"last_error,omitempty"`
}

// AttachAdminRoutes mounts every debug route the Server has components
// for onto mux, the way the teacher's DB and SerialMux each attach
// their own admin routes to a shared ServeMux.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	if s.Registry != nil {
		debug.Handle("active-sweeps", "Sweep IDs currently admitted by the registry (JSON)",
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				if err := json.NewEncoder(w).Encode(s.Registry.Active()); err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
				}
			}))
	}

	if s.Queue != nil {
		debug.Handle("queue-status", "Queue run state, cursor and last error (JSON)",
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				st := queueStatus{State: s.Queue.State(), Cursor: s.Queue.Cursor()}
				if err := s.Queue.LastError(); err != nil {
					st.LastError = err.Error()
				}
				w.Header().Set("Content-Type", "application/json")
				if err := json.NewEncoder(w).Encode(st); err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
				}
			}))
	}

	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics)
	}

	if s.Dataset != nil {
		tsql, err := tailsql.NewServer(tailsql.Options{RoutePrefix: "/debug/tailsql/"})
		if err != nil {
			return fmt.Errorf("adminserver: create tailsql server: %w", err)
		}
		label := s.DatasetPath
		if label == "" {
			label = "sweepengine dataset"
		}
		tsql.SetDB(fmt.Sprintf("sqlite://%s", s.DatasetPath), s.Dataset, &tailsql.DBOptions{Label: label})
		debug.Handle("tailsql/", "Read-only SQL console over the dataset", tsql.NewMux())
	}

	return nil
}
