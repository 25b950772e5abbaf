// Package persistence implements the Persistence Façade: open a
// dataset file, begin a measurement run for a sweep, append points to
// it, finish the run, and close the dataset — independent of the Queue
// and Active-Sweep Registry, which route to it but do not embed it.
package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/labstack-instruments/sweepengine/internal/sweep"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Context is the Persistence Façade handle for one dataset file. It
// satisfies sweep.Persister so a Sweep can be wired directly to it via
// sweep.WithPersister.
type Context struct {
	db *sql.DB
	mu sync.Mutex
	// seq tracks the next point sequence number per sweep, since SQLite
	// gives us no server-side per-partition counter.
	seq map[string]int
}

var _ sweep.Persister = (*Context)(nil)

// Open opens (creating if necessary) the sqlite dataset file at path
// and applies every pending migration.
func Open(path string) (*Context, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s: %w", path, err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Context{db: db, seq: make(map[string]int)}, nil
}

func applyPragmas(db *sql.DB) error {
	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("persistence: %s: %w", p, err)
		}
	}
	return nil
}

func runMigrations(db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("persistence: migrations sub-filesystem: %w", err)
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("persistence: migration source: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("persistence: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("persistence: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("persistence: apply migrations: %w", err)
	}
	return nil
}

// BeginMeasurement opens a measurement run for sweepID, recording its
// exported metadata document and start time.
func (c *Context) BeginMeasurement(ctx context.Context, sweepID string, metadata []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO sweeps (sweep_id, kind, metadata_json, started_at) VALUES (?, ?, ?, ?)`,
		sweepID, kindOf(metadata), string(metadata), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("persistence: begin measurement %s: %w", sweepID, err)
	}
	c.mu.Lock()
	c.seq[sweepID] = 0
	c.mu.Unlock()
	return nil
}

func kindOf(metadata []byte) string {
	var m struct {
		Kind string `json:"kind"`
	}
	_ = json.Unmarshal(metadata, &m)
	return m.Kind
}

// Append records one Point under the next sequence number for sweepID.
func (c *Context) Append(ctx context.Context, sweepID string, p sweep.Point) error {
	c.mu.Lock()
	seq := c.seq[sweepID]
	c.seq[sweepID] = seq + 1
	c.mu.Unlock()

	setpointsJSON, err := json.Marshal(p.Setpoints)
	if err != nil {
		return fmt.Errorf("persistence: marshal setpoints: %w", err)
	}
	valuesJSON, err := json.Marshal(p.Values)
	if err != nil {
		return fmt.Errorf("persistence: marshal values: %w", err)
	}
	isBreak := 0
	if p.Break {
		isBreak = 1
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO sweep_points (sweep_id, seq, timestamp_unix, setpoints_json, values_json, is_break) VALUES (?, ?, ?, ?, ?, ?)`,
		sweepID, seq, p.Timestamp.Unix(), string(setpointsJSON), string(valuesJSON), isBreak)
	if err != nil {
		return fmt.Errorf("persistence: append point for %s: %w", sweepID, err)
	}
	return nil
}

// Finish records the terminal state and any error message for sweepID.
func (c *Context) Finish(ctx context.Context, sweepID string, state sweep.State, errMessage string) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE sweeps SET finished_at = ?, final_state = ?, error_message = ? WHERE sweep_id = ?`,
		time.Now().Unix(), string(state), errMessage, sweepID)
	if err != nil {
		return fmt.Errorf("persistence: finish %s: %w", sweepID, err)
	}
	c.mu.Lock()
	delete(c.seq, sweepID)
	c.mu.Unlock()
	return nil
}

// Close releases the underlying database handle.
func (c *Context) Close() error {
	return c.db.Close()
}

// DB exposes the underlying handle for read-only introspection, e.g.
// mounting a tailsql debug endpoint over the dataset.
func (c *Context) DB() *sql.DB { return c.db }
