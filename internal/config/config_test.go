package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack-instruments/sweepengine/internal/fsutil"
)

func TestDirPrecedence(t *testing.T) {
	t.Setenv(EnvHome, "")
	if d, err := Dir("/explicit/override"); err != nil || d != "/explicit/override" {
		t.Fatalf("Dir(override) = %q, %v", d, err)
	}

	t.Setenv(EnvHome, "/from/env")
	if d, err := Dir(""); err != nil || d != "/from/env" {
		t.Fatalf("Dir(env) = %q, %v", d, err)
	}
}

func TestNewLoaderFallsBackToDefaultsWithoutFile(t *testing.T) {
	l, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	defer l.Close()

	d := l.Current()
	if d.InterDelay != 100*time.Millisecond {
		t.Fatalf("InterDelay = %v, want 100ms", d.InterDelay)
	}
}

func TestNewLoaderReadsDefaultsFile(t *testing.T) {
	dir := t.TempDir()
	content := "ramp_tolerance: 0.25\nlisten_threshold: 0.05\n"
	if err := os.WriteFile(filepath.Join(dir, "defaults.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write defaults file: %v", err)
	}

	l, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	defer l.Close()

	d := l.Current()
	if d.RampTolerance != 0.25 {
		t.Fatalf("RampTolerance = %v, want 0.25", d.RampTolerance)
	}
	if d.ListenThreshold != 0.05 {
		t.Fatalf("ListenThreshold = %v, want 0.05", d.ListenThreshold)
	}
}

func TestWriteSampleProducesLoadableFile(t *testing.T) {
	dir := t.TempDir()
	if err := WriteSample(dir); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}

	l, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	defer l.Close()

	if d := l.Current(); d.RampTolerance != 0.5 {
		t.Fatalf("RampTolerance = %v, want 0.5 (from written sample)", d.RampTolerance)
	}
}

func TestWriteSampleFSAgainstMemoryFilesystem(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	if err := WriteSampleFS(mem, "/cfg"); err != nil {
		t.Fatalf("WriteSampleFS: %v", err)
	}
	b, err := mem.ReadFile("/cfg/defaults.yaml")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(b), "ramp_tolerance") {
		t.Fatalf("written sample missing ramp_tolerance: %s", b)
	}
}
