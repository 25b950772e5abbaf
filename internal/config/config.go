// Package config resolves the directory sweepd reads its defaults file
// from, loads that file with viper, and watches it for edits so a
// running daemon can pick up new defaults without a restart. The schema
// mirrors the values an operator would otherwise pass as sweepctl
// flags, so the same keys work in both places.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/labstack-instruments/sweepengine/internal/fsutil"
)

const (
	// EnvHome overrides where the defaults file and dataset files live,
	// the same way MEASUREIT_HOME-style variables do in lab software.
	EnvHome = "SWEEPENGINE_HOME"

	defaultsFileBase = "defaults"
)

// Defaults holds the subset of sweep configuration an operator
// typically wants to change without editing code: delay floors, ramp
// tolerance, retry timing, and listening suppression threshold.
type Defaults struct {
	InterDelay       time.Duration `mapstructure:"inter_delay" yaml:"inter_delay"`
	OuterDelay       time.Duration `mapstructure:"outer_delay" yaml:"outer_delay"`
	RampTolerance    float64       `mapstructure:"ramp_tolerance" yaml:"ramp_tolerance"`
	RampTimeout      time.Duration `mapstructure:"ramp_timeout" yaml:"ramp_timeout"`
	ParameterRetryMS int           `mapstructure:"parameter_retry_ms" yaml:"parameter_retry_ms"`
	ListenThreshold  float64       `mapstructure:"listen_threshold" yaml:"listen_threshold"`
}

func defaultDefaults() Defaults {
	return Defaults{
		InterDelay:       100 * time.Millisecond,
		OuterDelay:       0,
		RampTolerance:    0.5,
		RampTimeout:      30 * time.Second,
		ParameterRetryMS: 1000,
		ListenThreshold:  0,
	}
}

// Dir resolves the directory sweepd reads its defaults file and
// persistence datasets from, in order of precedence: an explicit
// override (programmatic, e.g. a --home flag), the SWEEPENGINE_HOME
// environment variable, then the OS per-user config directory.
func Dir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if v := os.Getenv(EnvHome); v != "" {
		return v, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve user config dir: %w", err)
	}
	return filepath.Join(base, "sweepengine"), nil
}

// Loader owns a viper instance bound to one defaults file, plus an
// fsnotify watcher that re-reads it on edits. Callers read the current
// Defaults via Current; there is no push notification, matching how
// sweepd's callers simply re-check config at the top of each loop
// iteration rather than subscribing to change events.
type Loader struct {
	v   *viper.Viper
	mu  sync.RWMutex
	cur Defaults

	watcher *fsnotify.Watcher
}

// NewLoader loads dir/defaults.{yaml,json} if present, falling back to
// built-in Defaults otherwise, and starts watching the file for edits.
func NewLoader(dir string) (*Loader, error) {
	v := viper.New()
	v.SetConfigName(defaultsFileBase)
	v.AddConfigPath(dir)
	v.SetDefault("inter_delay", 100*time.Millisecond)
	v.SetDefault("outer_delay", 0)
	v.SetDefault("ramp_tolerance", 0.5)
	v.SetDefault("ramp_timeout", 30*time.Second)
	v.SetDefault("parameter_retry_ms", 1000)
	v.SetDefault("listen_threshold", 0)

	l := &Loader{v: v, cur: defaultDefaults()}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: read %s: %w", dir, err)
		}
	} else if err := l.reload(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err == nil {
		if w, err := fsnotify.NewWatcher(); err == nil {
			if err := w.Add(dir); err == nil {
				l.watcher = w
				go l.watch()
			} else {
				w.Close()
			}
		}
	}

	return l, nil
}

func (l *Loader) watch() {
	for {
		select {
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := l.v.ReadInConfig(); err == nil {
				_ = l.reload()
			}
		case _, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (l *Loader) reload() error {
	var d Defaults
	if err := l.v.Unmarshal(&d); err != nil {
		return fmt.Errorf("config: unmarshal defaults: %w", err)
	}
	l.mu.Lock()
	l.cur = d
	l.mu.Unlock()
	return nil
}

// Current returns the most recently loaded Defaults.
func (l *Loader) Current() Defaults {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cur
}

// Close stops the filesystem watcher, if one was started.
func (l *Loader) Close() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

// WriteSample writes a hand-editable defaults.yaml to dir, seeded from
// the built-in Defaults, for an operator to copy and adjust. It uses
// yaml.v3 directly rather than going through viper, since this is
// authoring a file for a human to edit, not parsing one back.
func WriteSample(dir string) error {
	return WriteSampleFS(fsutil.OSFileSystem{}, dir)
}

// WriteSampleFS is WriteSample against an injected fsutil.FileSystem,
// so tests can exercise it against an in-memory filesystem instead of
// touching disk.
func WriteSampleFS(fs fsutil.FileSystem, dir string) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", dir, err)
	}
	b, err := yaml.Marshal(defaultDefaults())
	if err != nil {
		return fmt.Errorf("config: marshal sample defaults: %w", err)
	}
	path := filepath.Join(dir, defaultsFileBase+".yaml")
	if err := fs.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
