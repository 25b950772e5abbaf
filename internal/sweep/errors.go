package sweep

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// errSkipPoint is a sentinel Kind.Step error meaning "nothing to emit
// this tick" (e.g. a listening sweep whose monitored value has not
// moved past its threshold). The Runner treats it as a no-op, not a
// failure.
var errSkipPoint = errors.New("sweep: skip point emission")

// ConfigError reports an invalid construction argument: a delay below
// its minimum, a zero step, or mismatched simultaneous-axis counts.
// Construction fails atomically — no partial Sweep is returned.
type ConfigError struct {
	Cause error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("sweep config: %v", e.Cause) }
func (e *ConfigError) Unwrap() error  { return e.Cause }

// newConfigError wraps one or more validation failures into a single
// ConfigError. Multiple simultaneous failures (e.g. several mismatched
// trajectory counts) are aggregated with go-multierror instead of only
// reporting the first one found, mirroring how jayjanssen-myq-tools'
// clientconf loader collects every malformed config line before failing.
func newConfigError(causes ...error) error {
	var merr *multierror.Error
	for _, c := range causes {
		if c != nil {
			merr = multierror.Append(merr, c)
		}
	}
	if merr == nil {
		return nil
	}
	return &ConfigError{Cause: merr.ErrorOrNil()}
}

// RampConvergenceError reports that ramp-to-start (or ramp-to-point)
// finished without the parameter settling within tolerance.
type RampConvergenceError struct {
	Parameter string
	Expected  float64
	Actual    float64
	Tolerance float64
}

func (e *RampConvergenceError) Error() string {
	return fmt.Sprintf("ramp did not converge for %s: expected %.6g, got %.6g (tolerance=%.6g)",
		e.Parameter, e.Expected, e.Actual, e.Tolerance)
}

// ConcurrencyError reports that start() was refused because an unrelated
// sweep is already active in the process-wide registry.
type ConcurrencyError struct {
	Message string
}

func (e *ConcurrencyError) Error() string { return e.Message }

// PersistenceError reports a failure to open a persistence context or
// append a row through the Persistence Façade.
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence: %v", e.Cause) }
func (e *PersistenceError) Unwrap() error  { return e.Cause }
