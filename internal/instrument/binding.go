package instrument

import "time"

// retryDelay is the wait before SafeGet's single retry. It is a package
// variable (not a constant) so tests can shrink it, the same way the
// teacher's sweep.Runner exposes SetLogger instead of a hardcoded logger.
var retryDelay = 1 * time.Second

// SetRetryDelay overrides the SafeGet retry delay. Intended for tests;
// production code should leave the 1s default in place.
func SetRetryDelay(d time.Duration) { retryDelay = d }

// SafeGet invokes the parameter's get capability. On failure it waits
// retryDelay and retries once; if the retry also fails it returns a
// ParameterError{Kind: ErrKindGet}. Neither call suspends cooperatively —
// both may block the calling goroutine for arbitrary instrument-dependent
// time, so SafeGet must only ever be called from the Runner's own
// goroutine.
func SafeGet(p *Parameter) (float64, error) {
	v, err := p.Get()
	if err == nil {
		return v, nil
	}

	time.Sleep(retryDelay)

	v, err = p.Get()
	if err != nil {
		return 0, &ParameterError{Kind: ErrKindGet, Parameter: p.Identity(), Cause: err}
	}
	return v, nil
}

// SafeSet invokes the parameter's set capability. There is no retry:
// setting may have side effects on the instrument, so a failed set is
// reported immediately as a ParameterError{Kind: ErrKindSet}.
func SafeSet(p *Parameter, value float64) error {
	if err := p.Set(value); err != nil {
		return &ParameterError{Kind: ErrKindSet, Parameter: p.Identity(), Value: value, Cause: err}
	}
	return nil
}
