package runloop

// Outcome is the result of a run.
type Outcome struct {
	// Dispatched counts items handed to the backend, failed ones included.
	Dispatched int
	// Failures holds the errors masked by continue-after-fail, in order.
	Failures []error
	// Interrupted is set when the context ended the loop early.
	Interrupted bool
	// Finalized is set when the backend drain was called.
	Finalized bool
	// Err is the terminal error of the run, if any.
	Err error
}

// Resolve returns the error to propagate to the process boundary. With
// suppress set the terminal error is swallowed; the caller is expected to
// have logged it and to keep the process alive.
func (o *Outcome) Resolve(suppress bool) error {
	if o.Err == nil || suppress {
		return nil
	}
	return o.Err
}

// Suppressed reports whether Resolve(suppress) would hide a terminal error.
func (o *Outcome) Suppressed(suppress bool) bool {
	return o.Err != nil && suppress
}
