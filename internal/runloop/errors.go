package runloop

import (
	"fmt"
	"time"
)

// Stage names the backend step that failed.
type Stage string

const (
	StageSchemeQuery Stage = "Scheme query execution"
	StageScript      Stage = "Script execution"
	StageFetch       Stage = "Fetch script results"
	StageForget      Stage = "Forget script execution operation"
	StageQuery       Stage = "Query execution"
	StageYqlScript   Stage = "Yql script execution"
)

// ExecutionError is raised when a backend call reports failure. It is the
// only error the continue-after-fail policy applies to, together with
// template errors raised while building the item.
type ExecutionError struct {
	Stage Stage
	At    time.Time
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.At.Format(time.RFC3339), e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// FinalizeError wraps a failure of the backend drain after the loop.
type FinalizeError struct {
	Err error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("failed to finalize runner: %v", e.Err)
}

func (e *FinalizeError) Unwrap() error { return e.Err }

// PrintError wraps a failure while printing results.
type PrintError struct {
	Err error
}

func (e *PrintError) Error() string {
	return fmt.Sprintf("failed to print script results, reason: %v", e.Err)
}

func (e *PrintError) Unwrap() error { return e.Err }
