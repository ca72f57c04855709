package options

import "time"

const (
	// DefaultTraceID is the trace id base used when no --trace-id is given.
	DefaultTraceID = "queryrun"
	// RootUserSID is the identity used for the scheme statement and as the
	// default user of every item.
	RootUserSID = "root@builtin"
)

// ExecutionOptions is the full per-item configuration surface of a run. It is
// built once from the CLI and the run file and never mutated afterwards.
type ExecutionOptions struct {
	ScriptQueries []string
	SchemeQuery   string
	UseTemplates  bool

	ForgetExecution  bool
	ResultsRowsLimit uint64

	ExecutionCases     []ExecutionKind
	ScriptQueryActions []Action
	Databases          []string
	TraceIDs           []string
	PoolIDs            []string
	UserSIDs           []string
	Timeouts           []time.Duration
}

// RunPolicy controls how many times the query list is replayed and how the
// loop reacts to failures.
type RunPolicy struct {
	// LoopCount is the number of passes over the query list; 0 loops forever.
	LoopCount         uint32
	LoopDelay         time.Duration
	ContinueAfterFail bool
}

// DefaultRunPolicy runs the query list exactly once.
func DefaultRunPolicy() RunPolicy {
	return RunPolicy{LoopCount: 1}
}

// KindAt returns the execution kind of the item at index.
func (o *ExecutionOptions) KindAt(index int) ExecutionKind {
	return Resolve(index, o.ExecutionCases, KindScript)
}

// ActionAt returns the action of the item at index.
func (o *ExecutionOptions) ActionAt(index int) Action {
	return Resolve(index, o.ScriptQueryActions, ActionExecute)
}

// HasKind reports whether any item uses kind. With no kinds configured
// every item is a script.
func (o *ExecutionOptions) HasKind(kind ExecutionKind) bool {
	if len(o.ExecutionCases) == 0 {
		return kind == KindScript
	}
	for _, k := range o.ExecutionCases {
		if k == kind {
			return true
		}
	}
	return false
}

// HasResults reports whether any item is synchronous and executed, which
// means the backend will hold results to print after the run.
func (o *ExecutionOptions) HasResults() bool {
	for i := range o.ScriptQueries {
		if o.ActionAt(i) != ActionExecute {
			continue
		}
		if o.KindAt(i).Synchronous() {
			return true
		}
	}
	return false
}
