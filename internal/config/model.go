package config

import (
	"fmt"
	"time"

	"github.com/vk/queryrun/internal/options"
)

// Model is the unified, format-agnostic representation of a run file.
type Model struct {
	SchemeQuery string
	Queries     []string
	Templates   bool
	Forget      bool

	ExecutionCases []string
	Actions        []string
	Databases      []string
	TraceIDs       []string
	PoolIDs        []string
	Users          []string
	Timeouts       []time.Duration

	ResultRowsLimit uint64

	// Loop is nil when the run file has no loop block.
	Loop *Loop
}

// Loop is the format-agnostic representation of a `loop` block.
type Loop struct {
	Count             uint32
	Delay             time.Duration
	ContinueAfterFail bool
}

// Options translates the model into execution options and a run policy.
// Names of execution cases and actions are resolved here so that a bad run
// file fails before anything is executed.
func (m *Model) Options() (*options.ExecutionOptions, options.RunPolicy, error) {
	o := &options.ExecutionOptions{
		ScriptQueries:    append([]string(nil), m.Queries...),
		SchemeQuery:      m.SchemeQuery,
		UseTemplates:     m.Templates,
		ForgetExecution:  m.Forget,
		ResultsRowsLimit: m.ResultRowsLimit,
		Databases:        append([]string(nil), m.Databases...),
		TraceIDs:         append([]string(nil), m.TraceIDs...),
		PoolIDs:          append([]string(nil), m.PoolIDs...),
		UserSIDs:         append([]string(nil), m.Users...),
		Timeouts:         append([]time.Duration(nil), m.Timeouts...),
	}

	for _, name := range m.ExecutionCases {
		kind, err := options.ParseExecutionKind(name)
		if err != nil {
			return nil, options.RunPolicy{}, fmt.Errorf("execution_cases: %w", err)
		}
		o.ExecutionCases = append(o.ExecutionCases, kind)
	}
	for _, name := range m.Actions {
		action, err := options.ParseAction(name)
		if err != nil {
			return nil, options.RunPolicy{}, fmt.Errorf("actions: %w", err)
		}
		o.ScriptQueryActions = append(o.ScriptQueryActions, action)
	}

	policy := options.DefaultRunPolicy()
	if m.Loop != nil {
		policy = options.RunPolicy{
			LoopCount:         m.Loop.Count,
			LoopDelay:         m.Loop.Delay,
			ContinueAfterFail: m.Loop.ContinueAfterFail,
		}
	}
	return o, policy, nil
}
