package validation

import (
	"context"
	"fmt"

	"github.com/vk/queryrun/internal/backend"
	"github.com/vk/queryrun/internal/ctxlog"
	"github.com/vk/queryrun/internal/options"
)

// Input is everything the validator looks at.
type Input struct {
	Execution *options.ExecutionOptions
	Policy    options.RunPolicy
	Backend   backend.Settings

	// Monitoring and KeepAlive keep the process alive after the batch, which
	// makes an empty query list acceptable.
	Monitoring bool
	KeepAlive  bool
}

// Report carries non-fatal findings.
type Report struct {
	Warnings []string
}

// Validate runs every rule in order and returns the first violation.
// Warnings are logged through the context logger and returned in the report.
func Validate(ctx context.Context, in Input) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	report := &Report{}
	o := in.Execution

	if o.SchemeQuery == "" && len(o.ScriptQueries) == 0 && !in.Monitoring && !in.KeepAlive {
		return nil, newError("queries", "scheme-query|script-query|monitoring|keep-alive", "nothing to execute and is not running as daemon")
	}

	checks := []func(Input, *Report) error{
		validateSizes,
		validateSchemeOptions,
		validateSameSession,
		validateKindCascade,
		validateAsync,
		validateTraceOpt,
	}
	for _, check := range checks {
		if err := check(in, report); err != nil {
			logger.Debug("Configuration rejected.", "error", err)
			return nil, err
		}
	}

	for _, w := range report.Warnings {
		logger.Warn(w)
	}
	logger.Debug("Configuration validated.", "warnings", len(report.Warnings))
	return report, nil
}

func validateSizes(in Input, _ *Report) error {
	o := in.Execution
	numberQueries := len(o.ScriptQueries)
	sizes := []struct {
		option string
		size   int
	}{
		{"execution cases", len(o.ExecutionCases)},
		{"script query actions", len(o.ScriptQueryActions)},
		{"databases", len(o.Databases)},
		{"trace ids", len(o.TraceIDs)},
		{"pool ids", len(o.PoolIDs)},
		{"user SIDs", len(o.UserSIDs)},
		{"timeouts", len(o.Timeouts)},
	}
	for _, s := range sizes {
		if s.size > numberQueries {
			return newError(s.option, "script-query", "too many %s: specified %d, when number of queries is %d", s.option, s.size, numberQueries)
		}
	}
	return nil
}

func validateSchemeOptions(in Input, _ *Report) error {
	if in.Execution.SchemeQuery != "" {
		return nil
	}
	if in.Backend.SchemeQueryAstOutput != nil {
		return newError("scheme-ast-file", "scheme-query", "scheme query AST output can not be used without scheme query")
	}
	return nil
}

func validateSameSession(in Input, _ *Report) error {
	if in.Backend.SameSession && in.Execution.HasKind(options.KindAsync) {
		return newError("same-session", "async", "same session can not be used with async queries")
	}
	return nil
}

// gatedOption is an option that is only meaningful for some execution kinds.
type gatedOption struct {
	name    string
	set     bool
	message string
}

// cascadeStage rejects its options unless kind is present. A present kind
// ends the whole cascade.
type cascadeStage struct {
	kind    options.ExecutionKind
	options []gatedOption
}

func kindCascade(in Input) []cascadeStage {
	o := in.Execution
	b := in.Backend
	return []cascadeStage{
		{
			kind: options.KindScript,
			options: []gatedOption{
				{"forget", o.ForgetExecution, "forget execution can not be used without generic script queries"},
				{"cancel-after", b.ScriptCancelAfter > 0, "cancel after can not be used without generic script queries"},
			},
		},
		{
			kind: options.KindQuery,
			options: []gatedOption{
				{"result-rows-limit", o.ResultsRowsLimit > 0, "result rows limit can not be used without script queries"},
				{"script-statistics", b.InProgressStatisticsFile != "", "script statistics can not be used without script queries"},
			},
		},
		{
			kind: options.KindYqlScript,
			options: []gatedOption{
				{"script-ast-file", b.ScriptQueryAstOutput != nil, "script query AST output can not be used without script/yql queries"},
				{"script-plan-file", b.ScriptQueryPlanOutput != nil, "script query plan output can not be used without script/yql queries"},
				{"same-session", b.SameSession, "same session can not be used without script/yql queries"},
			},
		},
	}
}

// validateKindCascade walks the stages top-down. For example a configuration
// with a script item accepts a result rows limit even without query items,
// and one with a query item accepts a plan sink without yql-script items.
func validateKindCascade(in Input, _ *Report) error {
	for _, stage := range kindCascade(in) {
		if in.Execution.HasKind(stage.kind) {
			return nil
		}
		for _, opt := range stage.options {
			if opt.set {
				return newError(opt.name, stage.kind.String(), "%s", opt.message)
			}
		}
	}
	return nil
}

func validateAsync(in Input, report *Report) error {
	limit := in.Backend.Async.InFlightLimit
	if limit == 0 {
		return nil
	}
	if !in.Execution.HasKind(options.KindAsync) {
		return newError("inflight-limit", "async", "in flight limit can not be used without async queries")
	}

	loops := uint64(in.Policy.LoopCount)
	if loops == 0 {
		return nil
	}
	if maxQueries := uint64(len(in.Execution.ScriptQueries)) * loops; limit > maxQueries {
		report.Warnings = append(report.Warnings, fmt.Sprintf("inflight limit is %d, that is larger than max possible number of queries %d", limit, maxQueries))
	}
	return nil
}

// traceStage is one case of the trace-opt selector. Stages with fallthrough
// continue into the next stage after their own check passes.
type traceStage struct {
	selector     backend.TraceOptType
	violated     func(*options.ExecutionOptions) bool
	requires     string
	message      string
	fallsThrough bool
}

var traceStages = []traceStage{
	{
		selector: backend.TraceOptScheme,
		violated: func(o *options.ExecutionOptions) bool { return o.SchemeQuery == "" },
		requires: "scheme-query",
		message:  "trace opt type scheme cannot be used without scheme query",
	},
	{
		selector:     backend.TraceOptScript,
		violated:     func(o *options.ExecutionOptions) bool { return len(o.ScriptQueries) == 0 },
		requires:     "script-query",
		message:      "trace opt type script cannot be used without script queries",
		fallsThrough: true,
	},
	{
		selector:     backend.TraceOptAll,
		violated:     func(o *options.ExecutionOptions) bool { return o.SchemeQuery == "" && len(o.ScriptQueries) == 0 },
		requires:     "scheme-query|script-query",
		message:      "trace opt type all cannot be used without any queries",
		fallsThrough: true,
	},
	{
		selector: backend.TraceOptDisabled,
		violated: func(*options.ExecutionOptions) bool { return false },
	},
}

func validateTraceOpt(in Input, _ *Report) error {
	start := -1
	for i, stage := range traceStages {
		if stage.selector == in.Backend.TraceOpt {
			start = i
			break
		}
	}
	if start < 0 {
		return newError("trace-opt", "", "unknown trace opt type %v", in.Backend.TraceOpt)
	}

	for _, stage := range traceStages[start:] {
		if stage.violated(in.Execution) {
			return newError("trace-opt", stage.requires, "%s", stage.message)
		}
		if !stage.fallsThrough {
			return nil
		}
	}
	return nil
}
