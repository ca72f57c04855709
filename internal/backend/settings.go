package backend

import (
	"fmt"
	"io"
	"time"
)

// TraceOptType selects which statements get a transformation trace.
type TraceOptType int

const (
	TraceOptDisabled TraceOptType = iota
	TraceOptScheme
	TraceOptScript
	TraceOptAll
)

var traceOptNames = map[string]TraceOptType{
	"disabled": TraceOptDisabled,
	"scheme":   TraceOptScheme,
	"script":   TraceOptScript,
	"all":      TraceOptAll,
}

// ParseTraceOpt maps a CLI name to a TraceOptType.
func ParseTraceOpt(name string) (TraceOptType, error) {
	t, ok := traceOptNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown trace-opt %q, expected all, scheme, script or disabled", name)
	}
	return t, nil
}

func (t TraceOptType) String() string {
	for name, v := range traceOptNames {
		if v == t {
			return name
		}
	}
	return fmt.Sprintf("TraceOptType(%d)", int(t))
}

// Traces reports whether statements of the given category are traced.
func (t TraceOptType) Traces(scheme bool) bool {
	switch t {
	case TraceOptAll:
		return true
	case TraceOptScheme:
		return scheme
	case TraceOptScript:
		return !scheme
	default:
		return false
	}
}

// ResultFormat is the encoding used by PrintScriptResults.
type ResultFormat string

const (
	ResultFormatRows     ResultFormat = "rows"
	ResultFormatFullJSON ResultFormat = "full-json"
	ResultFormatYAML     ResultFormat = "yaml"
)

// PlanFormat is the encoding of explain output written to the plan sink.
type PlanFormat string

const (
	PlanFormatPretty PlanFormat = "pretty"
	PlanFormatJSON   PlanFormat = "json"
)

// AsyncVerbose controls how async failures are reported.
type AsyncVerbose string

const (
	// AsyncVerboseEachQuery logs every async completion.
	AsyncVerboseEachQuery AsyncVerbose = "each-query"
	// AsyncVerboseFinal logs a summary on Finalize only.
	AsyncVerboseFinal AsyncVerbose = "final"
)

// AsyncSettings configures fire-and-forget execution.
type AsyncSettings struct {
	// InFlightLimit caps concurrently running async requests; 0 is unlimited.
	InFlightLimit uint64
	Verbose       AsyncVerbose
}

// Settings is forwarded to the backend as-is. Writers are owned by the
// caller and may be nil when the sink is disabled.
type Settings struct {
	ResultOutput io.Writer
	ResultFormat ResultFormat
	// ResultsRowsLimit truncates every result set; 0 is unlimited.
	ResultsRowsLimit uint64

	SchemeQueryAstOutput  io.Writer
	ScriptQueryAstOutput  io.Writer
	ScriptQueryPlanOutput io.Writer
	PlanFormat            PlanFormat

	// InProgressStatisticsFile receives one JSON line per finished script.
	InProgressStatisticsFile string

	// ScriptCancelAfter cancels script executions after the delay; 0 disables.
	ScriptCancelAfter time.Duration

	TraceOpt    TraceOptType
	SameSession bool
	Async       AsyncSettings
}

// ParseResultFormat validates a result format name.
func ParseResultFormat(name string) (ResultFormat, error) {
	return parseChoice(name, "result-format", ResultFormatRows, ResultFormatFullJSON, ResultFormatYAML)
}

// ParsePlanFormat validates a plan format name.
func ParsePlanFormat(name string) (PlanFormat, error) {
	return parseChoice(name, "plan-format", PlanFormatPretty, PlanFormatJSON)
}

// ParseAsyncVerbose validates an async verbosity name.
func ParseAsyncVerbose(name string) (AsyncVerbose, error) {
	return parseChoice(name, "async-verbose", AsyncVerboseEachQuery, AsyncVerboseFinal)
}

func parseChoice[T ~string](name, option string, choices ...T) (T, error) {
	for _, c := range choices {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown %s %q, expected one of %v", option, name, choices)
}
