package cli

import (
	"time"

	"github.com/spf13/pflag"
)

// flagValues is the raw destination of every command-line flag.
type flagValues struct {
	runFile string

	schemeQueryFile  string
	scriptQueryFiles []string
	sql              []string
	scriptDir        string
	templates        bool
	forget           bool

	executionCases []string
	actions        []string
	databases      []string
	traceIDs       []string
	poolIDs        []string
	users          []string
	timeouts       []time.Duration

	loopCount         uint32
	loopDelay         time.Duration
	continueAfterFail bool

	resultFile      string
	resultFormat    string
	resultRowsLimit uint64
	schemeAstFile   string
	scriptAstFile   string
	scriptPlanFile  string
	planFormat      string
	statisticsFile  string
	cancelAfterMs   uint64
	traceOpt        string
	sameSession     bool
	inflightLimit   uint64
	asyncVerbose    string

	backend            string
	dataDir            string
	endpoint           string
	namespace          string
	insecureSkipVerify bool

	monitoringPort int
	keepAlive      bool
	otelEndpoint   string
	otelService    string

	logFormat string
	logLevel  string
	logFile   string
}

func (v *flagValues) register(fs *pflag.FlagSet) {
	fs.StringVarP(&v.runFile, "run-file", "f", "", "Path to an HCL run file; flags override its values.")

	fs.StringVarP(&v.schemeQueryFile, "scheme-query", "s", "", "File with the scheme query, executed once before the script queries.")
	fs.StringArrayVarP(&v.scriptQueryFiles, "script-query", "p", nil, "File with a script query (repeatable).")
	fs.StringArrayVar(&v.sql, "sql", nil, "Inline script query text (repeatable).")
	fs.StringVar(&v.scriptDir, "script-dir", "", "Directory whose *.sql files are added as script queries in path order.")
	fs.BoolVar(&v.templates, "templates", false, "Substitute ${YQL_TOKEN} and ${QUERY_ID} in queries.")
	fs.BoolVar(&v.forget, "forget", false, "Forget script execution operations after fetching results.")

	fs.StringArrayVarP(&v.executionCases, "execution-case", "C", nil, "Execution case per query: script, query, yql-script or async (repeatable).")
	fs.StringArrayVar(&v.actions, "script-action", nil, "Action per query: execute or explain (repeatable).")
	fs.StringArrayVarP(&v.databases, "database", "D", nil, "Database per query (repeatable).")
	fs.StringArrayVar(&v.traceIDs, "trace-id", nil, "Trace id prefix per query (repeatable).")
	fs.StringArrayVar(&v.poolIDs, "pool", nil, "Resource pool per query (repeatable).")
	fs.StringArrayVarP(&v.users, "user", "U", nil, "User SID per query (repeatable).")
	fs.DurationSliceVar(&v.timeouts, "timeout", nil, "Timeout per query, 0 disables (repeatable or comma separated).")

	fs.Uint32Var(&v.loopCount, "loop-count", 1, "Number of passes over the script queries, 0 runs until interrupted.")
	fs.DurationVar(&v.loopDelay, "loop-delay", 0, "Delay between passes.")
	fs.BoolVar(&v.continueAfterFail, "continue-after-fail", false, "Keep going after a failed query.")

	fs.StringVar(&v.resultFile, "result-file", "-", "File for script results, - is standard output.")
	fs.StringVar(&v.resultFormat, "result-format", "rows", "Result format: rows, full-json or yaml.")
	fs.Uint64Var(&v.resultRowsLimit, "result-rows-limit", 0, "Rows limit per result set, 0 is unlimited.")
	fs.StringVar(&v.schemeAstFile, "scheme-ast-file", "", "File for the scheme query AST, - is standard output.")
	fs.StringVar(&v.scriptAstFile, "script-ast-file", "", "File for script query ASTs, - is standard output.")
	fs.StringVar(&v.scriptPlanFile, "script-plan-file", "", "File for script query plans, - is standard output.")
	fs.StringVar(&v.planFormat, "plan-format", "pretty", "Plan format: pretty or json.")
	fs.StringVar(&v.statisticsFile, "script-statistics", "", "File receiving one JSON line of statistics per script execution.")
	fs.Uint64Var(&v.cancelAfterMs, "cancel-after", 0, "Cancel script executions after this many milliseconds.")
	fs.StringVar(&v.traceOpt, "trace-opt", "disabled", "Trace queries: all, scheme, script or disabled.")
	fs.BoolVar(&v.sameSession, "same-session", false, "Run all synchronous queries in one session.")
	fs.Uint64Var(&v.inflightLimit, "inflight-limit", 0, "Max in-flight async queries, 0 is unlimited.")
	fs.StringVar(&v.asyncVerbose, "async-verbose", "each-query", "Async reporting: each-query or final.")

	fs.StringVar(&v.backend, "backend", "sqlite", "Backend: sqlite (embedded) or socketio (remote).")
	fs.StringVar(&v.dataDir, "data-dir", "", "Directory for file-backed sqlite databases, in memory when empty.")
	fs.StringVar(&v.endpoint, "endpoint", "", "Remote engine URL for the socketio backend.")
	fs.StringVar(&v.namespace, "namespace", "", "socket.io namespace of the remote engine.")
	fs.BoolVar(&v.insecureSkipVerify, "insecure-skip-verify", false, "Skip TLS verification for the remote engine.")

	fs.IntVarP(&v.monitoringPort, "monitoring", "M", 0, "Serve /health and /status on this port and stay up after the run.")
	fs.BoolVar(&v.keepAlive, "keep-alive", false, "Stay up after the run until interrupted.")
	fs.StringVar(&v.otelEndpoint, "otel-endpoint", "", "OTLP/gRPC endpoint for trace export.")
	fs.StringVar(&v.otelService, "otel-service", "queryrun", "Service name reported with traces.")

	fs.StringVar(&v.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	fs.StringVar(&v.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	fs.StringVar(&v.logFile, "log-file", "", "Write logs to this file instead of standard error.")
}
