package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vk/queryrun/internal/app"
	"github.com/vk/queryrun/internal/backend"
	"github.com/vk/queryrun/internal/config"
	"github.com/vk/queryrun/internal/fsutil"
	"github.com/vk/queryrun/internal/options"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

const longHelp = `queryrun - a batch runner for SQL query workloads.

Runs an optional scheme query once, then every script query in order for
the requested number of passes, and prints the collected results.

Queries come from a run file (HCL), from files, inline flags or a directory.
List flags given on the command line replace the run file's list.`

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// loader reads the optional run file.
func Parse(args []string, output io.Writer, loader config.Loader) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		v      flagValues
		result *app.Config
	)
	cmd := &cobra.Command{
		Use:           "queryrun [RUN_FILE]",
		Short:         "Run SQL query workloads against an embedded or remote engine",
		Long:          longHelp,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, positional []string) error {
			if len(positional) > 0 {
				if v.runFile != "" {
					return usageError("run file given both as argument and --run-file")
				}
				v.runFile = positional[0]
			}
			if len(args) == 0 {
				slog.Debug("No arguments provided, printing usage and exiting.")
				return cmd.Usage()
			}

			cfg, err := buildConfig(cmd, &v, loader)
			if err != nil {
				return err
			}
			result = cfg
			return nil
		},
	}
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)
	v.register(cmd.Flags())

	if err := cmd.Execute(); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			return nil, false, exitErr
		}
		return nil, false, usageError("%s", err.Error())
	}
	if result == nil {
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.")
	return result, false, nil
}

// buildConfig layers the flags over the run file.
func buildConfig(cmd *cobra.Command, v *flagValues, loader config.Loader) (*app.Config, error) {
	fs := cmd.Flags()

	exec := &options.ExecutionOptions{}
	policy := options.DefaultRunPolicy()
	if v.runFile != "" {
		model, err := loader.Load(cmd.Context(), v.runFile)
		if err != nil {
			return nil, usageError("%s", err.Error())
		}
		exec, policy, err = model.Options()
		if err != nil {
			return nil, usageError("run file %s: %s", v.runFile, err)
		}
	}

	if v.schemeQueryFile != "" {
		data, err := os.ReadFile(v.schemeQueryFile)
		if err != nil {
			return nil, usageError("failed to read scheme query: %s", err)
		}
		exec.SchemeQuery = string(data)
	}

	queries, err := collectQueries(v)
	if err != nil {
		return nil, err
	}
	if queries != nil {
		exec.ScriptQueries = queries
	}
	if fs.Changed("templates") {
		exec.UseTemplates = v.templates
	}
	if fs.Changed("forget") {
		exec.ForgetExecution = v.forget
	}
	if fs.Changed("result-rows-limit") {
		exec.ResultsRowsLimit = v.resultRowsLimit
	}

	if fs.Changed("execution-case") {
		exec.ExecutionCases = nil
		for _, name := range v.executionCases {
			kind, err := options.ParseExecutionKind(name)
			if err != nil {
				return nil, usageError("%s", err)
			}
			exec.ExecutionCases = append(exec.ExecutionCases, kind)
		}
	}
	if fs.Changed("script-action") {
		exec.ScriptQueryActions = nil
		for _, name := range v.actions {
			action, err := options.ParseAction(name)
			if err != nil {
				return nil, usageError("%s", err)
			}
			exec.ScriptQueryActions = append(exec.ScriptQueryActions, action)
		}
	}
	replaceIfChanged(fs.Changed("database"), &exec.Databases, v.databases)
	replaceIfChanged(fs.Changed("trace-id"), &exec.TraceIDs, v.traceIDs)
	replaceIfChanged(fs.Changed("pool"), &exec.PoolIDs, v.poolIDs)
	replaceIfChanged(fs.Changed("user"), &exec.UserSIDs, v.users)
	replaceIfChanged(fs.Changed("timeout"), &exec.Timeouts, v.timeouts)

	if fs.Changed("loop-count") {
		policy.LoopCount = v.loopCount
	}
	if fs.Changed("loop-delay") {
		policy.LoopDelay = v.loopDelay
	}
	if fs.Changed("continue-after-fail") {
		policy.ContinueAfterFail = v.continueAfterFail
	}

	settings, err := backendSettings(v)
	if err != nil {
		return nil, err
	}

	logFormat := strings.ToLower(v.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, usageError("invalid log-format: must be 'text' or 'json'")
	}
	logLevel := strings.ToLower(v.logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	slog.Debug("CLI parameter validation complete.")

	cfg, err := app.NewConfig(app.Config{
		Execution: exec,
		Policy:    policy,
		Backend:   settings,
		Outputs: app.Outputs{
			ResultFile:     v.resultFile,
			SchemeAstFile:  v.schemeAstFile,
			ScriptAstFile:  v.scriptAstFile,
			ScriptPlanFile: v.scriptPlanFile,
		},
		BackendKind:        v.backend,
		DataDir:            v.dataDir,
		Endpoint:           v.endpoint,
		Namespace:          v.namespace,
		InsecureSkipVerify: v.insecureSkipVerify,
		MonitoringPort:     v.monitoringPort,
		KeepAlive:          v.keepAlive,
		OtelEndpoint:       v.otelEndpoint,
		OtelService:        v.otelService,
		LogFormat:          logFormat,
		LogLevel:           logLevel,
		LogFile:            v.logFile,
	})
	if err != nil {
		return nil, usageError("%s", err)
	}
	return cfg, nil
}

// collectQueries reads the query flags in the order files, inline text,
// directory. It returns nil when no query flag was given.
func collectQueries(v *flagValues) ([]string, error) {
	if len(v.scriptQueryFiles) == 0 && len(v.sql) == 0 && v.scriptDir == "" {
		return nil, nil
	}
	queries := []string{}
	for _, path := range v.scriptQueryFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, usageError("failed to read script query: %s", err)
		}
		queries = append(queries, string(data))
	}
	queries = append(queries, v.sql...)
	if v.scriptDir != "" {
		contents, err := fsutil.ReadFilesByExtension(v.scriptDir, ".sql")
		if err != nil {
			return nil, usageError("failed to read script directory: %s", err)
		}
		queries = append(queries, contents...)
	}
	return queries, nil
}

func replaceIfChanged[T any](changed bool, dst *[]T, values []T) {
	if changed {
		*dst = append([]T(nil), values...)
	}
}

func backendSettings(v *flagValues) (backend.Settings, error) {
	resultFormat, err := backend.ParseResultFormat(v.resultFormat)
	if err != nil {
		return backend.Settings{}, usageError("%s", err)
	}
	planFormat, err := backend.ParsePlanFormat(v.planFormat)
	if err != nil {
		return backend.Settings{}, usageError("%s", err)
	}
	traceOpt, err := backend.ParseTraceOpt(v.traceOpt)
	if err != nil {
		return backend.Settings{}, usageError("%s", err)
	}
	verbose, err := backend.ParseAsyncVerbose(v.asyncVerbose)
	if err != nil {
		return backend.Settings{}, usageError("%s", err)
	}
	return backend.Settings{
		ResultFormat:             resultFormat,
		PlanFormat:               planFormat,
		InProgressStatisticsFile: v.statisticsFile,
		ScriptCancelAfter:        time.Duration(v.cancelAfterMs) * time.Millisecond,
		TraceOpt:                 traceOpt,
		SameSession:              v.sameSession,
		Async: backend.AsyncSettings{
			InFlightLimit: v.inflightLimit,
			Verbose:       verbose,
		},
	}, nil
}
