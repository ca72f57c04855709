package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/queryrun/internal/app"
	"github.com/vk/queryrun/internal/backend"
	"github.com/vk/queryrun/internal/hcl"
	"github.com/vk/queryrun/internal/options"
	"github.com/vk/queryrun/internal/testutil"
)

func parse(t *testing.T, args ...string) (*app.Config, bool, error, string) {
	t.Helper()
	var out bytes.Buffer
	cfg, exit, err := Parse(args, &out, hcl.NewLoader(nil))
	return cfg, exit, err, out.String()
}

func TestParse_HelpAndUsage(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "help flag", args: []string{"-h"}},
		{name: "no arguments", args: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, exit, err, out := parse(t, tc.args...)

			require.NoError(t, err)
			assert.True(t, exit)
			assert.Nil(t, cfg)
			assert.Contains(t, out, "Usage:")
		})
	}
}

func TestParse_InlineQueries(t *testing.T) {
	// --- Act ---
	cfg, exit, err, _ := parse(t,
		"--sql", "SELECT 1",
		"--sql", "SELECT 2",
		"-C", "query", "-C", "async",
		"--script-action", "explain",
		"-D", "orders",
		"--trace-id", "bench",
		"-U", "alice",
		"--timeout", "1s,2s",
		"--loop-count", "0",
		"--loop-delay", "100ms",
		"--continue-after-fail",
		"--templates",
		"--result-format", "yaml",
		"--cancel-after", "1500",
		"--trace-opt", "script",
		"--inflight-limit", "4",
		"--async-verbose", "final",
		"--log-level", "DEBUG",
	)

	// --- Assert ---
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, cfg.Execution.ScriptQueries)
	assert.Equal(t, []options.ExecutionKind{options.KindQuery, options.KindAsync}, cfg.Execution.ExecutionCases)
	assert.Equal(t, []options.Action{options.ActionExplain}, cfg.Execution.ScriptQueryActions)
	assert.Equal(t, []string{"orders"}, cfg.Execution.Databases)
	assert.Equal(t, []string{"bench"}, cfg.Execution.TraceIDs)
	assert.Equal(t, []string{"alice"}, cfg.Execution.UserSIDs)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, cfg.Execution.Timeouts)
	assert.True(t, cfg.Execution.UseTemplates)
	assert.Equal(t, options.RunPolicy{LoopCount: 0, LoopDelay: 100 * time.Millisecond, ContinueAfterFail: true}, cfg.Policy)

	assert.Equal(t, backend.ResultFormatYAML, cfg.Backend.ResultFormat)
	assert.Equal(t, 1500*time.Millisecond, cfg.Backend.ScriptCancelAfter)
	assert.Equal(t, backend.TraceOptScript, cfg.Backend.TraceOpt)
	assert.Equal(t, uint64(4), cfg.Backend.Async.InFlightLimit)
	assert.Equal(t, backend.AsyncVerboseFinal, cfg.Backend.Async.Verbose)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "-", cfg.Outputs.ResultFile)
	assert.Equal(t, app.BackendSQLite, cfg.BackendKind)
}

func TestParse_QuerySourcesOrder(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"first.sql":       "SELECT 'file'",
		"scheme.sql":      "CREATE TABLE t (id INTEGER)",
		"more/b.sql":      "SELECT 'dir b'",
		"more/a.sql":      "SELECT 'dir a'",
		"more/ignore.txt": "nope",
	})

	cfg, _, err, _ := parse(t,
		"--script-dir", filepath.Join(dir, "more"),
		"--sql", "SELECT 'inline'",
		"-p", filepath.Join(dir, "first.sql"),
		"-s", filepath.Join(dir, "scheme.sql"),
	)

	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 'file'", "SELECT 'inline'", "SELECT 'dir a'", "SELECT 'dir b'"}, cfg.Execution.ScriptQueries)
	assert.Equal(t, "CREATE TABLE t (id INTEGER)", cfg.Execution.SchemeQuery)
}

func TestParse_RunFileWithOverrides(t *testing.T) {
	// --- Arrange ---
	dir := testutil.WriteFiles(t, map[string]string{
		"run.hcl": `
queries   = ["SELECT 1", "SELECT 2"]
databases = ["a", "b"]
users     = ["alice"]
forget    = true

loop {
  count = 5
  delay = "1s"
}
`,
	})
	runFile := filepath.Join(dir, "run.hcl")

	// --- Act ---
	cfg, _, err, _ := parse(t, runFile, "-D", "c", "--loop-count", "2")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, cfg.Execution.ScriptQueries, "queries come from the run file")
	assert.Equal(t, []string{"c"}, cfg.Execution.Databases, "a list flag replaces the run file list")
	assert.Equal(t, []string{"alice"}, cfg.Execution.UserSIDs)
	assert.True(t, cfg.Execution.ForgetExecution)
	assert.Equal(t, uint32(2), cfg.Policy.LoopCount)
	assert.Equal(t, time.Second, cfg.Policy.LoopDelay, "unchanged flags keep run file values")
}

func TestParse_Errors(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"run.hcl": `queries = ["q"]`})
	runFile := filepath.Join(dir, "run.hcl")

	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "unknown flag", args: []string{"--bogus"}, wantMsg: "unknown flag"},
		{name: "bad execution case", args: []string{"--sql", "q", "-C", "stream"}, wantMsg: "unknown execution case"},
		{name: "bad action", args: []string{"--sql", "q", "--script-action", "run"}, wantMsg: "unknown script action"},
		{name: "bad result format", args: []string{"--sql", "q", "--result-format", "csv"}, wantMsg: "result-format"},
		{name: "bad trace opt", args: []string{"--sql", "q", "--trace-opt", "some"}, wantMsg: "trace-opt"},
		{name: "bad log level", args: []string{"--sql", "q", "--log-level", "loud"}, wantMsg: "invalid log-level"},
		{name: "bad log format", args: []string{"--sql", "q", "--log-format", "xml"}, wantMsg: "invalid log-format"},
		{name: "missing query file", args: []string{"-p", filepath.Join(dir, "absent.sql")}, wantMsg: "failed to read script query"},
		{name: "run file twice", args: []string{runFile, "--run-file", runFile}, wantMsg: "both as argument and --run-file"},
		{name: "missing run file", args: []string{filepath.Join(dir, "absent.hcl")}, wantMsg: "failed to parse HCL file"},
		{name: "socketio without endpoint", args: []string{"--sql", "q", "--backend", "socketio"}, wantMsg: "requires an endpoint"},
		{name: "too many positionals", args: []string{runFile, runFile}, wantMsg: "accepts at most 1 arg"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, exit, err, _ := parse(t, tc.args...)

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}
