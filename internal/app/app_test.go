package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/queryrun/internal/backend"
	"github.com/vk/queryrun/internal/backend/backendtest"
	"github.com/vk/queryrun/internal/options"
	"github.com/vk/queryrun/internal/runloop"
	"github.com/vk/queryrun/internal/testutil"
	"github.com/vk/queryrun/internal/validation"
)

// setupApp builds an App around a recorder backend and captures its logs.
func setupApp(t *testing.T, cfg Config, rec *backendtest.Recorder) (*App, *bytes.Buffer, *testutil.SafeBuffer, *int) {
	t.Helper()

	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	config, err := NewConfig(cfg)
	require.NoError(t, err)

	created := 0
	factory := func(context.Context, *Config, backend.Settings) (backend.Backend, error) {
		created++
		return rec, nil
	}
	var out bytes.Buffer
	logs := &testutil.SafeBuffer{}
	a, err := NewApp(&out, logs, config, WithBackendFactory(factory))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Close()
		if os.Getenv("QUERYRUN_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return a, &out, logs, &created
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestRun_Success(t *testing.T) {
	// --- Arrange ---
	resultPath := filepath.Join(t.TempDir(), "result.json")
	rec := backendtest.New()
	a, _, logs, created := setupApp(t, Config{
		Execution: &options.ExecutionOptions{ScriptQueries: []string{"SELECT 1"}},
		Policy:    options.DefaultRunPolicy(),
		Outputs:   Outputs{ResultFile: resultPath},
	}, rec)

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 1, *created)
	assert.Equal(t, []string{
		backendtest.MethodScript,
		backendtest.MethodFetch,
		backendtest.MethodFinalize,
		backendtest.MethodPrint,
	}, rec.Methods())
	assert.True(t, rec.Closed())
	assert.FileExists(t, resultPath)
	testutil.AssertLogged(t, logs, "Initialization finished.", "Finalization.")
}

func TestRun_ValidationFailureSkipsBackend(t *testing.T) {
	rec := backendtest.New()
	a, _, _, created := setupApp(t, Config{
		Execution: &options.ExecutionOptions{
			ScriptQueries:   []string{"SELECT 1"},
			ExecutionCases:  []options.ExecutionKind{options.KindQuery},
			ForgetExecution: true,
		},
		Policy: options.DefaultRunPolicy(),
	}, rec)

	err := a.Run(context.Background())

	var vErr *validation.Error
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "forget", vErr.Option)
	assert.Zero(t, *created)
}

func TestRun_ExecutionFailure(t *testing.T) {
	testCases := []struct {
		name      string
		keepAlive bool
	}{
		{name: "batch"},
		{name: "keep alive does not suppress", keepAlive: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := backendtest.New()
			rec.Fail = func(method string, _ options.Request) error {
				if method == backendtest.MethodScript {
					return errors.New("boom")
				}
				return nil
			}
			a, _, _, _ := setupApp(t, Config{
				Execution: &options.ExecutionOptions{ScriptQueries: []string{"SELECT 1"}},
				Policy:    options.DefaultRunPolicy(),
				KeepAlive: tc.keepAlive,
			}, rec)

			err := a.Run(context.Background())

			var execErr *runloop.ExecutionError
			require.ErrorAs(t, err, &execErr)
			assert.True(t, rec.Closed())
		})
	}
}

func TestRun_KeepAliveWaitsForCancel(t *testing.T) {
	rec := backendtest.New()
	a, _, logs, _ := setupApp(t, Config{
		Execution: &options.ExecutionOptions{ScriptQueries: []string{"SELECT 1"}},
		Policy:    options.DefaultRunPolicy(),
		KeepAlive: true,
	}, rec)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return rec.Count(backendtest.MethodPrint) == 1
	}, 2*time.Second, 5*time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("Run returned before cancellation: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
	testutil.AssertLogged(t, logs, "waiting for interruption")
}

func TestRun_Interrupted(t *testing.T) {
	testCases := []struct {
		name      string
		loopCount uint32
		cancelAt  int
		wantErr   bool
	}{
		{name: "bounded batch fails", loopCount: 1, cancelAt: 1, wantErr: true},
		{name: "unbounded loop drains", loopCount: 0, cancelAt: 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			rec := backendtest.New()
			rec.OnCall = func(method string) {
				if method == backendtest.MethodQuery && rec.Count(backendtest.MethodQuery) == tc.cancelAt {
					cancel()
				}
			}
			a, _, _, _ := setupApp(t, Config{
				Execution: &options.ExecutionOptions{
					ScriptQueries:  []string{"SELECT 1", "SELECT 2", "SELECT 3"},
					ExecutionCases: []options.ExecutionKind{options.KindQuery},
				},
				Policy: options.RunPolicy{LoopCount: tc.loopCount},
			}, rec)

			// --- Act ---
			err := a.Run(ctx)

			// --- Assert ---
			assert.Equal(t, tc.cancelAt, rec.Count(backendtest.MethodQuery))
			assert.Equal(t, 1, rec.Count(backendtest.MethodFinalize))
			assert.Equal(t, 1, rec.Count(backendtest.MethodPrint))
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, context.Canceled)
				assert.Contains(t, err.Error(), "run interrupted")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRun_MonitoringSuppressesFailure(t *testing.T) {
	// --- Arrange ---
	rec := backendtest.New()
	rec.Fail = func(method string, _ options.Request) error {
		if method == backendtest.MethodQuery {
			return errors.New("boom")
		}
		return nil
	}
	port := freePort(t)
	a, _, logs, _ := setupApp(t, Config{
		Execution: &options.ExecutionOptions{
			ScriptQueries:  []string{"SELECT 1"},
			ExecutionCases: []options.ExecutionKind{options.KindQuery},
		},
		Policy:         options.DefaultRunPolicy(),
		MonitoringPort: port,
	}, rec)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}

	// --- Act ---
	go func() { done <- a.Run(ctx) }()

	var body status
	require.Eventually(t, func() bool {
		resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/status", port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false
		}
		return body.State == "finished"
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	require.NoError(t, err)
	health, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	cancel()

	// --- Assert ---
	require.NoError(t, <-done, "monitoring mode must swallow the run error")
	assert.Equal(t, "OK\n", string(health))
	assert.Equal(t, int64(1), body.Failed)
	assert.Equal(t, int64(1), body.Dispatched)
	testutil.AssertLogged(t, logs, "Run failed, staying up for monitoring.")
}

func TestStatusHandler_BeforeRun(t *testing.T) {
	a, _, _, _ := setupApp(t, Config{
		Execution: &options.ExecutionOptions{ScriptQueries: []string{"SELECT 1"}},
	}, backendtest.New())
	rr := httptest.NewRecorder()

	a.monitoringHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"state":"starting","dispatched":0,"failed":0,"loop":0,"finished":false}`, rr.Body.String())
}

func TestRun_EmbeddedSQLite(t *testing.T) {
	// --- Arrange ---
	cfg, err := NewConfig(Config{
		Execution: &options.ExecutionOptions{
			SchemeQuery:   "CREATE TABLE t (id INTEGER); INSERT INTO t VALUES (1), (2);",
			ScriptQueries: []string{"SELECT count(*) AS n FROM t"},
		},
		Policy:   options.RunPolicy{LoopCount: 2},
		Outputs:  Outputs{ResultFile: "-"},
		LogLevel: "error",
	})
	require.NoError(t, err)
	var out bytes.Buffer
	a, err := NewApp(&out, io.Discard, cfg)
	require.NoError(t, err)

	// --- Act ---
	err = a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "{\"n\":2}\n{\"n\":2}\n", out.String())
}

func TestNewApp_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queryrun.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o644))
	cfg, err := NewConfig(Config{
		Execution: &options.ExecutionOptions{ScriptQueries: []string{"SELECT 1"}},
		LogLevel:  "debug",
		LogFile:   path,
	})
	require.NoError(t, err)

	a, err := NewApp(io.Discard, io.Discard, cfg)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Logger configured successfully.")
	assert.NotContains(t, string(data), "previous run")
}
