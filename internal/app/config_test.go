package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/queryrun/internal/backend"
	"github.com/vk/queryrun/internal/options"
)

func TestNewConfig(t *testing.T) {
	exec := &options.ExecutionOptions{ScriptQueries: []string{"q"}}
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Config{Execution: exec}},
		{name: "no execution", cfg: Config{}, wantErr: "execution options are required"},
		{name: "unknown backend", cfg: Config{Execution: exec, BackendKind: "ydb"}, wantErr: "unknown backend"},
		{name: "socketio without endpoint", cfg: Config{Execution: exec, BackendKind: BackendSocketIO}, wantErr: "requires an endpoint"},
		{name: "bad port", cfg: Config{Execution: exec, MonitoringPort: 70000}, wantErr: "out of range"},
		{name: "statistics to stdout", cfg: Config{Execution: exec, Backend: backend.Settings{InProgressStatisticsFile: "-"}}, wantErr: "standard output"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.cfg)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, BackendSQLite, cfg.BackendKind)
			assert.Equal(t, "queryrun", cfg.OtelService)
			assert.False(t, cfg.ServiceMode())
		})
	}
}

func TestOpenSinks(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer

	s, err := openSinks(Outputs{
		ResultFile:     "-",
		ScriptPlanFile: filepath.Join(dir, "plan.txt"),
	}, &stdout)
	require.NoError(t, err)

	assert.Same(t, &stdout, s.result)
	assert.Nil(t, s.schemeAst)
	assert.Nil(t, s.scriptAst)
	require.NotNil(t, s.scriptPlan)
	_, err = s.scriptPlan.Write([]byte("plan"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	data, err := os.ReadFile(filepath.Join(dir, "plan.txt"))
	require.NoError(t, err)
	assert.Equal(t, "plan", string(data))
}

func TestOpenSinks_BadPath(t *testing.T) {
	_, err := openSinks(Outputs{ScriptAstFile: filepath.Join(t.TempDir(), "missing", "ast.txt")}, &bytes.Buffer{})

	assert.ErrorContains(t, err, "failed to open script AST file")
}
