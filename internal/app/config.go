package app

import (
	"errors"
	"fmt"

	"github.com/vk/queryrun/internal/backend"
	"github.com/vk/queryrun/internal/options"
)

// Backend kinds selectable from the command line.
const (
	BackendSQLite   = "sqlite"
	BackendSocketIO = "socketio"
)

// Outputs names the files results and diagnostics are written to. An empty
// path disables the sink and "-" means standard output.
type Outputs struct {
	ResultFile     string
	SchemeAstFile  string
	ScriptAstFile  string
	ScriptPlanFile string
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Execution *options.ExecutionOptions
	Policy    options.RunPolicy
	// Backend carries everything but the output writers, which are opened
	// from Outputs when the app runs.
	Backend backend.Settings
	Outputs Outputs

	BackendKind        string
	DataDir            string
	Endpoint           string
	Namespace          string
	InsecureSkipVerify bool

	MonitoringPort int
	KeepAlive      bool

	OtelEndpoint string
	OtelService  string

	LogFormat string
	LogLevel  string
	LogFile   string
}

// ServiceMode reports whether the app stays up after the batch.
func (c *Config) ServiceMode() bool {
	return c.MonitoringPort > 0 || c.KeepAlive
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.Execution == nil {
		return nil, errors.New("execution options are required")
	}
	if cfg.BackendKind == "" {
		cfg.BackendKind = BackendSQLite
	}
	switch cfg.BackendKind {
	case BackendSQLite:
	case BackendSocketIO:
		if cfg.Endpoint == "" {
			return nil, errors.New("socketio backend requires an endpoint")
		}
	default:
		return nil, fmt.Errorf("unknown backend %q, expected %s or %s", cfg.BackendKind, BackendSQLite, BackendSocketIO)
	}
	if cfg.MonitoringPort < 0 || cfg.MonitoringPort > 65535 {
		return nil, fmt.Errorf("monitoring port %d is out of range", cfg.MonitoringPort)
	}
	if cfg.Backend.InProgressStatisticsFile == "-" {
		return nil, errors.New("script statistics can not be written to standard output")
	}
	if cfg.OtelService == "" {
		cfg.OtelService = "queryrun"
	}
	return &cfg, nil
}
