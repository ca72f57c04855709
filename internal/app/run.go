package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/queryrun/internal/ctxlog"
	"github.com/vk/queryrun/internal/runloop"
	"github.com/vk/queryrun/internal/telemetry"
	"github.com/vk/queryrun/internal/validation"
)

const (
	shutdownTimeout = 5 * time.Second
	idleTick        = time.Second
)

// Run validates the configuration, executes the batch and, in service
// mode, stays up until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	cfg := a.config

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.OtelEndpoint, cfg.OtelService)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			a.logger.Warn("Telemetry shutdown failed.", "error", err)
		}
	}()

	out, err := openSinks(cfg.Outputs, a.outW)
	if err != nil {
		return err
	}
	defer out.Close()

	settings := cfg.Backend
	settings.ResultOutput = out.result
	settings.SchemeQueryAstOutput = out.schemeAst
	settings.ScriptQueryAstOutput = out.scriptAst
	settings.ScriptQueryPlanOutput = out.scriptPlan
	settings.ResultsRowsLimit = cfg.Execution.ResultsRowsLimit

	if _, err := validation.Validate(ctx, validation.Input{
		Execution:  cfg.Execution,
		Policy:     cfg.Policy,
		Backend:    settings,
		Monitoring: cfg.MonitoringPort > 0,
		KeepAlive:  cfg.KeepAlive,
	}); err != nil {
		return err
	}

	if cfg.MonitoringPort > 0 {
		if err := a.startHealthcheckServer(ctx, cfg.MonitoringPort); err != nil {
			return err
		}
		defer a.closeHealthcheckServer(ctx)
	}

	b, err := a.newBackend(ctx, cfg, settings)
	if err != nil {
		return fmt.Errorf("failed to create backend: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			a.logger.Warn("Backend close failed.", "error", err)
		}
	}()
	a.logger.Info("Initialization finished.")

	driver := runloop.New(b, cfg.Execution, cfg.Policy, runloop.WithEnv(a.env))
	a.setDriver(driver)
	outcome := driver.Run(ctx)
	a.logger.Info("Finalization.",
		"dispatched", outcome.Dispatched,
		"failures", len(outcome.Failures),
		"interrupted", outcome.Interrupted,
	)

	suppress := cfg.MonitoringPort > 0
	if outcome.Suppressed(suppress) {
		a.logger.Error("Run failed, staying up for monitoring.", "error", outcome.Err)
	}
	runErr := outcome.Resolve(suppress)
	if runErr == nil && outcome.Interrupted && cfg.Policy.LoopCount != 0 && !cfg.ServiceMode() {
		// Only unbounded loops and service runs end cleanly on a signal.
		runErr = fmt.Errorf("run interrupted: %w", context.Cause(ctx))
	}
	if runErr == nil && cfg.ServiceMode() {
		a.logger.Info("Run finished, waiting for interruption.")
		a.idle(ctx)
	}

	a.logger.Debug("App.Run method finished.")
	return runErr
}

// idle blocks until ctx is cancelled.
func (a *App) idle(ctx context.Context) {
	ticker := time.NewTicker(idleTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Interrupted, shutting down.")
			return
		case <-ticker.C:
		}
	}
}
