package runloop

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vk/queryrun/internal/backend"
	"github.com/vk/queryrun/internal/ctxlog"
	"github.com/vk/queryrun/internal/options"
)

// Driver runs one batch. It is not safe for concurrent use; only Progress
// may be read from other goroutines.
type Driver struct {
	backend backend.Backend
	opts    *options.ExecutionOptions
	policy  options.RunPolicy
	env     options.Env

	tracer   trace.Tracer
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	progress Progress
}

// Option configures a Driver.
type Option func(*Driver)

// WithEnv sets the environment used for template substitution.
func WithEnv(env options.Env) Option {
	return func(d *Driver) { d.env = env }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// WithSleeper replaces the blocking loop delay.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Driver) { d.sleep = sleep }
}

// WithTracer sets the tracer used for dispatch spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Driver) { d.tracer = tracer }
}

// New creates a Driver. opts must already be validated.
func New(b backend.Backend, opts *options.ExecutionOptions, policy options.RunPolicy, optFns ...Option) *Driver {
	d := &Driver{
		backend: b,
		opts:    opts,
		policy:  policy,
		env:     options.Env{},
		tracer:  otel.Tracer("github.com/vk/queryrun/internal/runloop"),
		now:     time.Now,
		sleep:   sleepContext,
	}
	for _, fn := range optFns {
		fn(d)
	}
	return d
}

// Progress returns the live counters of the run.
func (d *Driver) Progress() *Progress {
	return &d.progress
}

// Run executes the batch and reports what happened.
func (d *Driver) Run(ctx context.Context) *Outcome {
	logger := ctxlog.FromContext(ctx)
	out := &Outcome{}
	defer d.progress.finished.Store(true)

	if d.opts.SchemeQuery != "" {
		logger.Info("Executing scheme query...")
		if err := d.runSchemeQuery(ctx); err != nil {
			out.Err = err
			return out
		}
	}

	numberQueries := len(d.opts.ScriptQueries)
	numberLoops := int(d.policy.LoopCount)
	for queryID := 0; numberQueries > 0 && (numberLoops == 0 || queryID < numberQueries*numberLoops); queryID++ {
		if ctx.Err() != nil {
			out.Interrupted = true
			break
		}

		index := queryID % numberQueries
		if index == 0 && queryID > 0 {
			if err := d.sleep(ctx, d.policy.LoopDelay); err != nil {
				out.Interrupted = true
				break
			}
		}
		d.progress.loop.Store(int64(queryID / numberQueries))

		start := d.now()
		if d.opts.KindAt(index).Synchronous() {
			attrs := []any{}
			if numberQueries > 1 {
				attrs = append(attrs, "query", index)
			}
			if numberLoops != 1 {
				attrs = append(attrs, "loop", queryID/numberQueries)
			}
			logger.Info("Executing script...", attrs...)
		}

		err := d.dispatch(ctx, index, queryID, start)
		out.Dispatched++
		d.progress.dispatched.Add(1)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			logger.Warn("Run interrupted during dispatch.", "query", index, "error", err)
			out.Interrupted = true
			break
		}

		d.progress.failed.Add(1)
		if !d.policy.ContinueAfterFail {
			out.Err = err
			return out
		}
		logger.Error(err.Error())
		out.Failures = append(out.Failures, err)
	}

	d.aggregate(ctx, out)
	return out
}

func (d *Driver) runSchemeQuery(ctx context.Context) error {
	req, err := options.SchemeRequest(d.opts, d.env)
	if err != nil {
		return err
	}

	ctx, span := d.startSpan(ctx, "scheme", req)
	defer span.End()

	if err := d.backend.ExecuteSchemeQuery(ctx, req); err != nil {
		return d.fail(span, StageSchemeQuery, err)
	}
	return nil
}

// aggregate drains the backend and prints results. It runs on a context
// detached from cancellation so an interrupted unbounded run still drains.
func (d *Driver) aggregate(ctx context.Context, out *Outcome) {
	logger := ctxlog.FromContext(ctx)
	ctx = context.WithoutCancel(ctx)

	out.Finalized = true
	if err := d.backend.Finalize(ctx); err != nil {
		out.Err = &FinalizeError{Err: err}
		return
	}

	if !d.opts.HasResults() {
		return
	}
	logger.Debug("Printing script results.")
	if err := d.backend.PrintScriptResults(ctx); err != nil {
		out.Err = &PrintError{Err: err}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsExecutionFailure reports whether err came from a backend call or from
// building the item, as opposed to finalization or printing.
func IsExecutionFailure(err error) bool {
	var execErr *ExecutionError
	var templateErr *options.TemplateError
	return errors.As(err, &execErr) || errors.As(err, &templateErr)
}
