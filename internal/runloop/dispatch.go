package runloop

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vk/queryrun/internal/ctxlog"
	"github.com/vk/queryrun/internal/options"
)

// dispatch builds the request for one iteration and hands it to the backend
// according to the item's execution kind.
func (d *Driver) dispatch(ctx context.Context, index, queryID int, start time.Time) error {
	req, err := options.ItemRequest(d.opts, index, queryID, start, d.env)
	if err != nil {
		return err
	}

	kind := d.opts.KindAt(index)
	ctx, span := d.startSpan(ctx, kind.String(), req)
	defer span.End()
	span.SetAttributes(
		attribute.Int("queryrun.query_index", index),
		attribute.Int("queryrun.query_id", queryID),
	)

	logger := ctxlog.FromContext(ctx)
	switch kind {
	case options.KindScript:
		if err := d.backend.ExecuteScript(ctx, req); err != nil {
			return d.fail(span, StageScript, err)
		}
		logger.Info("Fetching script results...")
		if err := d.backend.FetchScriptResults(ctx); err != nil {
			return d.fail(span, StageFetch, err)
		}
		if d.opts.ForgetExecution {
			logger.Info("Forgetting script execution operation...")
			if err := d.backend.ForgetExecutionOperation(ctx); err != nil {
				return d.fail(span, StageForget, err)
			}
		}

	case options.KindQuery:
		if err := d.backend.ExecuteQuery(ctx, req); err != nil {
			return d.fail(span, StageQuery, err)
		}

	case options.KindYqlScript:
		if err := d.backend.ExecuteYqlScript(ctx, req); err != nil {
			return d.fail(span, StageYqlScript, err)
		}

	case options.KindAsync:
		d.backend.ExecuteQueryAsync(ctx, req)

	default:
		return fmt.Errorf("unsupported execution kind %v", kind)
	}
	return nil
}

func (d *Driver) startSpan(ctx context.Context, name string, req options.Request) (context.Context, trace.Span) {
	return d.tracer.Start(ctx, "queryrun."+name, trace.WithAttributes(
		attribute.String("queryrun.trace_id", req.TraceID),
		attribute.String("queryrun.action", req.Action.String()),
		attribute.String("queryrun.database", req.Database),
		attribute.String("queryrun.pool_id", req.PoolID),
		attribute.String("queryrun.user_sid", req.UserSID),
	))
}

func (d *Driver) fail(span trace.Span, stage Stage, err error) error {
	execErr := &ExecutionError{Stage: stage, At: d.now(), Err: err}
	span.RecordError(execErr)
	span.SetStatus(codes.Error, string(stage))
	return execErr
}
