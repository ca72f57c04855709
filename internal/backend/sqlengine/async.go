package sqlengine

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vk/queryrun/internal/backend"
	"github.com/vk/queryrun/internal/ctxlog"
)

// asyncPool runs fire-and-forget queries with a bounded number in flight.
// Submitting blocks while the limit is reached.
type asyncPool struct {
	group   *errgroup.Group
	verbose backend.AsyncVerbose

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

func newAsyncPool(group *errgroup.Group, verbose backend.AsyncVerbose) *asyncPool {
	return &asyncPool{group: group, verbose: verbose}
}

// submit starts fn. Failures are counted, never propagated to the group.
func (p *asyncPool) submit(ctx context.Context, traceID string, fn func(ctx context.Context) error) {
	p.submitted.Add(1)
	logger := ctxlog.FromContext(ctx)
	p.group.Go(func() error {
		start := time.Now()
		err := fn(ctx)
		p.completed.Add(1)
		if err != nil {
			p.failed.Add(1)
		}
		if p.verbose == backend.AsyncVerboseEachQuery {
			if err != nil {
				logger.Error("Async query failed.", "trace_id", traceID, "error", err)
			} else {
				logger.Info("Async query finished.", "trace_id", traceID, "elapsed", time.Since(start))
			}
		}
		return nil
	})
}

// wait blocks until every submitted query completed and logs a summary.
func (p *asyncPool) wait(ctx context.Context) {
	_ = p.group.Wait()
	if p.submitted.Load() == 0 {
		return
	}
	ctxlog.FromContext(ctx).Info("Async queries finished.",
		"submitted", p.submitted.Load(),
		"completed", p.completed.Load(),
		"failed", p.failed.Load(),
	)
}
