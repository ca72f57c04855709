package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vk/queryrun/internal/backend"
	"github.com/vk/queryrun/internal/ctxlog"
	"github.com/vk/queryrun/internal/options"
)

// execution is a script run whose results have not been forgotten yet.
type execution struct {
	ID       string
	TraceID  string
	Started  time.Time
	Finished time.Time
	Results  []backend.ResultSet
	fetched  bool
}

var errNoExecution = errors.New("no script execution is in progress")

func withTimeout(ctx context.Context, timeouts ...time.Duration) (context.Context, context.CancelFunc) {
	var limit time.Duration
	for _, t := range timeouts {
		if t > 0 && (limit == 0 || t < limit) {
			limit = t
		}
	}
	if limit == 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, limit)
}

// logRequest emits the request identity, at Info when tracing is enabled for
// this kind of query.
func (e *Engine) logRequest(ctx context.Context, req options.Request, scheme bool) {
	logger := ctxlog.FromContext(ctx)
	attrs := []any{
		"trace_id", req.TraceID,
		"database", req.Database,
		"pool_id", req.PoolID,
		"user_sid", req.UserSID,
	}
	if e.cfg.Settings.TraceOpt.Traces(scheme) {
		logger.Info("Query trace enabled.", attrs...)
		return
	}
	logger.Debug("Running query.", attrs...)
}

func (e *Engine) ExecuteSchemeQuery(ctx context.Context, req options.Request) error {
	e.logRequest(ctx, req, true)
	stmts := splitStatements(req.Query)
	if err := writeAST(e.cfg.Settings.SchemeQueryAstOutput, stmts); err != nil {
		return fmt.Errorf("failed to write scheme query ast: %w", err)
	}

	q, err := e.session(ctx, req.Database)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()
	for _, stmt := range stmts {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", statementKind(stmt), err)
		}
	}
	return nil
}

func (e *Engine) ExecuteScript(ctx context.Context, req options.Request) error {
	e.logRequest(ctx, req, false)
	stmts := splitStatements(req.Query)
	if err := writeAST(e.cfg.Settings.ScriptQueryAstOutput, stmts); err != nil {
		return fmt.Errorf("failed to write script ast: %w", err)
	}

	q, err := e.session(ctx, req.Database)
	if err != nil {
		return err
	}
	exec := &execution{ID: uuid.NewString(), TraceID: req.TraceID, Started: time.Now()}
	ctxlog.FromContext(ctx).Debug("Script execution started.", "execution_id", exec.ID)

	ctx, cancel := withTimeout(ctx, req.Timeout, e.cfg.Settings.ScriptCancelAfter)
	defer cancel()

	if req.Action == options.ActionExplain {
		err = e.explainTo(ctx, q, stmts)
	} else {
		exec.Results, err = e.runStatements(ctx, q, stmts)
	}
	exec.Finished = time.Now()

	status := "completed"
	if err != nil {
		status = "failed"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			status = "cancelled"
		}
	}
	if statErr := appendStatistics(e.cfg.Settings.InProgressStatisticsFile, scriptStatistics{
		ExecutionID: exec.ID,
		TraceID:     exec.TraceID,
		Statements:  len(stmts),
		Rows:        countRows(exec.Results),
		Started:     exec.Started,
		ElapsedMs:   exec.Finished.Sub(exec.Started).Milliseconds(),
		Status:      status,
	}); statErr != nil {
		ctxlog.FromContext(ctx).Warn("Failed to record script statistics.", "error", statErr)
	}
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.executions[exec.ID] = exec
	e.current = exec
	e.mu.Unlock()
	return nil
}

func (e *Engine) FetchScriptResults(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return errNoExecution
	}
	if !e.current.fetched {
		e.results = append(e.results, e.current.Results...)
		e.current.fetched = true
	}
	return nil
}

func (e *Engine) ForgetExecutionOperation(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return errNoExecution
	}
	delete(e.executions, e.current.ID)
	e.current = nil
	return nil
}

// PendingExecutions returns the number of script executions not forgotten.
func (e *Engine) PendingExecutions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.executions)
}

func (e *Engine) ExecuteQuery(ctx context.Context, req options.Request) error {
	e.logRequest(ctx, req, false)
	stmts := splitStatements(req.Query)
	q, err := e.session(ctx, req.Database)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	if req.Action == options.ActionExplain {
		return e.explainTo(ctx, q, stmts)
	}
	sets, err := e.runStatements(ctx, q, stmts)
	if err != nil {
		return err
	}
	e.appendResults(sets)
	return nil
}

// ExecuteYqlScript runs the whole script in one transaction.
func (e *Engine) ExecuteYqlScript(ctx context.Context, req options.Request) error {
	e.logRequest(ctx, req, false)
	stmts := splitStatements(req.Query)
	q, err := e.session(ctx, req.Database)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	if req.Action == options.ActionExplain {
		return e.explainTo(ctx, q, stmts)
	}

	tx, err := q.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	sets, err := e.runStatements(ctx, tx, stmts)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	e.appendResults(sets)
	return nil
}

func (e *Engine) ExecuteQueryAsync(ctx context.Context, req options.Request) {
	e.logRequest(ctx, req, false)
	ctx = context.WithoutCancel(ctx)
	e.async.submit(ctx, req.TraceID, func(ctx context.Context) error {
		db, err := e.database(req.Database)
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(ctx, req.Timeout)
		defer cancel()
		_, err = e.runStatements(ctx, db, splitStatements(req.Query))
		return err
	})
}

// Finalize waits for all async queries.
func (e *Engine) Finalize(ctx context.Context) error {
	e.async.wait(ctx)

	e.mu.Lock()
	pending := len(e.executions)
	e.mu.Unlock()
	if pending > 0 {
		ctxlog.FromContext(ctx).Debug("Script executions left unforgotten.", "count", pending)
	}
	return nil
}

func (e *Engine) PrintScriptResults(context.Context) error {
	e.mu.Lock()
	sets := append([]backend.ResultSet(nil), e.results...)
	e.mu.Unlock()

	if e.cfg.Settings.ResultOutput == nil {
		return nil
	}
	return backend.WriteResults(e.cfg.Settings.ResultOutput, e.cfg.Settings.ResultFormat, sets)
}

// statementRunner is the part of a querier that runs row statements; both
// sessions and transactions satisfy it.
type statementRunner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// runStatements runs stmts in order and returns the sets of those that
// produced columns.
func (e *Engine) runStatements(ctx context.Context, q statementRunner, stmts []string) ([]backend.ResultSet, error) {
	var sets []backend.ResultSet
	for _, stmt := range stmts {
		rows, err := q.QueryContext(ctx, stmt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", statementKind(stmt), err)
		}
		set, err := collect(ctx, stmt, rows, e.cfg.Settings.ResultsRowsLimit)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", statementKind(stmt), err)
		}
		if len(set.Columns) > 0 {
			sets = append(sets, set)
		}
	}
	return sets, nil
}

func (e *Engine) explainTo(ctx context.Context, q statementRunner, stmts []string) error {
	plans, err := explain(ctx, q, stmts)
	if err != nil {
		return err
	}
	return writePlans(e.cfg.Settings.ScriptQueryPlanOutput, e.cfg.Settings.PlanFormat, plans)
}

func (e *Engine) appendResults(sets []backend.ResultSet) {
	e.mu.Lock()
	e.results = append(e.results, sets...)
	e.mu.Unlock()
}

func countRows(sets []backend.ResultSet) int {
	n := 0
	for _, s := range sets {
		n += len(s.Rows)
	}
	return n
}
