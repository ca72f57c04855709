// Package socketio is a backend that forwards every request to a remote
// query engine over socket.io. Requests and responses are correlated by a
// request id, so concurrent async queries share one connection.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
	"golang.org/x/sync/errgroup"

	"github.com/vk/queryrun/internal/backend"
	"github.com/vk/queryrun/internal/ctxlog"
	"github.com/vk/queryrun/internal/options"
)

const (
	defaultConnectTimeout = 15 * time.Second
	defaultRequestTimeout = 5 * time.Minute
)

// Config holds the connection parameters.
type Config struct {
	Endpoint           string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
	// RequestTimeout bounds a request without its own timeout.
	RequestTimeout time.Duration
	Settings       backend.Settings
}

// Client implements backend.Backend against a remote engine.
type Client struct {
	cfg     Config
	send    func(payload map[string]any)
	close   func()
	pending *pendingCalls
	session string

	mu        sync.Mutex
	execution string
	results   []backend.ResultSet

	async       *errgroup.Group
	asyncFailed atomic.Int64
	asyncTotal  atomic.Int64
}

var _ backend.Backend = (*Client)(nil)

func newClient(cfg Config, send func(map[string]any), closeFn func()) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	group := new(errgroup.Group)
	if limit := cfg.Settings.Async.InFlightLimit; limit > 0 {
		group.SetLimit(int(limit))
	}
	return &Client{
		cfg:     cfg,
		send:    send,
		close:   closeFn,
		pending: newPendingCalls(),
		session: uuid.NewString(),
		async:   group,
	}
}

// Dial connects to cfg.Endpoint and waits for the connect event.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("backend", "socketio", "url", cfg.Endpoint)
	logger.Info("Connecting to remote engine...")

	parsedURL, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute URL", cfg.Endpoint)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	sock := manager.Socket(cfg.Namespace, opts)

	c := newClient(cfg,
		func(payload map[string]any) { sock.Emit(requestEvent, payload) },
		func() { sock.Disconnect() },
	)

	sock.On(types.EventName(responseEvent), func(args ...any) {
		resp, err := decodeResponse(args)
		if err != nil {
			logger.Warn("Dropping malformed response.", "error", err)
			return
		}
		if !c.pending.deliver(resp) {
			logger.Debug("Response for unknown request.", "request_id", resp.RequestID)
		}
	})

	connectChan := make(chan error, 1)
	sock.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", sock.Id())
		connectChan <- nil
	})
	sock.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	sock.Connect()

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-connectChan:
		if err != nil {
			sock.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return c, nil
	case <-ctx.Done():
		sock.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-timer.C:
		sock.Disconnect()
		return nil, fmt.Errorf("timed out after %v waiting for socket.io connection", timeout)
	}
}

// sessionFor returns the session id attached to a request.
func (c *Client) sessionFor() string {
	if c.cfg.Settings.SameSession {
		return c.session
	}
	return uuid.NewString()
}

// call sends r and waits for its response.
func (c *Client) call(ctx context.Context, r request) (response, error) {
	payload, err := r.payload()
	if err != nil {
		return response{}, fmt.Errorf("failed to encode request: %w", err)
	}

	timeout := c.cfg.RequestTimeout
	if r.TimeoutMs > 0 {
		timeout = time.Duration(r.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := c.pending.register(r.RequestID)
	ctxlog.FromContext(ctx).Debug("Emitting request", "operation", r.Operation, "request_id", r.RequestID)
	c.send(payload)

	select {
	case resp := <-ch:
		return resp, resp.err()
	case <-ctx.Done():
		c.pending.cancel(r.RequestID)
		return response{}, fmt.Errorf("%s request %s: %w", r.Operation, r.RequestID, ctx.Err())
	}
}

func (c *Client) newRequest(op string, req options.Request) request {
	return newRequest(uuid.NewString(), c.sessionFor(), op, req)
}

func (c *Client) ExecuteSchemeQuery(ctx context.Context, req options.Request) error {
	r := c.newRequest(opScheme, req)
	r.WantAST = c.cfg.Settings.SchemeQueryAstOutput != nil
	r.Trace = c.cfg.Settings.TraceOpt.Traces(true)
	resp, err := c.call(ctx, r)
	if err != nil {
		return err
	}
	return writeText(c.cfg.Settings.SchemeQueryAstOutput, resp.AST)
}

func (c *Client) ExecuteScript(ctx context.Context, req options.Request) error {
	r := c.newRequest(opScript, req)
	r.WantAST = c.cfg.Settings.ScriptQueryAstOutput != nil
	r.Trace = c.cfg.Settings.TraceOpt.Traces(false)
	r.RowsLimit = c.cfg.Settings.ResultsRowsLimit
	if cancelAfter := c.cfg.Settings.ScriptCancelAfter; cancelAfter > 0 && (r.TimeoutMs == 0 || cancelAfter.Milliseconds() < r.TimeoutMs) {
		r.TimeoutMs = cancelAfter.Milliseconds()
	}

	resp, err := c.call(ctx, r)
	if err != nil {
		return err
	}
	if err := writeText(c.cfg.Settings.ScriptQueryAstOutput, resp.AST); err != nil {
		return err
	}
	if err := writeText(c.cfg.Settings.ScriptQueryPlanOutput, resp.Plan); err != nil {
		return err
	}

	c.mu.Lock()
	c.execution = resp.ExecutionID
	c.mu.Unlock()
	return nil
}

func (c *Client) currentExecution() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.execution == "" {
		return "", fmt.Errorf("no script execution is in progress")
	}
	return c.execution, nil
}

func (c *Client) FetchScriptResults(ctx context.Context) error {
	id, err := c.currentExecution()
	if err != nil {
		return err
	}
	r := c.newRequest(opFetch, options.Request{})
	r.ExecutionID = id
	r.RowsLimit = c.cfg.Settings.ResultsRowsLimit
	resp, err := c.call(ctx, r)
	if err != nil {
		return err
	}
	c.appendResults(resp.Results)
	return nil
}

func (c *Client) ForgetExecutionOperation(ctx context.Context) error {
	id, err := c.currentExecution()
	if err != nil {
		return err
	}
	r := c.newRequest(opForget, options.Request{})
	r.ExecutionID = id
	if _, err := c.call(ctx, r); err != nil {
		return err
	}
	c.mu.Lock()
	c.execution = ""
	c.mu.Unlock()
	return nil
}

func (c *Client) ExecuteQuery(ctx context.Context, req options.Request) error {
	return c.executeWithResults(ctx, opQuery, req)
}

func (c *Client) ExecuteYqlScript(ctx context.Context, req options.Request) error {
	return c.executeWithResults(ctx, opYqlScript, req)
}

func (c *Client) executeWithResults(ctx context.Context, op string, req options.Request) error {
	r := c.newRequest(op, req)
	r.RowsLimit = c.cfg.Settings.ResultsRowsLimit
	r.Trace = c.cfg.Settings.TraceOpt.Traces(false)
	resp, err := c.call(ctx, r)
	if err != nil {
		return err
	}
	if err := writeText(c.cfg.Settings.ScriptQueryPlanOutput, resp.Plan); err != nil {
		return err
	}
	c.appendResults(resp.Results)
	return nil
}

func (c *Client) ExecuteQueryAsync(ctx context.Context, req options.Request) {
	r := c.newRequest(opAsync, req)
	ctx = context.WithoutCancel(ctx)
	logger := ctxlog.FromContext(ctx)
	c.asyncTotal.Add(1)
	c.async.Go(func() error {
		_, err := c.call(ctx, r)
		if err != nil {
			c.asyncFailed.Add(1)
		}
		if c.cfg.Settings.Async.Verbose == backend.AsyncVerboseEachQuery {
			if err != nil {
				logger.Error("Async query failed.", "trace_id", req.TraceID, "error", err)
			} else {
				logger.Info("Async query finished.", "trace_id", req.TraceID)
			}
		}
		return nil
	})
}

// Finalize waits for every async request.
func (c *Client) Finalize(ctx context.Context) error {
	_ = c.async.Wait()
	if total := c.asyncTotal.Load(); total > 0 {
		ctxlog.FromContext(ctx).Info("Async queries finished.", "submitted", total, "failed", c.asyncFailed.Load())
	}
	return nil
}

func (c *Client) PrintScriptResults(context.Context) error {
	c.mu.Lock()
	sets := append([]backend.ResultSet(nil), c.results...)
	c.mu.Unlock()
	if c.cfg.Settings.ResultOutput == nil {
		return nil
	}
	return backend.WriteResults(c.cfg.Settings.ResultOutput, c.cfg.Settings.ResultFormat, sets)
}

// Close disconnects from the remote engine.
func (c *Client) Close() error {
	if c.close != nil {
		c.close()
	}
	return nil
}

func (c *Client) appendResults(sets []backend.ResultSet) {
	c.mu.Lock()
	c.results = append(c.results, sets...)
	c.mu.Unlock()
}

func writeText(w io.Writer, text string) error {
	if w == nil || text == "" {
		return nil
	}
	_, err := io.WriteString(w, text)
	return err
}
