package socketio

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vk/queryrun/internal/backend"
	"github.com/vk/queryrun/internal/options"
)

// Event names of the remote query protocol.
const (
	requestEvent  = "queryrun:request"
	responseEvent = "queryrun:response"
)

// Operations understood by the remote engine.
const (
	opScheme    = "scheme"
	opScript    = "script"
	opFetch     = "fetch"
	opForget    = "forget"
	opQuery     = "query"
	opYqlScript = "yql-script"
	opAsync     = "async"
)

// request is the payload of one requestEvent.
type request struct {
	RequestID   string `json:"request_id"`
	SessionID   string `json:"session_id"`
	Operation   string `json:"operation"`
	ExecutionID string `json:"execution_id,omitempty"`
	Query       string `json:"query,omitempty"`
	Action      string `json:"action,omitempty"`
	TraceID     string `json:"trace_id,omitempty"`
	PoolID      string `json:"pool_id,omitempty"`
	UserSID     string `json:"user_sid,omitempty"`
	Database    string `json:"database,omitempty"`
	TimeoutMs   int64  `json:"timeout_ms,omitempty"`
	RowsLimit   uint64 `json:"rows_limit,omitempty"`
	WantAST     bool   `json:"want_ast,omitempty"`
	Trace       bool   `json:"trace,omitempty"`
}

func newRequest(id, session, op string, req options.Request) request {
	return request{
		RequestID: id,
		SessionID: session,
		Operation: op,
		Query:     req.Query,
		Action:    req.Action.String(),
		TraceID:   req.TraceID,
		PoolID:    req.PoolID,
		UserSID:   req.UserSID,
		Database:  req.Database,
		TimeoutMs: req.Timeout.Milliseconds(),
	}
}

// payload converts r into the generic map the socket.io encoder expects.
func (r request) payload() (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// response is the payload of one responseEvent.
type response struct {
	RequestID   string              `json:"request_id"`
	OK          bool                `json:"ok"`
	Error       string              `json:"error,omitempty"`
	ExecutionID string              `json:"execution_id,omitempty"`
	Results     []backend.ResultSet `json:"results,omitempty"`
	Plan        string              `json:"plan,omitempty"`
	AST         string              `json:"ast,omitempty"`
}

func (r response) err() error {
	if r.OK {
		return nil
	}
	if r.Error == "" {
		return fmt.Errorf("remote engine rejected request %s", r.RequestID)
	}
	return fmt.Errorf("remote engine: %s", r.Error)
}

// decodeResponse reads the first event argument as a response.
func decodeResponse(args []any) (response, error) {
	if len(args) == 0 {
		return response{}, fmt.Errorf("empty %s event", responseEvent)
	}
	raw, err := json.Marshal(args[0])
	if err != nil {
		return response{}, fmt.Errorf("failed to re-encode %s payload: %w", responseEvent, err)
	}
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return response{}, fmt.Errorf("malformed %s payload: %w", responseEvent, err)
	}
	if resp.RequestID == "" {
		return response{}, fmt.Errorf("%s payload without request_id", responseEvent)
	}
	return resp, nil
}

// pendingCalls routes responses to the goroutine waiting for them.
type pendingCalls struct {
	mu sync.Mutex
	m  map[string]chan response
}

func newPendingCalls() *pendingCalls {
	return &pendingCalls{m: make(map[string]chan response)}
}

func (p *pendingCalls) register(id string) <-chan response {
	ch := make(chan response, 1)
	p.mu.Lock()
	p.m[id] = ch
	p.mu.Unlock()
	return ch
}

func (p *pendingCalls) cancel(id string) {
	p.mu.Lock()
	delete(p.m, id)
	p.mu.Unlock()
}

// deliver hands resp to its waiter and reports whether one existed.
func (p *pendingCalls) deliver(resp response) bool {
	p.mu.Lock()
	ch, ok := p.m[resp.RequestID]
	delete(p.m, resp.RequestID)
	p.mu.Unlock()
	if ok {
		ch <- resp
	}
	return ok
}

func (p *pendingCalls) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}
