// Package backendtest provides a recording backend.Backend for tests of the
// run loop and the application lifecycle.
package backendtest

import (
	"context"
	"sync"

	"github.com/vk/queryrun/internal/options"
)

// Method names recorded by Recorder.
const (
	MethodSchemeQuery = "ExecuteSchemeQuery"
	MethodScript      = "ExecuteScript"
	MethodFetch       = "FetchScriptResults"
	MethodForget      = "ForgetExecutionOperation"
	MethodQuery       = "ExecuteQuery"
	MethodYqlScript   = "ExecuteYqlScript"
	MethodAsync       = "ExecuteQueryAsync"
	MethodFinalize    = "Finalize"
	MethodPrint       = "PrintScriptResults"
)

// Call is one recorded backend invocation. Request is zero for calls that
// do not take one.
type Call struct {
	Method  string
	Request options.Request
}

// Recorder records every call in order. All fields must be set before the
// recorder is handed to the code under test.
type Recorder struct {
	// Fail decides the result of a call; nil or a nil return means success.
	Fail func(method string, req options.Request) error
	// OnCall runs after every recorded call.
	OnCall func(method string)

	FinalizeErr error
	PrintErr    error

	mu     sync.Mutex
	calls  []Call
	closed bool
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(method string, req options.Request) error {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Method: method, Request: req})
	r.mu.Unlock()

	if r.OnCall != nil {
		r.OnCall(method)
	}
	if r.Fail != nil {
		return r.Fail(method, req)
	}
	return nil
}

func (r *Recorder) ExecuteSchemeQuery(_ context.Context, req options.Request) error {
	return r.record(MethodSchemeQuery, req)
}

func (r *Recorder) ExecuteScript(_ context.Context, req options.Request) error {
	return r.record(MethodScript, req)
}

func (r *Recorder) FetchScriptResults(context.Context) error {
	return r.record(MethodFetch, options.Request{})
}

func (r *Recorder) ForgetExecutionOperation(context.Context) error {
	return r.record(MethodForget, options.Request{})
}

func (r *Recorder) ExecuteQuery(_ context.Context, req options.Request) error {
	return r.record(MethodQuery, req)
}

func (r *Recorder) ExecuteYqlScript(_ context.Context, req options.Request) error {
	return r.record(MethodYqlScript, req)
}

func (r *Recorder) ExecuteQueryAsync(_ context.Context, req options.Request) {
	_ = r.record(MethodAsync, req)
}

func (r *Recorder) Finalize(context.Context) error {
	_ = r.record(MethodFinalize, options.Request{})
	return r.FinalizeErr
}

func (r *Recorder) PrintScriptResults(context.Context) error {
	_ = r.record(MethodPrint, options.Request{})
	return r.PrintErr
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Methods returns the recorded method names in call order.
func (r *Recorder) Methods() []string {
	calls := r.Calls()
	methods := make([]string, len(calls))
	for i, c := range calls {
		methods[i] = c.Method
	}
	return methods
}

// Count returns how many times method was called.
func (r *Recorder) Count(method string) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Queries returns the query texts sent to method, in order.
func (r *Recorder) Queries(method string) []string {
	var queries []string
	for _, c := range r.Calls() {
		if c.Method == method {
			queries = append(queries, c.Request.Query)
		}
	}
	return queries
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
