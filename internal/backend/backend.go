// Package backend defines the contract between the run loop and the engine
// that actually executes queries, plus the settings forwarded to it.
//
// The run loop never looks inside a backend error beyond wrapping it; the
// engine owns its own reporting, result buffering and async bookkeeping.
package backend

import (
	"context"

	"github.com/vk/queryrun/internal/options"
)

// Backend executes resolved requests. Calls are made sequentially from a
// single goroutine.
type Backend interface {
	// ExecuteSchemeQuery runs the one-shot scheme statement.
	ExecuteSchemeQuery(ctx context.Context, req options.Request) error

	// ExecuteScript submits a script and waits for it to finish.
	ExecuteScript(ctx context.Context, req options.Request) error
	// FetchScriptResults reads the results of the last finished script.
	FetchScriptResults(ctx context.Context) error
	// ForgetExecutionOperation disposes of the last script's execution record.
	ForgetExecutionOperation(ctx context.Context) error

	ExecuteQuery(ctx context.Context, req options.Request) error
	ExecuteYqlScript(ctx context.Context, req options.Request) error

	// ExecuteQueryAsync submits a request without waiting for it. Failures are
	// reported by the backend itself.
	ExecuteQueryAsync(ctx context.Context, req options.Request)

	// Finalize drains outstanding async work.
	Finalize(ctx context.Context) error
	// PrintScriptResults writes every buffered result to the result output.
	PrintScriptResults(ctx context.Context) error

	Close() error
}
