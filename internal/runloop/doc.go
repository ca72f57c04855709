// Package runloop drives the configured queries against a backend.
//
// A run executes the optional scheme statement, then replays the query list
// for the configured number of loops (forever when the count is zero),
// dispatching each item by its execution kind. Failures either abort the run
// or are logged and skipped, depending on the continue-after-fail policy.
// Runs that reach the end of the loop finalize the backend exactly once and
// print buffered results when any item produces them.
//
// Run never panics on backend failures; everything it learned is returned in
// an Outcome, and the caller decides whether the terminal error reaches the
// process boundary.
package runloop
