// Package validation checks an execution configuration for consistency once,
// before anything is dispatched.
//
// Two groups of rules are chains rather than independent checks: the kind
// cascade, where the presence of a more general execution kind silences every
// later stage, and the trace-opt selector, where "script" falls through into
// the "all" requirement. Both are evaluated top-down exactly as listed.
package validation
