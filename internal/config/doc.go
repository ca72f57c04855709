// Package config defines the format-agnostic model of a run file, along
// with the Loader interface for reading it from a concrete format.
//
// A run file describes the batch: the scheme query, the script queries and
// the per-item option lists. Command-line flags are applied on top of the
// model, so a run file is a reusable base and flags tweak single runs.
// Concrete implementations, such as for HCL, are provided in separate
// packages.
package config
