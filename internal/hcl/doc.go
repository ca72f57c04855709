// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It parses run files, evaluates their expressions with an `env`
// object and a `file()` function, and translates the result into the
// format-agnostic config.Model.
package hcl
