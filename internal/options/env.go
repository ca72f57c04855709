package options

import (
	"os"
	"strings"
)

// Env is a snapshot of the process environment taken once at startup.
type Env map[string]string

// EnvFromOS snapshots os.Environ into an Env.
func EnvFromOS() Env {
	env := make(Env)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			env[pair[0]] = pair[1]
		}
	}
	return env
}

// Lookup returns the value of name and whether it is set to a non-empty value.
func (e Env) Lookup(name string) (string, bool) {
	v, ok := e[name]
	return v, ok && v != ""
}
