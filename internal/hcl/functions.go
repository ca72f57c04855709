package hcl

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/vk/queryrun/internal/fsutil"
	"github.com/vk/queryrun/internal/options"
)

// evalContext exposes the environment as `env` and the run-file helpers.
// Relative paths given to file() resolve against baseDir.
func evalContext(baseDir string, env options.Env) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(env),
		},
		Functions: map[string]function.Function{
			"file":   fileFunc(baseDir),
			"sqldir": sqlDirFunc(baseDir),
		},
	}
}

func envObject(env options.Env) cty.Value {
	if len(env) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(env))
	for k, v := range env {
		attrs[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(attrs)
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// fileFunc returns file(path), reading a whole file as a string.
func fileFunc(baseDir string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "path", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			data, err := os.ReadFile(resolve(baseDir, args[0].AsString()))
			if err != nil {
				return cty.NilVal, fmt.Errorf("failed to read file: %w", err)
			}
			return cty.StringVal(string(data)), nil
		},
	})
}

// sqlDirFunc returns sqldir(path), the contents of every *.sql file under a
// directory as a list ordered by path.
func sqlDirFunc(baseDir string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "path", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.List(cty.String)),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			contents, err := fsutil.ReadFilesByExtension(resolve(baseDir, args[0].AsString()), ".sql")
			if err != nil {
				return cty.NilVal, err
			}
			if len(contents) == 0 {
				return cty.ListValEmpty(cty.String), nil
			}
			vals := make([]cty.Value, len(contents))
			for i, c := range contents {
				vals[i] = cty.StringVal(c)
			}
			return cty.ListVal(vals), nil
		},
	})
}
