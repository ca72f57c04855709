package hcl

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/queryrun/internal/config"
	"github.com/vk/queryrun/internal/ctxlog"
	"github.com/vk/queryrun/internal/options"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	env options.Env
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL run-file loader. env is exposed to run files
// as the `env` object.
func NewLoader(env options.Env) *Loader {
	return &Loader{env: env}
}

// Load parses, evaluates and translates the run file at path.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return l.decode(ctx, hclFile, filepath.Dir(path))
}

// LoadSource is Load for an in-memory run file. filename is used in
// diagnostics and baseDir anchors relative file() paths.
func (l *Loader) LoadSource(ctx context.Context, src []byte, filename, baseDir string) (*config.Model, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return l.decode(ctx, hclFile, baseDir)
}

func (l *Loader) decode(ctx context.Context, file *hcl.File, baseDir string) (*config.Model, error) {
	var root fileRoot
	diags := gohcl.DecodeBody(file.Body, evalContext(baseDir, l.env), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file: %w", diags)
	}

	model, err := translate(&root)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("HCL loading complete.",
		"queries", len(model.Queries),
		"scheme_query", model.SchemeQuery != "",
		"loop", model.Loop != nil,
	)
	return model, nil
}
