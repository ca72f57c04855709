package app

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// sinks are the opened Outputs. Files are closed by Close, standard output
// is left alone.
type sinks struct {
	result, schemeAst, scriptAst, scriptPlan io.Writer
	files                                    []*os.File
}

func openSinks(o Outputs, stdout io.Writer) (*sinks, error) {
	s := &sinks{}
	targets := []struct {
		path string
		w    *io.Writer
		name string
	}{
		{o.ResultFile, &s.result, "result"},
		{o.SchemeAstFile, &s.schemeAst, "scheme AST"},
		{o.ScriptAstFile, &s.scriptAst, "script AST"},
		{o.ScriptPlanFile, &s.scriptPlan, "script plan"},
	}
	for _, t := range targets {
		switch t.path {
		case "":
		case "-":
			*t.w = stdout
		default:
			f, err := os.Create(t.path)
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("failed to open %s file: %w", t.name, err)
			}
			s.files = append(s.files, f)
			*t.w = f
		}
	}
	return s, nil
}

func (s *sinks) Close() error {
	var errs []error
	for _, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.files = nil
	return errors.Join(errs...)
}
