package hcl

import (
	"fmt"
	"math"
	"time"

	"github.com/vk/queryrun/internal/config"
)

// translate converts the decoded HCL schema into the agnostic model.
func translate(root *fileRoot) (*config.Model, error) {
	m := &config.Model{
		Queries:        root.Queries,
		ExecutionCases: root.ExecutionCases,
		Actions:        root.Actions,
		Databases:      root.Databases,
		TraceIDs:       root.TraceIDs,
		PoolIDs:        root.PoolIDs,
		Users:          root.Users,
	}
	if root.SchemeQuery != nil {
		m.SchemeQuery = *root.SchemeQuery
	}
	if root.Templates != nil {
		m.Templates = *root.Templates
	}
	if root.Forget != nil {
		m.Forget = *root.Forget
	}
	if root.ResultRowsLimit != nil {
		if *root.ResultRowsLimit < 0 {
			return nil, fmt.Errorf("result_rows_limit must not be negative, got %d", *root.ResultRowsLimit)
		}
		m.ResultRowsLimit = uint64(*root.ResultRowsLimit)
	}

	for i, raw := range root.Timeouts {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("timeouts[%d]: %w", i, err)
		}
		m.Timeouts = append(m.Timeouts, d)
	}

	if root.Loop != nil {
		loop, err := translateLoop(root.Loop)
		if err != nil {
			return nil, err
		}
		m.Loop = loop
	}
	return m, nil
}

// translateLoop converts a `loop` block. Omitted attributes keep the
// single-pass defaults.
func translateLoop(b *loopBlock) (*config.Loop, error) {
	loop := &config.Loop{Count: 1}
	if b.Count != nil {
		if *b.Count < 0 || *b.Count > math.MaxUint32 {
			return nil, fmt.Errorf("loop count %d is out of range", *b.Count)
		}
		loop.Count = uint32(*b.Count)
	}
	if b.Delay != nil {
		d, err := time.ParseDuration(*b.Delay)
		if err != nil {
			return nil, fmt.Errorf("loop delay: %w", err)
		}
		loop.Delay = d
	}
	if b.ContinueAfterFail != nil {
		loop.ContinueAfterFail = *b.ContinueAfterFail
	}
	return loop, nil
}
