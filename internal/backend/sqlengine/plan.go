package sqlengine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vk/queryrun/internal/backend"
)

// planStep is one row of EXPLAIN QUERY PLAN.
type planStep struct {
	ID     int64  `json:"id"`
	Parent int64  `json:"parent"`
	Detail string `json:"detail"`
}

type statementPlan struct {
	Statement string     `json:"statement"`
	Steps     []planStep `json:"steps"`
}

func explain(ctx context.Context, q statementRunner, stmts []string) ([]statementPlan, error) {
	plans := make([]statementPlan, 0, len(stmts))
	for _, stmt := range stmts {
		rows, err := q.QueryContext(ctx, "EXPLAIN QUERY PLAN "+stmt)
		if err != nil {
			return nil, fmt.Errorf("failed to explain %q: %w", stmt, err)
		}
		plan := statementPlan{Statement: stmt, Steps: []planStep{}}
		for rows.Next() {
			var (
				step    planStep
				notUsed any
			)
			if err := rows.Scan(&step.ID, &step.Parent, &notUsed, &step.Detail); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to read plan: %w", err)
			}
			plan.Steps = append(plan.Steps, step)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func writePlans(w io.Writer, format backend.PlanFormat, plans []statementPlan) error {
	if w == nil {
		return nil
	}
	if format == backend.PlanFormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plans)
	}

	var b strings.Builder
	for _, plan := range plans {
		fmt.Fprintf(&b, "QUERY PLAN for: %s\n", plan.Statement)
		depth := map[int64]int{0: 0}
		for _, step := range plan.Steps {
			d := depth[step.Parent] + 1
			depth[step.ID] = d
			fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", d), step.Detail)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writeAST writes the parsed statement list of a query.
func writeAST(w io.Writer, stmts []string) error {
	if w == nil {
		return nil
	}
	var b strings.Builder
	for i, stmt := range stmts {
		fmt.Fprintf(&b, "(statement %d %s\n  %q)\n", i, statementKind(stmt), stmt)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
