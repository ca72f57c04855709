package sqlengine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vk/queryrun/internal/backend"
	"github.com/vk/queryrun/internal/ctxlog"
)

// collect reads rows into a ResultSet, keeping at most limit rows when limit
// is positive. It closes rows.
func collect(ctx context.Context, stmt string, rows *sql.Rows, limit uint64) (backend.ResultSet, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return backend.ResultSet{}, fmt.Errorf("failed to read columns: %w", err)
	}
	set := backend.ResultSet{Statement: stmt, Columns: columns, Rows: [][]any{}}

	for rows.Next() {
		if limit > 0 && uint64(len(set.Rows)) >= limit {
			set.Truncated = true
			ctxlog.FromContext(ctx).Warn("Result rows limit reached, output is truncated.", "limit", limit)
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return backend.ResultSet{}, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		set.Rows = append(set.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return backend.ResultSet{}, err
	}
	return set, nil
}
