package sqlengine

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// scriptStatistics is one line of the statistics file.
type scriptStatistics struct {
	ExecutionID string    `json:"execution_id"`
	TraceID     string    `json:"trace_id"`
	Statements  int       `json:"statements"`
	Rows        int       `json:"rows"`
	Started     time.Time `json:"started"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	Status      string    `json:"status"`
}

// resetStatistics truncates the statistics file left by a previous run.
func resetStatistics(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open statistics file: %w", err)
	}
	return f.Close()
}

// appendStatistics appends one JSON line to path.
func appendStatistics(path string, s scriptStatistics) error {
	if path == "" {
		return nil
	}
	line, err := json.Marshal(s)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open statistics file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to write statistics: %w", err)
	}
	return f.Close()
}
