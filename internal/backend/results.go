package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ResultSet is the materialised output of one row-returning statement.
type ResultSet struct {
	Statement string   `json:"statement" yaml:"statement"`
	Columns   []string `json:"columns" yaml:"columns"`
	Rows      [][]any  `json:"rows" yaml:"rows"`
	Truncated bool     `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// WriteResults renders sets to w in the requested format.
func WriteResults(w io.Writer, format ResultFormat, sets []ResultSet) error {
	switch format {
	case ResultFormatRows, "":
		return writeRows(w, sets)
	case ResultFormatFullJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Results []ResultSet `json:"results"`
		}{Results: sets})
	case ResultFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string][]ResultSet{"results": sets}); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown result format %q", format)
	}
}

// writeRows prints one JSON object per row with keys in column order.
func writeRows(w io.Writer, sets []ResultSet) error {
	var buf bytes.Buffer
	for _, set := range sets {
		for _, row := range set.Rows {
			buf.Reset()
			buf.WriteByte('{')
			for i, col := range set.Columns {
				if i > 0 {
					buf.WriteByte(',')
				}
				key, _ := json.Marshal(col)
				value, err := json.Marshal(row[i])
				if err != nil {
					return fmt.Errorf("failed to encode column %q: %w", col, err)
				}
				buf.Write(key)
				buf.WriteByte(':')
				buf.Write(value)
			}
			buf.WriteString("}\n")
			if _, err := w.Write(buf.Bytes()); err != nil {
				return err
			}
		}
	}
	return nil
}
