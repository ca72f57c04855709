package backend

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleSets = []ResultSet{
	{
		Statement: "SELECT z, a FROM t",
		Columns:   []string{"z", "a"},
		Rows:      [][]any{{"last", int64(1)}, {nil, int64(2)}},
	},
}

func TestWriteResults_RowsKeepColumnOrder(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteResults(&buf, ResultFormatRows, sampleSets))

	assert.Equal(t, "{\"z\":\"last\",\"a\":1}\n{\"z\":null,\"a\":2}\n", buf.String())
}

func TestWriteResults_Documents(t *testing.T) {
	testCases := []struct {
		format ResultFormat
		want   []string
	}{
		{format: ResultFormatFullJSON, want: []string{`"results": [`, `"statement": "SELECT z, a FROM t"`}},
		{format: ResultFormatYAML, want: []string{"results:", "statement: SELECT z, a FROM t", "- z"}},
	}

	for _, tc := range testCases {
		t.Run(string(tc.format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteResults(&buf, tc.format, sampleSets))
			for _, want := range tc.want {
				assert.True(t, strings.Contains(buf.String(), want), "missing %q in:\n%s", want, buf.String())
			}
		})
	}
}

func TestWriteResults_UnknownFormat(t *testing.T) {
	assert.Error(t, WriteResults(&bytes.Buffer{}, "csv", sampleSets))
}
