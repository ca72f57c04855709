package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceOpt(t *testing.T) {
	testCases := []struct {
		name         string
		wantScheme   bool
		wantScript   bool
		wantParseErr bool
	}{
		{name: "disabled"},
		{name: "scheme", wantScheme: true},
		{name: "script", wantScript: true},
		{name: "all", wantScheme: true, wantScript: true},
		{name: "everything", wantParseErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opt, err := ParseTraceOpt(tc.name)
			if tc.wantParseErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.name, opt.String())
			assert.Equal(t, tc.wantScheme, opt.Traces(true))
			assert.Equal(t, tc.wantScript, opt.Traces(false))
		})
	}
}

func TestParseChoices(t *testing.T) {
	f, err := ParseResultFormat("yaml")
	require.NoError(t, err)
	assert.Equal(t, ResultFormatYAML, f)

	p, err := ParsePlanFormat("json")
	require.NoError(t, err)
	assert.Equal(t, PlanFormatJSON, p)

	v, err := ParseAsyncVerbose("each-query")
	require.NoError(t, err)
	assert.Equal(t, AsyncVerboseEachQuery, v)

	_, err = ParseResultFormat("csv")
	assert.ErrorContains(t, err, `unknown result-format "csv"`)
}
