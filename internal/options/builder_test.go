package options

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2025, 3, 14, 15, 9, 26, 535897000, time.UTC)

func TestItemRequest_ResolvesPerItemOptions(t *testing.T) {
	// --- Arrange ---
	o := &ExecutionOptions{
		ScriptQueries:      []string{"SELECT 1", "SELECT 2", "SELECT 3"},
		ScriptQueryActions: []Action{ActionExplain, ActionExecute},
		Databases:          []string{"/Root/db1"},
		TraceIDs:           []string{"first", "second"},
		PoolIDs:            []string{"pool-a"},
		UserSIDs:           []string{"alice", "bob"},
		Timeouts:           []time.Duration{time.Second, 2 * time.Second},
	}

	// --- Act ---
	req, err := ItemRequest(o, 2, 5, testStart, nil)

	// --- Assert ---
	require.NoError(t, err)
	want := Request{
		Query:    "SELECT 3",
		Action:   ActionExecute,
		TraceID:  "second-2025-03-14T15:09:26.535897Z",
		PoolID:   "pool-a",
		UserSID:  "bob",
		Database: "/Root/db1",
		Timeout:  2 * time.Second,
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Errorf("ItemRequest() mismatch (-want +got):\n%s", diff)
	}
}

func TestItemRequest_Defaults(t *testing.T) {
	o := &ExecutionOptions{ScriptQueries: []string{"SELECT 1"}}

	req, err := ItemRequest(o, 0, 0, testStart, nil)

	require.NoError(t, err)
	want := Request{
		Query:   "SELECT 1",
		Action:  ActionExecute,
		TraceID: DefaultTraceID + "-2025-03-14T15:09:26.535897Z",
		UserSID: RootUserSID,
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Errorf("ItemRequest() mismatch (-want +got):\n%s", diff)
	}
}

func TestItemRequest_OutOfRange(t *testing.T) {
	o := &ExecutionOptions{ScriptQueries: []string{"SELECT 1"}}
	_, err := ItemRequest(o, 1, 1, testStart, nil)
	require.Error(t, err)
}

func TestItemRequest_QueryIDTemplate(t *testing.T) {
	o := &ExecutionOptions{ScriptQueries: []string{"SELECT ${QUERY_ID}"}, UseTemplates: true}

	first, err := ItemRequest(o, 0, 0, testStart, nil)
	require.NoError(t, err)
	second, err := ItemRequest(o, 0, 1, testStart, nil)
	require.NoError(t, err)
	again, err := ItemRequest(o, 0, 1, testStart, nil)
	require.NoError(t, err)

	assert.Equal(t, "SELECT 0", first.Query)
	assert.Equal(t, "SELECT 1", second.Query)
	assert.Equal(t, second, again, "same input and counter must produce the same request")
}

func TestItemRequest_TemplatesDisabled(t *testing.T) {
	o := &ExecutionOptions{ScriptQueries: []string{"SELECT '${YQL_TOKEN}', ${QUERY_ID}"}}

	req, err := ItemRequest(o, 0, 3, testStart, nil)

	require.NoError(t, err)
	assert.Equal(t, "SELECT '${YQL_TOKEN}', ${QUERY_ID}", req.Query)
}

func TestItemRequest_TokenTemplate(t *testing.T) {
	o := &ExecutionOptions{ScriptQueries: []string{"PRAGMA token = '${YQL_TOKEN}'"}, UseTemplates: true}

	t.Run("token from environment", func(t *testing.T) {
		req, err := ItemRequest(o, 0, 0, testStart, Env{TokenVariable: "secret"})
		require.NoError(t, err)
		assert.Equal(t, "PRAGMA token = 'secret'", req.Query)
	})

	t.Run("missing token fails", func(t *testing.T) {
		_, err := ItemRequest(o, 0, 0, testStart, Env{"OTHER": "x"})
		var templateErr *TemplateError
		require.True(t, errors.As(err, &templateErr))
		assert.Equal(t, TokenVariable, templateErr.Variable)
	})

	t.Run("empty token counts as missing", func(t *testing.T) {
		_, err := ItemRequest(o, 0, 0, testStart, Env{TokenVariable: ""})
		require.Error(t, err)
	})

	t.Run("missing token is fine when unused", func(t *testing.T) {
		plain := &ExecutionOptions{ScriptQueries: []string{"SELECT 1"}, UseTemplates: true}
		req, err := ItemRequest(plain, 0, 0, testStart, nil)
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1", req.Query)
	})
}

func TestSchemeRequest(t *testing.T) {
	o := &ExecutionOptions{
		SchemeQuery:  "CREATE TABLE t (token TEXT DEFAULT '${YQL_TOKEN}', id INT DEFAULT ${QUERY_ID})",
		UseTemplates: true,
		Databases:    []string{"/Root/ignored"},
		UserSIDs:     []string{"alice"},
		Timeouts:     []time.Duration{time.Minute},
	}

	req, err := SchemeRequest(o, Env{TokenVariable: "t0k"})

	require.NoError(t, err)
	want := Request{
		Query:   "CREATE TABLE t (token TEXT DEFAULT 't0k', id INT DEFAULT ${QUERY_ID})",
		Action:  ActionExecute,
		TraceID: DefaultTraceID,
		UserSID: RootUserSID,
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Errorf("SchemeRequest() mismatch (-want +got):\n%s", diff)
	}

	_, err = SchemeRequest(o, nil)
	require.Error(t, err)
}

func TestEnvFromOS(t *testing.T) {
	t.Setenv("QUERYRUN_TEST_VAR", "a=b")

	env := EnvFromOS()

	v, ok := env.Lookup("QUERYRUN_TEST_VAR")
	assert.True(t, ok)
	assert.Equal(t, "a=b", v)
}
