package options

import (
	"fmt"
	"time"
)

// traceTimeLayout renders the dispatch start time in the trace id.
const traceTimeLayout = "2006-01-02T15:04:05.000000Z"

// SchemeRequest builds the request for the one-shot scheme statement. It
// always executes as root with the base trace id and no timeout.
func SchemeRequest(o *ExecutionOptions, env Env) (Request, error) {
	sql := o.SchemeQuery
	if o.UseTemplates {
		var err error
		if sql, err = substituteToken(sql, env); err != nil {
			return Request{}, err
		}
	}

	return Request{
		Query:   sql,
		Action:  ActionExecute,
		TraceID: DefaultTraceID,
		UserSID: RootUserSID,
	}, nil
}

// ItemRequest builds the request for query index dispatched as iteration
// queryID. The trace id is unique per attempt because it embeds start.
func ItemRequest(o *ExecutionOptions, index, queryID int, start time.Time, env Env) (Request, error) {
	if index < 0 || index >= len(o.ScriptQueries) {
		return Request{}, fmt.Errorf("query index %d out of range [0, %d)", index, len(o.ScriptQueries))
	}

	sql := o.ScriptQueries[index]
	if o.UseTemplates {
		var err error
		if sql, err = substituteToken(sql, env); err != nil {
			return Request{}, err
		}
		sql = substituteQueryID(sql, queryID)
	}

	return Request{
		Query:    sql,
		Action:   o.ActionAt(index),
		TraceID:  Resolve(index, o.TraceIDs, DefaultTraceID) + "-" + start.UTC().Format(traceTimeLayout),
		PoolID:   Resolve(index, o.PoolIDs, ""),
		UserSID:  Resolve(index, o.UserSIDs, RootUserSID),
		Database: Resolve(index, o.Databases, ""),
		Timeout:  Resolve(index, o.Timeouts, time.Duration(0)),
	}, nil
}
