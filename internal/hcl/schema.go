package hcl

// fileRoot decodes all top-level attributes and blocks of a run file.
// Unknown attributes are rejected.
type fileRoot struct {
	SchemeQuery     *string    `hcl:"scheme_query,optional"`
	Queries         []string   `hcl:"queries,optional"`
	Templates       *bool      `hcl:"templates,optional"`
	Forget          *bool      `hcl:"forget,optional"`
	ExecutionCases  []string   `hcl:"execution_cases,optional"`
	Actions         []string   `hcl:"actions,optional"`
	Databases       []string   `hcl:"databases,optional"`
	TraceIDs        []string   `hcl:"trace_ids,optional"`
	PoolIDs         []string   `hcl:"pool_ids,optional"`
	Users           []string   `hcl:"users,optional"`
	Timeouts        []string   `hcl:"timeouts,optional"`
	ResultRowsLimit *int64     `hcl:"result_rows_limit,optional"`
	Loop            *loopBlock `hcl:"loop,block"`
}

// loopBlock is the HCL schema for a `loop` block.
type loopBlock struct {
	Count             *int64  `hcl:"count,optional"`
	Delay             *string `hcl:"delay,optional"`
	ContinueAfterFail *bool   `hcl:"continue_after_fail,optional"`
}
