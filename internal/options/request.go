package options

import "time"

// Request is a fully resolved unit of work handed to the backend. It is
// built fresh for every dispatch and never shared between iterations.
type Request struct {
	Query    string
	Action   Action
	TraceID  string
	PoolID   string
	UserSID  string
	Database string
	Timeout  time.Duration
}
