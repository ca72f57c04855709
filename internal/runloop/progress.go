package runloop

import "sync/atomic"

// Progress exposes live counters of a run to other goroutines, such as the
// status endpoint of the monitoring surface.
type Progress struct {
	dispatched atomic.Int64
	failed     atomic.Int64
	loop       atomic.Int64
	finished   atomic.Bool
}

// Snapshot is a point-in-time copy of Progress.
type Snapshot struct {
	Dispatched int64 `json:"dispatched"`
	Failed     int64 `json:"failed"`
	Loop       int64 `json:"loop"`
	Finished   bool  `json:"finished"`
}

// Snapshot reads the counters.
func (p *Progress) Snapshot() Snapshot {
	return Snapshot{
		Dispatched: p.dispatched.Load(),
		Failed:     p.failed.Load(),
		Loop:       p.loop.Load(),
		Finished:   p.finished.Load(),
	}
}
