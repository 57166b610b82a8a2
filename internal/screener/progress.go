package screener

import "sync/atomic"

// Progress is a (completed, total) snapshot of a screening run.
type Progress struct {
	Completed int
	Total     int
}

// ProgressSink observes progress. The engine calls it from a single
// goroutine, once at start and once per finished task.
type ProgressSink func(Progress)

// Counter counts finished tasks for one run. Safe for concurrent use.
type Counter struct {
	completed atomic.Int64
	total     int64
}

// NewCounter creates a counter for total tasks.
func NewCounter(total int) *Counter {
	return &Counter{total: int64(total)}
}

// Done records one finished task and returns the updated snapshot.
// The completed count never exceeds total.
func (c *Counter) Done() Progress {
	for {
		cur := c.completed.Load()
		if cur >= c.total {
			return Progress{Completed: int(cur), Total: int(c.total)}
		}
		if c.completed.CompareAndSwap(cur, cur+1) {
			return Progress{Completed: int(cur + 1), Total: int(c.total)}
		}
	}
}

// Snapshot returns the current progress.
func (c *Counter) Snapshot() Progress {
	return Progress{Completed: int(c.completed.Load()), Total: int(c.total)}
}
