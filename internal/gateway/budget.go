package gateway

import "time"

// DeadlineBudget tracks remaining time against a fixed wall-clock
// ceiling, measured from a monotonic clock snapshot taken at
// orchestration start. Pure value type, safe to copy.
type DeadlineBudget struct {
	start   time.Time
	ceiling time.Duration
}

// NewBudget starts a budget of the given ceiling now.
func NewBudget(ceiling time.Duration) DeadlineBudget {
	return DeadlineBudget{start: time.Now(), ceiling: ceiling}
}

// Elapsed returns time spent since orchestration start.
func (b DeadlineBudget) Elapsed() time.Duration {
	return time.Since(b.start)
}

// Remaining returns the time left before the ceiling. The value is
// non-increasing across calls; results at or below zero mean no budget.
func (b DeadlineBudget) Remaining() time.Duration {
	return b.ceiling - time.Since(b.start)
}
