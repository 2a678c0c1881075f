package workflows

// ProgressFunc is called after each successful step with the number of
// completed steps, the total, and the state so far. It is not called for
// a failed step.
type ProgressFunc[TContext any] func(completed, total int, state TContext)
