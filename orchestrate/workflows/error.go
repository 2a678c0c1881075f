package workflows

import "fmt"

// ChainError reports the step at which a chain stopped, the item being
// processed, and the state accumulated before that step. The type
// parameters match those of the ProcessChain call that failed:
//
//	_, err := workflows.ProcessChain(ctx, cfg, stages, transcript, step, nil) // []string, string
//	var chainErr *workflows.ChainError[string, string]
//	if errors.As(err, &chainErr) {
//	    log.Printf("stopped at step %d", chainErr.StepIndex)
//	}
type ChainError[TItem, TContext any] struct {
	StepIndex int
	Item      TItem
	State     TContext
	Err       error
}

func (e *ChainError[TItem, TContext]) Error() string {
	return fmt.Sprintf("chain failed at step %d: %v", e.StepIndex, e.Err)
}

func (e *ChainError[TItem, TContext]) Unwrap() error {
	return e.Err
}
