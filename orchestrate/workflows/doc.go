// Package workflows provides the sequential fold used to run a pipeline.
//
// ProcessChain applies a StepProcessor to each item in order, threading an
// accumulated state from one step to the next. Step N never starts before
// step N-1 has returned its state, and no two steps run concurrently.
//
//	result, err := workflows.ProcessChain(ctx, cfg, stages, run,
//	    func(ctx context.Context, s Stage, r *Run) (*Run, error) {
//	        r.Append(s.Name, execute(ctx, s, r))
//	        return r, nil
//	    }, nil)
//
// A processor error or a cancelled context stops the chain with a
// *ChainError carrying the failing step, item and state.
package workflows
