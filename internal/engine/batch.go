package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchInput is one message of a batch.
type BatchInput struct {
	Name string
	Data []byte
}

// BatchResult is the outcome for one BatchInput. Exactly one of Result and
// Err is set for every input that was processed.
type BatchResult struct {
	Name   string
	Result *Result
	Err    error
}

// TransformBatch transforms inputs with at most workers messages in flight
// (unbounded when workers <= 0). A failed message does not stop the batch;
// results keep the order of inputs. The returned error is only set when ctx
// is cancelled, and inputs not started by then carry ctx's error.
func (e *Engine) TransformBatch(ctx context.Context, inputs []BatchInput, workers int) ([]BatchResult, error) {
	results := make([]BatchResult, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, in := range inputs {
		results[i].Name = in.Name

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return err
			}

			res, err := e.Transform(in.Data)
			results[i].Result = res
			results[i].Err = err

			return nil
		})
	}

	return results, g.Wait()
}
