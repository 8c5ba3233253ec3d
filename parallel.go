package rpq

import "context"

type pipeResult struct {
	Out   any
	Error error
}

func runInParallel[D any](ctx context.Context, ch *Chain[D], q Query[D], in any, r chan<- pipeResult) {
	o, e := execute(ctx, ch, q, in, nil)
	r <- pipeResult{
		Out:   o,
		Error: e,
	}
}

// InParallel runs independent chains concurrently, each starting with the stage's input. Its output is the
// chains' outputs in declaration order. When chains fail, the error of the first failing chain in declaration
// order is returned, after every chain has finished.
func InParallel[D any](chains ...*Chain[D]) *Stage[D] {
	return S("InParallel", func(ctx context.Context, q Query[D], in any) (any, error) {

		resultChans := make([]chan pipeResult, len(chains))

		for i, ch := range chains {
			chn := make(chan pipeResult, 1)
			go runInParallel(ctx, ch, q, in, chn)
			resultChans[i] = chn
		}

		out := make([]any, len(chains))
		outErr := make([]error, len(chains))

		for i, rc := range resultChans {
			r := <-rc
			out[i] = r.Out
			outErr[i] = r.Error
		}

		for _, e := range outErr {
			if e != nil {
				return nil, e
			}
		}

		return out, nil
	})
}
