package rpq

import "context"

// If runs then when cond holds and els otherwise. The selected chain starts with the If stage's input, and
// its output becomes the If stage's output. A nil branch passes the input through unchanged.
func If[D any](cond func(q Query[D], in any) bool, then *Chain[D], els *Chain[D]) *Stage[D] {

	name := "If => then/else"
	if then != nil && els == nil {
		name = "If => then"
	}

	return S(name, func(ctx context.Context, q Query[D], in any) (any, error) {

		ch := els
		if cond(q, in) {
			ch = then
		}

		if ch == nil {
			return in, nil
		}

		return execute(ctx, ch, q, in, nil)
	})
}
