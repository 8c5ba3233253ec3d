package rpq

import "context"

// Step is one unit of work in a request pipeline. in is the output of the previous step, or nil for the first.
type Step interface {
	Execute(ctx context.Context, in any) (any, error)
}

type StepFunc func(ctx context.Context, in any) (any, error)

func (f StepFunc) Execute(ctx context.Context, in any) (any, error) {
	return f(ctx, in)
}

// UseCase is a domain operation over a Query. It reports domain failures as *Error values and never deals
// with status codes.
type UseCase[D, O any] interface {
	Execute(ctx context.Context, q Query[D]) (O, error)
}

// Stage is a step factory in a pipeline. Stages are connected together as double-linked lists by n and l.
// When a chain is executed, New is called with the request's Query to construct the Step, and the Step is
// executed with the output of the previous stage. Name is logged when the stage completes.
type Stage[D any] struct {
	Name string
	New  func(q Query[D]) Step
	n    *Stage[D] // Next stage
	l    *Stage[D] // Last stage
}

func (s *Stage[D]) Chain() *Chain[D] {
	return First(s)
}

type Chain[D any] struct {
	First *Stage[D]
	Last  *Stage[D]
}

// Chains should be defined by sending the first Stage in to the First function and then each following
// Stage into the Then function. The chain definition should read like:
//
//	chain := First(stage0).Then(stage1).Then(stage2) ...
func First[D any](s *Stage[D]) *Chain[D] {
	return &Chain[D]{
		First: s,
		Last:  s,
	}
}

func (ch *Chain[D]) Then(n *Stage[D]) *Chain[D] {
	ch.Last.n = n
	n.l = ch.Last
	ch.Last = n
	return ch
}

// Catch reclassifies the failures of the last stage added so far:
//
//	chain := First(
//	    Run("users.Create", create)).Catch(KindConflict, "user already exists")
//
// The original error stays reachable through errors.Unwrap.
func (ch *Chain[D]) Catch(kind Kind, message string) *Chain[D] {
	s := ch.Last
	newStep := s.New
	s.New = func(q Query[D]) Step {
		step := newStep(q)
		return StepFunc(func(ctx context.Context, in any) (any, error) {
			out, err := step.Execute(ctx, in)
			if err != nil {
				return nil, &Error{Kind: kind, Message: message, Err: err}
			}
			return out, nil
		})
	}
	return ch
}

// Len is the number of stages in the chain.
func (ch *Chain[D]) Len() int {
	n := 0
	for s := ch.First; s != nil; s = s.n {
		n++
	}
	return n
}

// Append concatenates together multiple chains defined by the above First+Then method.
func Append[D any](chains ...*Chain[D]) *Chain[D] {

	if len(chains) == 0 {
		return nil
	}

	// Start with the first chain as the base
	ch := chains[0]

	for i := range chains {

		// Break if there are no more chains to link
		if i == len(chains)-1 {
			break
		}

		// Link ch's last stage to the next chain's first stage
		ch.Last.n = chains[i+1].First
		chains[i+1].First.l = ch.Last

		// Include all of the next chain's stages into ch
		ch.Last = chains[i+1].Last
	}

	return ch
}

// S creates a generic stage that executes the given function.
func S[D any](name string, f func(ctx context.Context, q Query[D], in any) (any, error)) *Stage[D] {
	return &Stage[D]{
		Name: name,
		New: func(q Query[D]) Step {
			return StepFunc(func(ctx context.Context, in any) (any, error) {
				return f(ctx, q, in)
			})
		},
	}
}

// Run creates a stage that executes uc against the request's Query.
func Run[D, O any](name string, uc UseCase[D, O]) *Stage[D] {
	return S(name, func(ctx context.Context, q Query[D], _ any) (any, error) {
		return uc.Execute(ctx, q)
	})
}
