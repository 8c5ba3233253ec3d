package rpq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func add(n int) *Stage[struct{}] {
	return S("add", func(_ context.Context, _ Query[struct{}], in any) (any, error) {
		v, _ := in.(int)
		return v + n, nil
	})
}

func fail(err error) *Stage[struct{}] {
	return S("fail", func(context.Context, Query[struct{}], any) (any, error) {
		return nil, err
	})
}

type countingUseCase struct {
	calls int
}

func (uc *countingUseCase) Execute(_ context.Context, q Query[struct{}]) (string, error) {
	uc.calls++
	return "ran:" + q.EntityID, nil
}

type recordingLogger struct {
	started   []string
	completed []bool
	errors    []error
}

func (l *recordingLogger) LogMessage(string) {}
func (l *recordingLogger) LogStageStart(name string, _ any) { l.started = append(l.started, name) }
func (l *recordingLogger) LogStageComplete(success bool, _ time.Duration, _ string, _ any) {
	l.completed = append(l.completed, success)
}
func (l *recordingLogger) LogStageError(err error) { l.errors = append(l.errors, err) }

func Test_Execute_ThreadsOutputs(t *testing.T) {
	ch := First(add(1)).Then(add(2)).Then(add(3))

	out, err := Execute(context.Background(), ch, Query[struct{}]{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 6, out)
	assert.Equal(t, 3, ch.Len())
}

func Test_Execute_ShortCircuits(t *testing.T) {
	boom := Conflict("taken")
	uc := &countingUseCase{}
	lgr := &recordingLogger{}

	ch := First(add(1)).Then(fail(boom)).Then(Run("never", UseCase[struct{}, string](uc)))

	out, err := Execute(context.Background(), ch, Query[struct{}]{}, lgr)

	assert.Nil(t, out)
	assert.Same(t, boom, err)
	assert.Equal(t, 0, uc.calls)
	assert.Equal(t, []string{"add", "fail"}, lgr.started)
	assert.Equal(t, []bool{true, false}, lgr.completed)
	assert.Equal(t, []error{boom}, lgr.errors)
}

func Test_Run_ExecutesUseCaseWithQuery(t *testing.T) {
	uc := &countingUseCase{}
	ch := First(Run[struct{}, string]("uc", uc))

	out, err := Execute(context.Background(), ch, Query[struct{}]{EntityID: "7"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ran:7", out)
	assert.Equal(t, 1, uc.calls)
}

func Test_Catch_ReclassifiesLastStage(t *testing.T) {
	cause := errors.New("duplicate key")
	ch := First(add(1)).Then(fail(cause)).Catch(KindConflict, "already exists")

	_, err := Execute(context.Background(), ch, Query[struct{}]{}, nil)

	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.ErrorIs(t, err, cause)
}

func Test_Catch_LeavesSuccessAlone(t *testing.T) {
	ch := First(add(1)).Catch(KindConflict, "unused")

	out, err := Execute(context.Background(), ch, Query[struct{}]{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, out)
}

func Test_Append(t *testing.T) {
	ch := Append(First(add(1)).Then(add(1)), First(add(10)), First(add(100)))

	out, err := Execute(context.Background(), ch, Query[struct{}]{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 112, out)
	assert.Equal(t, 4, ch.Len())
	assert.Nil(t, Append[struct{}]())
}

func Test_If(t *testing.T) {
	isBig := func(_ Query[struct{}], in any) bool { return in.(int) > 5 }

	tests := []struct {
		name  string
		start int
		then  *Chain[struct{}]
		els   *Chain[struct{}]
		want  int
	}{
		{name: "then_branch", start: 10, then: First(add(1)), els: First(add(-1)), want: 11},
		{name: "else_branch", start: 1, then: First(add(1)), els: First(add(-1)), want: 0},
		{name: "nil_else_passes_through", start: 1, then: First(add(1)), want: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ch := First(add(tc.start)).Then(If(isBig, tc.then, tc.els))

			out, err := Execute(context.Background(), ch, Query[struct{}]{}, nil)

			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func Test_If_BranchFailureStopsChain(t *testing.T) {
	always := func(Query[struct{}], any) bool { return true }
	uc := &countingUseCase{}

	ch := First(If(always, First(fail(NotFound("gone"))), nil)).Then(Run[struct{}, string]("after", uc))

	_, err := Execute(context.Background(), ch, Query[struct{}]{}, nil)

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, 0, uc.calls)
}

func Test_StageName(t *testing.T) {
	assert.Equal(t, `  => users.Create(["users"]) =>`, StageName(true, "users.Create", []string{"users"}, true))
	assert.Equal(t, `users.List(["users"], ["audit"])`, FuncStr("users.List", "users", "audit"))
}
