package rpq

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_InParallel_CollectsOutputsInOrder(t *testing.T) {
	ch := First(add(1)).Then(InParallel(
		First(add(10)),
		First(add(20)).Then(add(1)),
		First(add(30)),
	))

	out, err := Execute(context.Background(), ch, Query[struct{}]{}, nil)

	require.NoError(t, err)
	assert.Equal(t, []any{11, 22, 31}, out)
}

func Test_InParallel_ReturnsFirstFailureAfterAllFinish(t *testing.T) {
	var finished atomic.Int32
	track := S("track", func(context.Context, Query[struct{}], any) (any, error) {
		finished.Add(1)
		return nil, nil
	})

	ch := First(InParallel(
		First(track),
		First(fail(NotFound("first"))),
		First(fail(Conflict("second"))),
	))

	_, err := Execute(context.Background(), ch, Query[struct{}]{}, nil)

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, int32(1), finished.Load())
}
