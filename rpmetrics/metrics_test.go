package rpmetrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremywhuff/rpq"
)

func Test_Collector_ObservesStages(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, nil)

	ok := rpq.S("lookup", func(context.Context, rpq.Query[struct{}], any) (any, error) {
		return "found", nil
	})
	conflict := rpq.S("create", func(context.Context, rpq.Query[struct{}], any) (any, error) {
		return nil, rpq.Conflict("email taken")
	})

	_, err := rpq.Execute(context.Background(), rpq.First(ok).Then(conflict), rpq.Query[struct{}]{}, c)
	require.Error(t, err)

	assert.Equal(t, 2, testutil.CollectAndCount(c.StageDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StageFailures.WithLabelValues("conflict")))

	expected := `
# HELP rpq_stage_failures_total Total number of failed pipeline stages
# TYPE rpq_stage_failures_total counter
rpq_stage_failures_total{kind="conflict"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "rpq_stage_failures_total"))
}

func Test_Collector_ForwardsToNext(t *testing.T) {
	next := &countingLogger{}
	c := New(prometheus.NewRegistry(), next)

	ch := rpq.First(rpq.S("noop", func(context.Context, rpq.Query[struct{}], any) (any, error) {
		return nil, nil
	}))
	_, err := rpq.Execute(context.Background(), ch, rpq.Query[struct{}]{}, c)

	require.NoError(t, err)
	assert.Equal(t, 1, next.messages)
	assert.Equal(t, 1, next.completed)
}

type countingLogger struct {
	rpq.DefaultLogger
	messages  int
	completed int
}

func (l *countingLogger) LogMessage(string) { l.messages++ }
func (l *countingLogger) LogStageComplete(bool, time.Duration, string, any) {
	l.completed++
}
