// Package rpmetrics records pipeline stage metrics with Prometheus.
package rpmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jeremywhuff/rpq"
)

// Collector is an rpq.Logger that observes every stage and forwards all calls to Next, when set.
type Collector struct {
	Next rpq.Logger

	// StageDuration is the latency of completed stages, by stage name and outcome.
	StageDuration *prometheus.HistogramVec
	// StageFailures counts failed stages by error kind.
	StageFailures *prometheus.CounterVec
}

var _ rpq.Logger = (*Collector)(nil)

// New registers the stage metrics with reg, or with the default registerer when reg is nil.
func New(reg prometheus.Registerer, next rpq.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		Next: next,
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rpq_stage_duration_seconds",
				Help:    "Pipeline stage latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage", "outcome"},
		),
		StageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpq_stage_failures_total",
				Help: "Total number of failed pipeline stages",
			},
			[]string{"kind"},
		),
	}
}

func (c *Collector) LogMessage(msg string) {
	if c.Next != nil {
		c.Next.LogMessage(msg)
	}
}

func (c *Collector) LogStageStart(name string, in any) {
	if c.Next != nil {
		c.Next.LogStageStart(name, in)
	}
}

func (c *Collector) LogStageComplete(success bool, elapsed time.Duration, name string, out any) {
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	c.StageDuration.WithLabelValues(name, outcome).Observe(elapsed.Seconds())

	if c.Next != nil {
		c.Next.LogStageComplete(success, elapsed, name, out)
	}
}

func (c *Collector) LogStageError(err error) {
	c.StageFailures.WithLabelValues(rpq.KindOf(err).String()).Inc()

	if c.Next != nil {
		c.Next.LogStageError(err)
	}
}
