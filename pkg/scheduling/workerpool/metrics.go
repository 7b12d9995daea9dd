package workerpool

import (
	"context"
	"time"

	"github.com/vnykmshr/coflow/pkg/metrics"
)

// MetricsPool wraps a Pool and reports its gauges and how long each task
// waited in the queue before a worker picked it up.
type MetricsPool struct {
	Pool
	name     string
	registry *metrics.Registry
}

// NewWithConfigAndMetrics creates a worker pool that records into the registry
// resolved from metricsConfig. It returns the bare pool when metrics are
// disabled.
func NewWithConfigAndMetrics(config Config, metricsConfig metrics.Config) Pool {
	base := NewWithConfig(config)

	registry := metricsConfig.Resolve()
	if registry == nil {
		return base
	}

	mp := &MetricsPool{Pool: base, name: config.Name, registry: registry}
	mp.refresh()
	return mp
}

func (mp *MetricsPool) refresh() {
	mp.registry.WorkerPoolSize.WithLabelValues(mp.name).Set(float64(mp.Size()))
	mp.registry.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(mp.ActiveWorkers()))
	mp.registry.WorkerPoolQueued.WithLabelValues(mp.name).Set(float64(mp.QueueSize()))
}

// Submit adds a task to the pool for execution.
func (mp *MetricsPool) Submit(task Task) error {
	return mp.SubmitWithContext(context.Background(), task)
}

// SubmitWithContext submits a task stamped with its enqueue time.
func (mp *MetricsPool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return mp.Pool.SubmitWithContext(ctx, nil)
	}

	err := mp.Pool.SubmitWithContext(ctx, &timedTask{Task: task, pool: mp, queued: time.Now()})
	mp.refresh()
	return err
}

type timedTask struct {
	Task
	pool   *MetricsPool
	queued time.Time
}

func (tt *timedTask) Execute(ctx context.Context) error {
	tt.pool.registry.DispatchWait.WithLabelValues(tt.pool.name).Observe(time.Since(tt.queued).Seconds())
	tt.pool.refresh()
	defer tt.pool.refresh()
	return tt.Task.Execute(ctx)
}
