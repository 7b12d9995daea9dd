// Package metrics provides Prometheus instrumentation for coflow components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for coflow components.
type Registry struct {
	// Scheduler Metrics
	JobsSubmitted *prometheus.CounterVec
	JobsCompleted *prometheus.CounterVec
	JobsCancelled *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
	Suspensions   *prometheus.CounterVec

	// Worker Pool Metrics
	WorkerPoolSize   *prometheus.GaugeVec
	WorkerPoolActive *prometheus.GaugeVec
	WorkerPoolQueued *prometheus.GaugeVec
	DispatchWait     *prometheus.HistogramVec

	// Channel Metrics
	ChannelSends    *prometheus.CounterVec
	ChannelReceives *prometheus.CounterVec
	ChannelParked   *prometheus.GaugeVec
	ChannelBuffered *prometheus.GaugeVec
	SelectResolved  *prometheus.CounterVec

	// Actor Metrics
	ActorMessages *prometheus.CounterVec
	ActorFailures *prometheus.CounterVec

	// Streaming Metrics
	WriterBytesWritten *prometheus.CounterVec
	ThrottleWaits      *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by coflow components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Scheduler Metrics
		JobsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "scheduler",
				Name:      "jobs_submitted_total",
				Help:      "Total number of jobs submitted",
			},
			[]string{"scheduler_name"},
		),

		JobsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "scheduler",
				Name:      "jobs_completed_total",
				Help:      "Total number of jobs that completed normally",
			},
			[]string{"scheduler_name"},
		),

		JobsCancelled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "scheduler",
				Name:      "jobs_cancelled_total",
				Help:      "Total number of jobs that were cancelled or failed",
			},
			[]string{"scheduler_name"},
		),

		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "coflow",
				Subsystem: "scheduler",
				Name:      "job_duration_seconds",
				Help:      "Time from job start to terminal state",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"scheduler_name"},
		),

		Suspensions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "scheduler",
				Name:      "suspensions_total",
				Help:      "Total number of times a task handed its worker back",
			},
			[]string{"scheduler_name", "reason"},
		),

		// Worker Pool Metrics
		WorkerPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "coflow",
				Subsystem: "workerpool",
				Name:      "size",
				Help:      "Current worker pool size",
			},
			[]string{"pool_name"},
		),

		WorkerPoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "coflow",
				Subsystem: "workerpool",
				Name:      "active_workers",
				Help:      "Number of workers currently running a task",
			},
			[]string{"pool_name"},
		),

		WorkerPoolQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "coflow",
				Subsystem: "workerpool",
				Name:      "queued_tasks",
				Help:      "Number of runnable tasks waiting for a worker",
			},
			[]string{"pool_name"},
		),

		DispatchWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "coflow",
				Subsystem: "workerpool",
				Name:      "dispatch_wait_seconds",
				Help:      "Time a runnable task waited in the queue for a worker",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"pool_name"},
		),

		// Channel Metrics
		ChannelSends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "channel",
				Name:      "sends_total",
				Help:      "Total number of values accepted by a channel",
			},
			[]string{"channel_name"},
		),

		ChannelReceives: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "channel",
				Name:      "receives_total",
				Help:      "Total number of values delivered by a channel",
			},
			[]string{"channel_name"},
		),

		ChannelParked: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "coflow",
				Subsystem: "channel",
				Name:      "parked_operations",
				Help:      "Number of operations parked on a channel",
			},
			[]string{"channel_name", "side"},
		),

		ChannelBuffered: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "coflow",
				Subsystem: "channel",
				Name:      "buffered_values",
				Help:      "Number of values currently buffered",
			},
			[]string{"channel_name"},
		),

		SelectResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "channel",
				Name:      "select_resolved_total",
				Help:      "Total number of select calls by resolution kind",
			},
			[]string{"outcome"},
		),

		// Actor Metrics
		ActorMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "actor",
				Name:      "messages_processed_total",
				Help:      "Total number of mailbox messages processed",
			},
			[]string{"actor_name"},
		),

		ActorFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "actor",
				Name:      "failures_total",
				Help:      "Total number of actors stopped by a handler error",
			},
			[]string{"actor_name"},
		),

		// Streaming Metrics
		WriterBytesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "writer",
				Name:      "bytes_written_total",
				Help:      "Total bytes written",
			},
			[]string{"writer_name"},
		),

		ThrottleWaits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coflow",
				Subsystem: "pipeline",
				Name:      "throttle_waits_total",
				Help:      "Total number of items delayed by a throttle stage",
			},
			[]string{"stage_name"},
		),
	}
}
