// Package metrics provides Prometheus instrumentation for coflow components.
//
// The registry covers the scheduler (jobs submitted, completed, cancelled,
// durations and suspensions by reason), the worker pool behind it, channels
// (sends, receives, parked operations, buffered values, select resolutions),
// actors and the streaming helpers.
//
// # Quick Start
//
//	reg := prometheus.NewRegistry()
//	sched, _ := scheduler.NewWithConfig(scheduler.Config{
//		Workers: 4,
//		Name:    "main",
//		Metrics: metrics.Config{Enabled: true, Registry: reg},
//	})
//
//	ch := channel.NewWithConfig[int](channel.Config{
//		Capacity: channel.Bounded(16),
//		Name:     "orders",
//		Metrics:  metrics.For(reg),
//	})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Available Metrics
//
//   - coflow_scheduler_jobs_submitted_total{scheduler_name}
//   - coflow_scheduler_jobs_completed_total{scheduler_name}
//   - coflow_scheduler_jobs_cancelled_total{scheduler_name}
//   - coflow_scheduler_job_duration_seconds{scheduler_name}
//   - coflow_scheduler_suspensions_total{scheduler_name,reason}
//   - coflow_workerpool_size{pool_name}
//   - coflow_workerpool_active_workers{pool_name}
//   - coflow_workerpool_queued_tasks{pool_name}
//   - coflow_channel_sends_total{channel_name}
//   - coflow_channel_receives_total{channel_name}
//   - coflow_channel_parked_operations{channel_name,side}
//   - coflow_channel_buffered_values{channel_name}
//   - coflow_channel_select_resolved_total{outcome}
//   - coflow_actor_messages_processed_total{actor_name}
//   - coflow_actor_failures_total{actor_name}
//   - coflow_writer_bytes_written_total{writer_name}
//   - coflow_pipeline_throttle_waits_total{stage_name}
//
// Registries are cached per Prometheus registerer (see For), so any number of
// components may share one registerer.
package metrics
