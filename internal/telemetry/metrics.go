package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var JobsSubmittedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "jobs",
		Name:      "submitted_total",
		Help:      "Total number of jobs submitted for scheduling.",
	},
	[]string{"backend"},
)

var JobsProvisionedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "jobs",
		Name:      "provisioned_total",
		Help:      "Total number of jobs that reached PROVISIONING, by source.",
	},
	[]string{"source"}, // "pool" or "launch"
)

var JobsFailedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "jobs",
		Name:      "failed_total",
		Help:      "Total number of jobs that ended FAILED, by error code.",
	},
	[]string{"error_code"},
)

var JobsRetriedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "jobs",
		Name:      "retried_total",
		Help:      "Total number of jobs held in PENDING for a retry attempt.",
	},
)

var InstancesTerminatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "instances",
		Name:      "terminated_total",
		Help:      "Total number of instances terminated, by reason.",
	},
	[]string{"reason"}, // "idle_timeout", "job_terminating"
)

var SchedulerTickDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "orchestrator",
		Subsystem: "scheduler",
		Name:      "tick_duration_seconds",
		Help:      "Duration of one control-loop tick, by loop name.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"loop"},
)

var SchedulerInFlightGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "orchestrator",
		Subsystem: "scheduler",
		Name:      "in_flight",
		Help:      "Number of ids currently claimed by a control loop's in-flight set.",
	},
	[]string{"loop"},
)

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "orchestrator",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of ambient HTTP requests (health/readiness/metrics surface), by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// All returns every orchestrator-specific metric for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		JobsSubmittedTotal,
		JobsProvisionedTotal,
		JobsFailedTotal,
		JobsRetriedTotal,
		InstancesTerminatedTotal,
		SchedulerTickDuration,
		SchedulerInFlightGauge,
		HTTPRequestDuration,
	}
}

// NewMetricsRegistry creates a Prometheus registry with the Go/process
// collectors plus every collector in extra.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
