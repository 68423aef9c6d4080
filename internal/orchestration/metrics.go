package orchestration

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/stackctl/internal/provisioning"
)

var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackctl",
			Subsystem: "orchestrator",
			Name:      "operations_total",
			Help:      "Total number of environment operations by operation, kind, and result",
		},
		[]string{"operation", "kind", "result"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stackctl",
			Subsystem: "orchestrator",
			Name:      "operation_duration_seconds",
			Help:      "Duration of environment operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5min
		},
		[]string{"operation", "kind"},
	)

	stepFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackctl",
			Subsystem: "orchestrator",
			Name:      "step_failures_total",
			Help:      "Total number of failed workflow steps by step and policy",
		},
		[]string{"step", "policy"},
	)

	reaperDestroyedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stackctl",
			Subsystem: "reaper",
			Name:      "destroyed_total",
			Help:      "Total number of expired environments destroyed",
		},
	)

	reaperFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stackctl",
			Subsystem: "reaper",
			Name:      "failures_total",
			Help:      "Total number of expired environments that failed to destroy",
		},
	)

	reaperLastSweep = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stackctl",
			Subsystem: "reaper",
			Name:      "last_sweep_timestamp_seconds",
			Help:      "Unix time of the last completed sweep",
		},
	)
)

func init() {
	prometheus.MustRegister(
		operationsTotal,
		operationDuration,
		stepFailuresTotal,
		reaperDestroyedTotal,
		reaperFailuresTotal,
		reaperLastSweep,
	)
}

// recordOperationMetric records the outcome of an orchestrator operation.
func recordOperationMetric(operation string, kind provisioning.EnvKind, err error, start time.Time) {
	result := "success"
	if err != nil {
		result = "error"
	}
	operationsTotal.WithLabelValues(operation, string(kind), result).Inc()
	operationDuration.WithLabelValues(operation, string(kind)).Observe(time.Since(start).Seconds())
}

// recordSweepMetric records the outcome of a reaper sweep.
func recordSweepMetric(destroyed, failed int, at time.Time) {
	reaperDestroyedTotal.Add(float64(destroyed))
	reaperFailuresTotal.Add(float64(failed))
	reaperLastSweep.Set(float64(at.Unix()))
}

// metricsObserver counts failed steps before forwarding events.
type metricsObserver struct {
	next provisioning.Observer
}

func withMetrics(next provisioning.Observer) provisioning.Observer {
	return &metricsObserver{next: next}
}

func (m *metricsObserver) Event(event provisioning.Event) {
	switch event.Type {
	case provisioning.EventStepFailed, provisioning.EventTeardownWarning:
		stepFailuresTotal.WithLabelValues(event.Fields["step"], event.Fields["policy"]).Inc()
	}
	m.next.Event(event)
}

func (m *metricsObserver) WithFields(fields map[string]string) provisioning.Observer {
	return &metricsObserver{next: m.next.WithFields(fields)}
}
