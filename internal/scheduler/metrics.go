package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "ytmanager"
	MetricsSubsystem = "scheduler"
)

// Metrics holds the Prometheus collectors of the scheduler.
type Metrics struct {
	JobsStarted    *prometheus.CounterVec
	JobsFinished   *prometheus.CounterVec
	JobDuration    *prometheus.HistogramVec
	RecurringFires *prometheus.CounterVec
	WorkerPoolSize prometheus.Gauge
	WorkersBusy    prometheus.Gauge
}

// NewMetrics creates and registers the scheduler metrics on reg, or on the
// default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		JobsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "jobs_started_total",
				Help:      "Total number of job executions started",
			},
			[]string{"job"},
		),
		JobsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "jobs_finished_total",
				Help:      "Total number of job executions finished, by final status",
			},
			[]string{"job", "status"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "job_duration_seconds",
				Help:      "Duration of job executions",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 1800, 3600},
			},
			[]string{"job"},
		),
		RecurringFires: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "recurring_fires_total",
				Help:      "Recurring trigger firings by outcome (run, coalesced, dropped)",
			},
			[]string{"name", "outcome"},
		),
		WorkerPoolSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "worker_pool_size",
			Help:      "Number of workers in the pool",
		}),
		WorkersBusy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "workers_busy",
			Help:      "Number of workers currently running a job",
		}),
	}
}
