package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stephrichter/tesserae-v5/search"
)

const (
	namespace = "tesserae"
	subsystem = "search"

	jobsEnqueuedTotal = "jobs_enqueued_total"
	jobsDroppedTotal  = "jobs_dropped_total"
	jobsStartedTotal  = "jobs_started_total"
	jobsFinishedTotal = "jobs_finished_total"
	jobDuration       = "job_duration_seconds"
	queuePending      = "queue_pending"

	// Labels
	algorithmLabel = "algorithm"
	outcomeLabel   = "outcome"
)

// Outcomes recorded on jobs_finished_total.
const (
	OutcomeDone     = "done"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var algorithmLabels = []string{
	algorithmLabel,
}

var finishedLabels = []string{
	algorithmLabel,
	outcomeLabel,
}

// JobMonitor records pool activity as Prometheus metrics.
type JobMonitor struct {
	enqueued *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	started  *prometheus.CounterVec
	finished *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ search.JobMonitor = (*JobMonitor)(nil)

// NewJobMonitor creates the job metrics and registers them with reg.
func NewJobMonitor(reg prometheus.Registerer) (*JobMonitor, error) {
	m := &JobMonitor{
		enqueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      jobsEnqueuedTotal,
				Help:      "number of search requests accepted by the queue",
			},
			algorithmLabels,
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      jobsDroppedTotal,
				Help:      "number of queued search requests discarded at shutdown",
			},
			algorithmLabels,
		),
		started: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      jobsStartedTotal,
				Help:      "number of job records created by workers",
			},
			algorithmLabels,
		),
		finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      jobsFinishedTotal,
				Help:      "number of jobs that reached a terminal status, by outcome",
			},
			finishedLabels,
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      jobDuration,
				Help:      "wall time of successful jobs",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			algorithmLabels,
		),
	}

	for _, c := range []prometheus.Collector{m.enqueued, m.dropped, m.started, m.finished, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *JobMonitor) Enqueued(algorithm string) {
	m.enqueued.With(prometheus.Labels{algorithmLabel: algorithm}).Inc()
}

func (m *JobMonitor) Dropped(algorithm string) {
	m.dropped.With(prometheus.Labels{algorithmLabel: algorithm}).Inc()
}

func (m *JobMonitor) Started(algorithm string) {
	m.started.With(prometheus.Labels{algorithmLabel: algorithm}).Inc()
}

func (m *JobMonitor) Finished(algorithm string, elapsed time.Duration) {
	m.finished.With(prometheus.Labels{algorithmLabel: algorithm, outcomeLabel: OutcomeDone}).Inc()
	m.duration.With(prometheus.Labels{algorithmLabel: algorithm}).Observe(elapsed.Seconds())
}

func (m *JobMonitor) Failed(algorithm string, _ error, expected bool) {
	outcome := OutcomeFailed
	if expected {
		outcome = OutcomeRejected
	}
	m.finished.With(prometheus.Labels{algorithmLabel: algorithm, outcomeLabel: outcome}).Inc()
}

// RegisterQueueDepth exposes the pool's pending request count as a gauge.
func RegisterQueueDepth(reg prometheus.Registerer, pool *search.Pool) error {
	if pool == nil {
		return errors.New("pool required")
	}
	return reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      queuePending,
			Help:      "number of search requests waiting for a worker",
		},
		func() float64 { return float64(pool.Pending()) },
	))
}

// WriteTextfile writes every metric gathered by g to filename in the text
// exposition format.
func WriteTextfile(filename string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(filename, g)
}
