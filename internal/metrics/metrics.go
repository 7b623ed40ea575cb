// Package metrics exposes run progress as prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"testmgr/internal/domain"
)

const (
	MetricsNamespace = "testmgr"
)

// Metrics records runs and test executions. It implements execution.Recorder and execution.ReportSink.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal    *prometheus.CounterVec
	testsTotal   *prometheus.CounterVec
	testDuration *prometheus.HistogramVec
	testFrames   prometheus.Histogram
	queued       prometheus.Gauge
	running      prometheus.Gauge
	lastFailed   prometheus.Gauge
}

// New creates the metrics on their own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "runs_total",
			Help:      "Count of finished runs",
		}, []string{
			"outcome",
		}),
		testsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_total",
			Help:      "Count of test executions",
		}, []string{
			"status",
		}),
		testDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "test_duration_seconds",
			Help:      "Duration of test executions",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{
			"status",
		}),
		testFrames: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "test_frames",
			Help:      "Number of ticks a test stayed in flight",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		queued: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "queued_tests",
			Help:      "Tests of the current run that have not finished",
		}),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_in_progress",
			Help:      "1 while a run is in progress",
		}),
		lastFailed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "last_run_failed_tests",
			Help:      "Number of failed tests in the last finished run",
		}),
	}
}

// Registry returns the registry the metrics live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RunStarted implements execution.Recorder.
func (m *Metrics) RunStarted(_ string, queued int) {
	m.running.Set(1)
	m.queued.Set(float64(queued))
}

// TestFinished implements execution.Recorder.
func (m *Metrics) TestFinished(rec domain.TestRecord) {
	status := string(rec.Status)
	m.testsTotal.WithLabelValues(status).Inc()
	m.testDuration.WithLabelValues(status).Observe(rec.Duration.Seconds())
	m.testFrames.Observe(float64(rec.Frames))
	m.queued.Dec()
}

// Report implements execution.ReportSink.
func (m *Metrics) Report(report domain.RunReport) error {
	m.runsTotal.WithLabelValues(string(report.Meta.Outcome)).Inc()
	m.running.Set(0)
	m.queued.Set(0)
	m.lastFailed.Set(float64(report.Meta.FailedTests))
	return nil
}
