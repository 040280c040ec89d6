package coordinator

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultKey       = "result"
	resultDone      = "done"
	resultFailed    = "failed"
	resultCancelled = "cancelled"

	decisionKey = "decision"
)

var ensureMetricRegisteringOnce sync.Once

var activeUploadsGauge prometheus.Gauge
var startedCounter prometheus.Counter
var finishedCounter *prometheus.CounterVec
var progressCounter *prometheus.CounterVec
var strayCounter prometheus.Counter
var duplicateStartCounter prometheus.Counter

type metricCollector struct{}

func newMetricCollector(metricRegistry *prometheus.Registry) *metricCollector {
	ensureMetricRegisteringOnce.Do(func() {
		activeUploadsGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "courier",
				Subsystem: ComponentName,
				Name:      "active_uploads",
				Help:      "The count of uploads currently active, summed over all buffers.",
			},
		)

		startedCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "courier",
				Subsystem: ComponentName,
				Name:      "uploads_started_total",
				Help:      "The total number of uploads that reported being started.",
			},
		)

		finishedCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "courier",
				Subsystem: ComponentName,
				Name:      "uploads_finished_total",
				Help:      "The total number of uploads that left the active set, by result.",
			},
			[]string{resultKey},
		)

		progressCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "courier",
				Subsystem: ComponentName,
				Name:      "progress_updates_total",
				Help:      "Progress updates received, split by whether the limiter emitted or skipped them.",
			},
			[]string{decisionKey},
		)

		strayCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "courier",
				Subsystem: ComponentName,
				Name:      "stray_events_total",
				Help:      "Events received from uploads the coordinator no longer tracks.",
			},
		)

		duplicateStartCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "courier",
				Subsystem: ComponentName,
				Name:      "duplicate_starts_total",
				Help:      "Start requests ignored because the upload was already known.",
			},
		)

		if metricRegistry != nil {
			metricRegistry.MustRegister(
				activeUploadsGauge, startedCounter, finishedCounter, progressCounter,
				strayCounter, duplicateStartCounter,
			)
		}
	})

	return &metricCollector{}
}

func (m *metricCollector) incActive() {
	activeUploadsGauge.Inc()
}

func (m *metricCollector) decActive() {
	activeUploadsGauge.Dec()
}

func (m *metricCollector) incStarted() {
	startedCounter.Inc()
}

func (m *metricCollector) incFinished(result string) {
	finishedCounter.WithLabelValues(result).Inc()
}

func (m *metricCollector) incProgressEmitted() {
	progressCounter.WithLabelValues("emitted").Inc()
}

func (m *metricCollector) incProgressSkipped() {
	progressCounter.WithLabelValues("skipped").Inc()
}

func (m *metricCollector) incStray() {
	strayCounter.Inc()
}

func (m *metricCollector) incDuplicateStart() {
	duplicateStartCounter.Inc()
}
