package mirror

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var ensureMetricRegisteringOnce sync.Once

var liveUploadsGauge prometheus.Gauge
var progressCounter prometheus.Counter

type metricCollector struct{}

func newMetricCollector(metricRegistry *prometheus.Registry) *metricCollector {
	ensureMetricRegisteringOnce.Do(func() {
		liveUploadsGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "courier",
				Subsystem: ComponentName,
				Name:      "live_uploads",
				Help:      "The count of uploads in progress across every buffer.",
			},
		)

		progressCounter = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "courier",
				Subsystem: ComponentName,
				Name:      "progress_notifications_total",
				Help:      "The total number of progress notifications emitted by coordinators.",
			},
		)

		if metricRegistry != nil {
			metricRegistry.MustRegister(liveUploadsGauge, progressCounter)
		}
	})

	return &metricCollector{}
}

func (m *metricCollector) liveUploads(count int) {
	liveUploadsGauge.Set(float64(count))
}

func (m *metricCollector) incProgress() {
	progressCounter.Inc()
}
