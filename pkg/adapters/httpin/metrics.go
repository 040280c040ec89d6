package httpin

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var ensureMetricRegisteringOnce sync.Once
var batchSizeHist *prometheus.HistogramVec
var eventStreamsGauge prometheus.Gauge

func initializeMetrics(metricRegistry *prometheus.Registry) {
	ensureMetricRegisteringOnce.Do(func() {
		batchSizeHist = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:      "uploads_per_request",
				Subsystem: "http",
				Namespace: "courier",
				Help:      "How many uploads a start or filter request carried",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
			},
			[]string{"operation"},
		)

		eventStreamsGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:      "event_streams",
				Subsystem: "http",
				Namespace: "courier",
				Help:      "How many clients are following the events of a buffer right now",
			},
		)

		metricRegistry.MustRegister(batchSizeHist, eventStreamsGauge)
	})
}

func observeBatchSize(operation string, size int) {
	batchSizeHist.WithLabelValues(operation).Observe(float64(size))
}
