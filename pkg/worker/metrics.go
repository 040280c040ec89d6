package worker

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var ensureSingleMetricRegistration sync.Once
var workInFlightGauge prometheus.Gauge
var uploadDurationHist prometheus.Histogram

func initializeMetrics(metricRegistry *prometheus.Registry) {
	ensureSingleMetricRegistration.Do(func() {
		workInFlightGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "courier",
				Subsystem: "worker",
				Name:      "work_in_flight",
				Help:      "How many uploads are moving bytes right now.",
			})

		uploadDurationHist = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "courier",
				Subsystem: "worker",
				Name:      "upload_duration_seconds",
				Help:      "The time it took to read, compress, store and announce an upload, successful or not.",
				Buckets:   []float64{0.05, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 180.0, 600.0},
			})

		if metricRegistry != nil {
			metricRegistry.MustRegister(workInFlightGauge, uploadDurationHist)
		}
	})
}

func incWorkInFlight() {
	workInFlightGauge.Inc()
}

func decWorkInFlight() {
	workInFlightGauge.Dec()
}

func observeUploadDuration(d time.Duration) {
	uploadDurationHist.Observe(d.Seconds())
}
