package registry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var ensureMetricRegisteringOnce sync.Once

var buffersGauge prometheus.Gauge

type metricCollector struct{}

func newMetricCollector(metricRegistry *prometheus.Registry) *metricCollector {
	ensureMetricRegisteringOnce.Do(func() {
		buffersGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "courier",
				Subsystem: ComponentName,
				Name:      "buffers",
				Help:      "The count of buffers that currently have a coordinator.",
			},
		)

		if metricRegistry != nil {
			metricRegistry.MustRegister(buffersGauge)
		}
	})

	return &metricCollector{}
}

func (m *metricCollector) buffers(count int) {
	buffersGauge.Set(float64(count))
}
