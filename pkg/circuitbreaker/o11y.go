package circuitbreaker

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

const NameMetricKey string = "name"

var ensureMetricRegisteringOnce sync.Once

var openCBGauge *prometheus.GaugeVec

type CBObservability struct {
	name string
	log  *slog.Logger
}

func NewObservability(
	registry *prometheus.Registry,
	l *slog.Logger,
	name string,
) *CBObservability {

	ensureMetricRegisteringOnce.Do(func() {
		openCBGauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "courier",
				Name:      "circuitbreaker_open",
				Help:      "Value is 1 when the circuit breaker is open",
			},
			[]string{NameMetricKey},
		)

		registry.MustRegister(openCBGauge)
	})

	return &CBObservability{
		name: name,
		log:  l.With(NameMetricKey, name),
	}
}

func (cbO11y *CBObservability) stateChanged(to gobreaker.State) {
	switch to {
	case gobreaker.StateOpen:
		openCBGauge.WithLabelValues(cbO11y.name).Set(1.0)
		cbO11y.log.Warn("circuitbreaker is open")
	case gobreaker.StateHalfOpen:
		cbO11y.log.Info("circuitbreaker is half-open")
	default:
		openCBGauge.WithLabelValues(cbO11y.name).Set(0.0)
		cbO11y.log.Info("circuitbreaker is closed")
	}
}
