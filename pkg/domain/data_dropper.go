package domain

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const ComponentLabel string = "component"

var (
	ensureMetricRegisteringOnce sync.Once
	dropCounter                 *prometheus.CounterVec
)

// EventDropper is told about every event that is deliberately discarded,
// e.g. stray callbacks or notifications a slow client could not take.
type EventDropper interface {
	Drop(event string)
}

type ObservableEventDropper struct {
	l              *slog.Logger
	componentOwner string
}

func NewObservableEventDropper(l *slog.Logger, metricRegistry *prometheus.Registry, owner string) EventDropper {
	ensureMetricRegisteringOnce.Do(func() {
		dropCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "dropped_events_total",
				Namespace: "courier",
				Help:      "How many events have been deliberately dropped",
			},
			[]string{ComponentLabel},
		)
		metricRegistry.MustRegister(dropCounter)
	})

	return &ObservableEventDropper{
		l:              l,
		componentOwner: owner,
	}
}

func (dropper *ObservableEventDropper) Drop(event string) {
	dropCounter.WithLabelValues(dropper.componentOwner).Inc()
	dropper.l.Debug("event dropped", "event", event, "subject", dropper.componentOwner)
}
