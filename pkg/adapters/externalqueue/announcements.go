package externalqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jademcosta/courier/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	QueueTypeLabel   string = "queue_type"
	QueueLabel       string = "queue"
	ResultLabel      string = "result"
	CompressionLabel string = "compression"
)

const (
	resultAnnounced = "announced"
	resultFailed    = "failed"
	resultCancelled = "cancelled"
	noCompression   = "none"
)

var (
	ensureMetricRegisteringOnce sync.Once
	announcementsCounter        *prometheus.CounterVec
	announceLatencyHistogram    *prometheus.HistogramVec
	announcedBytesCounter       *prometheus.CounterVec
)

// announcingQueue records what happens to every finished upload it is asked
// to announce.
type announcingQueue struct {
	wrapped   ExtQueueWithMetadata
	queueType string
	queueName string
	now       func() time.Time
}

func NewAnnouncingQueue(queue ExtQueueWithMetadata, metricRegistry *prometheus.Registry) ExtQueueWithMetadata {
	ensureMetricRegisteringOnce.Do(func() {
		announcementsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "courier",
				Subsystem: "announcer",
				Name:      "announcements_total",
				Help:      "Finished uploads handed to the external queue, by outcome.",
			},
			[]string{QueueTypeLabel, QueueLabel, ResultLabel, CompressionLabel},
		)

		announceLatencyHistogram = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "courier",
				Subsystem: "announcer",
				Name:      "announce_latency_seconds",
				Help:      "Time taken to announce a finished upload. Only successful announcements are observed.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{QueueTypeLabel, QueueLabel},
		)

		announcedBytesCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "courier",
				Subsystem: "announcer",
				Name:      "announced_bytes_total",
				Help:      "Stored bytes of the uploads that were successfully announced.",
			},
			[]string{QueueTypeLabel, QueueLabel},
		)

		if metricRegistry != nil {
			metricRegistry.MustRegister(announcementsCounter, announceLatencyHistogram, announcedBytesCounter)
		}
	})

	return &announcingQueue{
		wrapped:   queue,
		queueType: queue.Type(),
		queueName: queue.Name(),
		now:       time.Now,
	}
}

func (q *announcingQueue) Enqueue(ctx context.Context, msg *domain.MessageContext) error {
	start := q.now()
	err := q.wrapped.Enqueue(ctx, msg)

	announcementsCounter.WithLabelValues(q.queueType, q.queueName, announceResult(ctx, err), compressionOf(msg)).Inc()
	if err == nil {
		announceLatencyHistogram.WithLabelValues(q.queueType, q.queueName).Observe(q.now().Sub(start).Seconds())
		if msg.SizeInBytes > 0 {
			announcedBytesCounter.WithLabelValues(q.queueType, q.queueName).Add(float64(msg.SizeInBytes))
		}
	}

	return err
}

func (q *announcingQueue) Type() string {
	return q.queueType
}

func (q *announcingQueue) Name() string {
	return q.queueName
}

func announceResult(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return resultAnnounced
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		return resultCancelled
	default:
		return resultFailed
	}
}

func compressionOf(msg *domain.MessageContext) string {
	if msg.CompressionType == "" {
		return noCompression
	}
	return msg.CompressionType
}
