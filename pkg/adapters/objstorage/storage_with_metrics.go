package objstorage

import (
	"context"
	"sync"
	"time"

	"github.com/jademcosta/courier/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	StorageTypeLabel string = "storage_type"
	NameLabel        string = "name"
)

var (
	ensureMetricRegisteringOnce sync.Once
	latencyHistogram            *prometheus.HistogramVec
	uploadCounter               *prometheus.CounterVec
	uploadSuccessCounter        *prometheus.CounterVec
	uploadErrorCounter          *prometheus.CounterVec
	uploadedBytesCounter        *prometheus.CounterVec
)

type storageWithMetrics struct {
	storage     ObjStorage
	wrappedType string
	name        string
}

// NewStorageWithMetrics wraps storage. name is used as the name label,
// falling back to the storage's own name when empty.
func NewStorageWithMetrics(storage StorageWithMetadata, metricRegistry *prometheus.Registry, name string) StorageWithMetadata {
	ensureMetricRegisteringOnce.Do(func() {
		latencyHistogram = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:      "upload_latency_seconds",
				Subsystem: "object_storage",
				Namespace: "courier",
				Help:      "the time it took to finish the upload of data to object storage",
				Buckets:   []float64{0.25, 0.5, 1.0, 1.5, 2.0, 5.0, 10.0, 30.0, 45.0, 60.0, 90.0, 120.0, 180.0, 240.0, 300.0, 600.0},
			},
			[]string{StorageTypeLabel, NameLabel},
		)

		uploadCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "upload_total",
				Namespace: "courier",
				Subsystem: "object_storage",
				Help:      "count of uploads to object storage that finished",
			},
			[]string{StorageTypeLabel, NameLabel},
		)

		uploadSuccessCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "upload_success_total",
				Namespace: "courier",
				Subsystem: "object_storage",
				Help:      "count of successes uploading to object storage",
			},
			[]string{StorageTypeLabel, NameLabel},
		)

		uploadErrorCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "upload_errors_total",
				Namespace: "courier",
				Subsystem: "object_storage",
				Help:      "count of errors uploading to object storage",
			},
			[]string{StorageTypeLabel, NameLabel},
		)

		uploadedBytesCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "uploaded_bytes_total",
				Namespace: "courier",
				Subsystem: "object_storage",
				Help:      "sum of the sizes of the objects successfully uploaded, when known",
			},
			[]string{StorageTypeLabel, NameLabel},
		)

		if metricRegistry != nil {
			metricRegistry.MustRegister(
				latencyHistogram,
				uploadCounter,
				uploadSuccessCounter,
				uploadErrorCounter,
				uploadedBytesCounter,
			)
		}
	})

	if name == "" {
		name = storage.Name()
	}

	return &storageWithMetrics{
		storage:     storage,
		wrappedType: storage.Type(),
		name:        name,
	}
}

func (w *storageWithMetrics) Upload(ctx context.Context, workU *domain.WorkUnit) (*domain.UploadResult, error) {
	startTime := time.Now()

	uploadResult, err := w.storage.Upload(ctx, workU)
	elapsedTime := time.Since(startTime).Seconds()

	latencyHistogram.WithLabelValues(w.wrappedType, w.name).Observe(elapsedTime)
	uploadCounter.WithLabelValues(w.wrappedType, w.name).Inc()

	if err != nil {
		uploadErrorCounter.WithLabelValues(w.wrappedType, w.name).Inc()
		return nil, err
	}

	uploadSuccessCounter.WithLabelValues(w.wrappedType, w.name).Inc()
	if uploadResult.SizeInBytes > 0 {
		uploadedBytesCounter.WithLabelValues(w.wrappedType, w.name).Add(float64(uploadResult.SizeInBytes))
	}
	return uploadResult, nil
}

func (w *storageWithMetrics) Type() string {
	return w.wrappedType
}

func (w *storageWithMetrics) Name() string {
	return w.name
}
