package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jademcosta/courier/pkg/circuitbreaker"
	"github.com/jademcosta/courier/pkg/compressor"
	"github.com/jademcosta/courier/pkg/config"
	"github.com/jademcosta/courier/pkg/domain"
	"github.com/jademcosta/courier/pkg/logger"
	"github.com/jademcosta/courier/pkg/transfer"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const ComponentType = "worker"

type Source interface {
	Open(path string) (io.ReadCloser, int64, error)
}

type ObjStorage interface {
	Upload(ctx context.Context, workU *domain.WorkUnit) (*domain.UploadResult, error)
}

type ExternalQueue interface {
	Enqueue(ctx context.Context, msg *domain.MessageContext) error
}

// Worker moves the bytes of one upload at a time from the source filesystem
// into object storage and announces the result. It is safe to share between
// tasks: every Upload call is independent.
type Worker struct {
	l                   *slog.Logger
	source              Source
	storage             ObjStorage
	queue               ExternalQueue
	breaker             circuitbreaker.CircuitBreaker
	tracer              trace.Tracer
	compressionConf     config.CompressionConfig
	currentTimeProvider func() time.Time
}

var _ transfer.Uploader = (*Worker)(nil)

func NewWorker(
	l *slog.Logger, source Source, storage ObjStorage, extQueue ExternalQueue,
	breaker circuitbreaker.CircuitBreaker, tracer trace.Tracer, metricRegistry *prometheus.Registry,
	compressionConf config.CompressionConfig, currentTimeProvider func() time.Time,
) *Worker {

	initializeMetrics(metricRegistry)

	return &Worker{
		l:                   l.With(logger.ComponentKey, ComponentType),
		source:              source,
		storage:             storage,
		queue:               extQueue,
		breaker:             breaker,
		tracer:              tracer,
		compressionConf:     compressionConf,
		currentTimeProvider: currentTimeProvider,
	}
}

func (w *Worker) Upload(ctx context.Context, suri *domain.Suri, progress transfer.ProgressFunc) (string, error) {
	incWorkInFlight()
	defer decWorkInFlight()

	ctx, span := w.tracer.Start(ctx, "upload", trace.WithAttributes(
		attribute.String("courier.source", suri.Source),
		attribute.String("courier.destination", suri.Destination),
	))
	defer span.End()

	startTime := time.Now()
	location, err := w.upload(ctx, suri, progress)
	observeUploadDuration(time.Since(startTime))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.String("courier.location", location))
	span.SetStatus(codes.Ok, "")
	return location, nil
}

func (w *Worker) upload(ctx context.Context, suri *domain.Suri, progress transfer.ProgressFunc) (string, error) {
	src, size, err := w.source.Open(suri.Source)
	if err != nil {
		return "", fmt.Errorf("error opening source: %w", err)
	}
	defer src.Close()

	progress(0, size)

	counted := newProgressReader(ctx, src, size, progress)
	body, err := compressor.NewCompressingReader(&w.compressionConf, counted)
	if err != nil {
		return "", fmt.Errorf("error creating compressor: %w", err)
	}
	defer body.Close()

	sent := &countingReader{r: body}
	workU := &domain.WorkUnit{
		Key:  suri.Destination + compressor.Extension(&w.compressionConf),
		Body: sent,
		Size: size,
	}
	if w.compressionConf.Type != "" {
		workU.Size = -1
	}

	result, err := w.breaker.Execute(func() (interface{}, error) {
		return w.storage.Upload(ctx, workU)
	})
	if err != nil {
		if circuitbreaker.IsOpen(err) {
			return "", fmt.Errorf("object storage is unavailable: %w", err)
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return "", fmt.Errorf("upload interrupted: %w", err)
		}
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	uploadResult := result.(*domain.UploadResult)
	uploadResult.SizeInBytes = sent.n
	w.l.Debug("finished uploading object", "source", suri.Source, "path", uploadResult.Path)

	w.announce(context.WithoutCancel(ctx), suri, uploadResult)
	return uploadResult.URL, nil
}

// announce publishes the result on the external queue. Failing to do so
// does not fail the upload: the object is already stored.
func (w *Worker) announce(ctx context.Context, suri *domain.Suri, uploadResult *domain.UploadResult) {
	msgContext := &domain.MessageContext{
		Source:          suri.Source,
		Bucket:          uploadResult.Bucket,
		Region:          uploadResult.Region,
		Path:            uploadResult.Path,
		URL:             uploadResult.URL,
		SizeInBytes:     uploadResult.SizeInBytes,
		CompressionType: w.compressionConf.Type,
		SavedAt:         w.currentTimeProvider().Unix(),
	}

	err := w.queue.Enqueue(ctx, msgContext)
	if err != nil {
		w.l.Warn("failed to enqueue upload result", "object_path", uploadResult.Path, "error", err)
	} else {
		w.l.Debug("finished enqueueing upload result", "object_path", uploadResult.Path)
	}
}
