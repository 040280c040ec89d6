package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/jademcosta/courier/pkg/adapters/externalqueue"
	"github.com/jademcosta/courier/pkg/adapters/httpin"
	"github.com/jademcosta/courier/pkg/adapters/objstorage"
	"github.com/jademcosta/courier/pkg/adapters/source"
	"github.com/jademcosta/courier/pkg/circuitbreaker"
	"github.com/jademcosta/courier/pkg/compressor"
	"github.com/jademcosta/courier/pkg/config"
	"github.com/jademcosta/courier/pkg/coordinator"
	"github.com/jademcosta/courier/pkg/limiter"
	"github.com/jademcosta/courier/pkg/mirror"
	"github.com/jademcosta/courier/pkg/o11y/tracing"
	"github.com/jademcosta/courier/pkg/registry"
	"github.com/jademcosta/courier/pkg/worker"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/automaxprocs/maxprocs"
)

const objectStorageBreakerName = "object_storage"

type App struct {
	conf         *config.Config
	logger       *slog.Logger
	ctx          context.Context
	stopFunc     context.CancelFunc
	shutdownDone chan struct{}
	ready        chan struct{}
}

func New(c *config.Config, logger *slog.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		conf:         c,
		logger:       logger,
		ctx:          ctx,
		stopFunc:     cancel,
		shutdownDone: make(chan struct{}),
		ready:        make(chan struct{}),
	}
}

func (a *App) Start() {
	defer close(a.shutdownDone)

	if !a.conf.DisableMaxProcs {
		undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			a.logger.Debug("automaxprocs", "msg", fmt.Sprintf(format, args...))
		}))
		if err != nil {
			a.logger.Warn("failed to set GOMAXPROCS", "error", err)
		}
		defer undo()
	}

	metricRegistry := prometheus.NewRegistry()
	registerDefaultMetrics(metricRegistry)
	compressor.InitializeMetrics(metricRegistry)

	tracer, shutdownTracer := a.createTracer()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown failed", "error", err)
		}
	}()

	objStorage := createObjStorage(a.logger, a.conf.ObjectStorage, metricRegistry)
	externalQueue := createExternalQueue(a.logger, a.conf.ExternalQueue, metricRegistry)

	uploader := worker.NewWorker(
		a.logger,
		source.New(a.logger, a.conf.Source),
		objStorage,
		externalQueue,
		circuitbreaker.New(a.logger, metricRegistry, a.conf.CircuitBreaker, objectStorageBreakerName),
		tracer,
		metricRegistry,
		a.conf.Compression,
		time.Now,
	)

	// A disabled mirror must reach consumers as a nil interface, not as a
	// typed nil pointer.
	var coordMirror coordinator.Mirror
	var apiMirror httpin.Mirror
	var mirrorService *mirror.Service
	if a.conf.Mirror.Enabled {
		mirrorService = mirror.New(a.logger, metricRegistry)
		coordMirror = mirrorService
		apiMirror = mirrorService
	}

	limiterConf := limiter.Config{
		Min:            0,
		Max:            1,
		ValueThreshold: a.conf.Limiter.ValueThreshold,
		TimeThreshold:  a.conf.Limiter.TimeThreshold(),
	}

	reg := registry.New(
		a.logger,
		a.conf.Coordinator.InboxCapacity,
		limiterConf,
		uploader,
		coordMirror,
		metricRegistry,
		time.Now,
	)

	api := httpin.NewAPI(a.logger, *a.conf, metricRegistry, tracer, a.conf.Version, reg, apiMirror)

	//The shutdown of rungroup is executed from a single goroutine, so interrupt
	//functions run one after the other.
	var g run.Group

	a.addShutdownRelatedActors(&g)

	g.Add(
		func() error {
			close(a.ready)
			err := api.ListenAndServe()
			if err != nil {
				a.logger.Error("api listening and serving failed", "error", err)
			}
			return err
		},
		func(error) {
			a.logger.Info("shutting down api")
			if err := api.Shutdown(); err != nil {
				a.logger.Error("api shutdown failed", "error", err)
			}

			a.drain(mirrorService)
			reg.Close()
		},
	)

	err := g.Run()
	if err != nil {
		a.logger.Error("something went wrong when running the components", "error", err)
	}
	a.logger.Info("courier stopped")
}

// drain gives live uploads some time to finish before the coordinators are
// stopped and the remaining ones are cancelled.
func (a *App) drain(mirrorService *mirror.Service) {
	if mirrorService == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.conf.Mirror.DrainTimeout())
	defer cancel()

	if err := mirrorService.WaitIdle(ctx); err != nil {
		a.logger.Warn("uploads still running after drain timeout, cancelling them",
			"live_uploads", mirrorService.LiveCount())
	}
}

func (a *App) addShutdownRelatedActors(g *run.Group) {
	signalsCh := make(chan os.Signal, 2)
	signal.Notify(signalsCh, syscall.SIGINT, syscall.SIGTERM)

	g.Add(func() error {
		select {
		case s := <-signalsCh:
			a.logger.Info("received signal, shutting down", "signal", s.String())
		case <-a.ctx.Done():
		}
		return nil
	}, func(error) {
		a.stopFunc()
		signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	})
}

func (a *App) stop() <-chan struct{} {
	a.logger.Debug("app stop called")
	a.stopFunc()
	return a.shutdownDone
}

func (a *App) createTracer() (trace.Tracer, func(context.Context) error) {
	if !a.conf.O11y.TracingEnabled {
		return tracing.NewNoopTracer(), func(context.Context) error { return nil }
	}

	tracer, shutdown, err := tracing.NewTracer(a.ctx, a.conf.O11y)
	if err != nil {
		panic(errors.Join(errors.New("error creating tracer"), err))
	}
	return tracer, shutdown
}

func registerDefaultMetrics(registry *prometheus.Registry) {
	registry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(
			collectors.WithGoCollectorRuntimeMetrics(collectors.GoRuntimeMetricsRule{Matcher: regexp.MustCompile("/.*")}),
		),
	)
}

func createObjStorage(l *slog.Logger, c config.ObjectStorageConfig, metricRegistry *prometheus.Registry) worker.ObjStorage {
	objStorage, err := objstorage.New(l, metricRegistry, &c)
	if err != nil {
		l.Error("error creating object storage", "error", err)
		panic(err)
	}

	return objStorage
}

func createExternalQueue(l *slog.Logger, c config.ExternalQueueConfig, metricRegistry *prometheus.Registry) worker.ExternalQueue {
	externalQueue, err := externalqueue.New(l, metricRegistry, &c)
	if err != nil {
		l.Error("error creating external queue", "error", err)
		panic(err)
	}

	return externalQueue
}
