package httpin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jademcosta/courier/pkg/adapters/httpin/httpmiddleware"
	"github.com/jademcosta/courier/pkg/config"
	"github.com/jademcosta/courier/pkg/coordinator"
	"github.com/jademcosta/courier/pkg/domain"
	"github.com/jademcosta/courier/pkg/logger"
	"github.com/jademcosta/courier/pkg/transfer"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

const APIComponentType = "api"
const apiVersion = "v1"
const shutdownGracePeriod = 5 * time.Second

// Registry is where the API finds the coordinator of each buffer.
type Registry interface {
	ForBuffer(bufferID int64) *coordinator.Coordinator
	Lookup(bufferID int64) (*coordinator.Coordinator, bool)
	Dispose(bufferID int64) bool
	Buffers() []int64
}

// Mirror exposes the uploads of every buffer.
type Mirror interface {
	Snapshot() []transfer.Snapshot
	Ratio() float64
}

type API struct {
	mux      *chi.Mux
	log      *slog.Logger
	srv      *http.Server
	port     int
	registry Registry
	mirror   Mirror
	dropper  domain.EventDropper
	// closing is closed when the server starts shutting down, which ends
	// the long lived event streams.
	closing  chan struct{}
}

// NewAPI builds the HTTP API. mirror may be nil, in which case the global
// uploads listing answers 404.
func NewAPI(
	l *slog.Logger, conf config.Config, metricRegistry *prometheus.Registry, tracer trace.Tracer,
	appVersion string, registry Registry, mirror Mirror,
) *API {

	router := chi.NewRouter()
	logg := l.With(logger.ComponentKey, APIComponentType)

	sizeLimit, err := conf.API.PayloadSizeLimitInBytes()
	if err != nil {
		panic("payload size limit could not be extracted")
	}

	api := &API{
		mux:      router,
		log:      logg,
		srv:      &http.Server{Addr: fmt.Sprintf(":%d", conf.API.Port), Handler: router, ReadHeaderTimeout: 10 * time.Second},
		port:     conf.API.Port,
		registry: registry,
		mirror:   mirror,
		dropper:  domain.NewObservableEventDropper(logg, metricRegistry, APIComponentType),
		closing:  make(chan struct{}),
	}
	api.srv.RegisterOnShutdown(func() { close(api.closing) })

	initializeMetrics(metricRegistry)
	registerDefaultMiddlewares(api, conf, sizeLimit, logg, metricRegistry, tracer)

	RegisterUploadRoutes(api, apiVersion, conf.API.Token)
	RegisterOperatinalRoutes(api, appVersion, metricRegistry)
	api.mux.Mount("/debug", middleware.Profiler())

	return api
}

func (api *API) ListenAndServe() error {
	api.log.Info(fmt.Sprintf("Starting HTTP server on port %d", api.port))
	err := api.srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("when serving HTTP: %w", err)
	}

	return nil
}

func (api *API) Shutdown() error {
	shutdownCtx, shutdownCtxRelease := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer shutdownCtxRelease()

	return api.srv.Shutdown(shutdownCtx)
}

// Handler exposes the router, mostly for tests.
func (api *API) Handler() http.Handler {
	return api.mux
}

func registerDefaultMiddlewares(
	api *API,
	conf config.Config,
	sizeLimit int64,
	l *slog.Logger,
	metricRegistry *prometheus.Registry,
	tracer trace.Tracer,
) {

	//Middlewares on the top wrap the ones in the bottom
	api.mux.Use(httpmiddleware.NewLoggingMiddleware(l))
	if conf.O11y.TracingEnabled {
		api.mux.Use(httpmiddleware.NewTracingMiddleware(tracer))
	}
	api.mux.Use(httpmiddleware.NewMetricsMiddleware(metricRegistry))
	api.mux.Use(httpmiddleware.NewRecoverer(l))

	if sizeLimit > 0 {
		api.mux.Use(middleware.RequestSize(sizeLimit))
	}
}
