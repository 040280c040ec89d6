package httpmiddleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ensureMetricRegisteringOnce sync.Once
	reqsCount                   *prometheus.CounterVec
	latencyHist                 *prometheus.HistogramVec
)

type metricsMiddleware struct {
	next http.Handler
}

func NewMetricsMiddleware(metricRegistry *prometheus.Registry) func(next http.Handler) http.Handler {
	ensureMetricRegisteringOnce.Do(func() {
		reqsCount = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "requests_total",
				Subsystem: "http",
				Namespace: "courier",
				Help:      "How many HTTP requests processed, partitioned by status code, method and HTTP route.",
			},
			[]string{"code", "method", "path"},
		)

		latencyHist = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:      "request_duration_seconds",
				Subsystem: "http",
				Namespace: "courier",
				Help:      "Latency of HTTP requests, in seconds.",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"path"},
		)

		metricRegistry.MustRegister(reqsCount, latencyHist)
	})

	midd := &metricsMiddleware{}
	return func(next http.Handler) http.Handler {
		midd.next = next
		return midd
	}
}

func (midd *metricsMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeStart := time.Now()
	wrapper := &responseWriterWrapper{wrapped: w}

	midd.next.ServeHTTP(wrapper, r)

	path := routePattern(r)
	latency := time.Since(timeStart).Seconds()
	latencyHist.WithLabelValues(path).Observe(latency)
	reqsCount.WithLabelValues(strconv.Itoa(wrapper.status()), r.Method, path).Inc()
}

// routePattern keeps the path label bounded: buffer ids are replaced by the
// route placeholders.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
