package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fieldops"

var (
	// RequestCounter counts served HTTP requests by route pattern.
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Duration of repository database operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"entity", "op"},
	)

	TenantSchemaMissing = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenant_schema_missing_total",
			Help:      "Authenticated requests rejected for lacking a tenant schema",
		},
	)

	PhotoUploadCompensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photo_upload_compensations_total",
			Help:      "Photo metadata rows removed after a failed object upload",
		},
		[]string{"result"},
	)
)

func ObserveDBOperation(entity, op string, d time.Duration) {
	DBOperationDuration.WithLabelValues(entity, op).Observe(d.Seconds())
}

func TenantRejected() {
	TenantSchemaMissing.Inc()
}

// Compensation records the outcome of a metadata rollback: "ok" or "failed".
func Compensation(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	PhotoUploadCompensations.WithLabelValues(result).Inc()
}

// Middleware records request count and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "unmatched"
}

func Handler() http.Handler {
	return promhttp.Handler()
}
