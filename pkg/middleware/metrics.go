package middleware

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/micropy-dev/micropy/pkg/server"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "micropy").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "micropy",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus collectors for the dispatcher.
type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
}

// globalMetrics is the singleton metrics instance, created on the first
// call to Prometheus().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of dispatched requests",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "path", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Request dispatch duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"path"}),

		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_errors_total",
			Help:        "Total number of request failures",
			ConstLabels: config.ConstLabels,
		}, []string{"path", "error_type"}),
	}
}

// metricsStartKey stores the request start time on the context.
type metricsStartKey struct{}

// Prometheus creates a before/after hook pair that collects Prometheus
// metrics for every dispatched request.
//
// Metrics collected:
//   - micropy_requests_total: counter by method, path, and status
//   - micropy_request_duration_seconds: histogram of dispatch duration
//   - micropy_request_errors_total: counter of failures by error type
//
// Example:
//
//	app := micropy.New(micropy.DefaultConfig())
//	app.Use(middleware.Prometheus(
//	    middleware.WithNamespace("myapp"),
//	))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) server.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return server.Middleware{
		Before: func(ctx *server.Ctx) (map[string]any, error) {
			ctx.SetValue(metricsStartKey{}, time.Now())
			return nil, nil
		},
		After: func(ctx *server.Ctx) error {
			path := ctx.Path
			if path == "" {
				path = "/"
			}
			if start, ok := ctx.Value(metricsStartKey{}).(time.Time); ok {
				m.requestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
			}
			m.requestsTotal.WithLabelValues(ctx.Method, path, strconv.Itoa(ctx.Status())).Inc()
			if err := ctx.HandlerError(); err != nil {
				m.requestErrors.WithLabelValues(path, categorizeError(err)).Inc()
			}
			return nil
		},
	}
}

// categorizeError returns a coarse category for the error type. This
// keeps error messages out of label values, which would otherwise blow
// up cardinality.
func categorizeError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "not found"):
		return "not_found"
	case strings.Contains(msg, "unauthorized"):
		return "unauthorized"
	case strings.Contains(msg, "forbidden"):
		return "forbidden"
	case strings.Contains(msg, "validation"):
		return "validation"
	default:
		return "internal"
	}
}
