// Package telemetry provides Prometheus metrics for the careward server:
// HTTP server metrics recorded by an Echo middleware, domain counters
// incremented by the clinical services, and a /metrics exposition handler.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider owns the metrics registry and all instrument handles.
type Provider struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge

	triageClassifications *prometheus.CounterVec
	admissionTransitions  *prometheus.CounterVec
	dosesRecorded         *prometheus.CounterVec

	dbPoolActive prometheus.Gauge
	dbPoolIdle   prometheus.Gauge
}

// NewProvider creates a Provider with its own registry, so that tests can
// construct independent instances without duplicate-registration panics.
func NewProvider(serviceName string) *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	constLabels := prometheus.Labels{"service": serviceName}

	p := &Provider{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total HTTP requests by method, route and status code.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method", "route"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "http_active_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: constLabels,
		}),
		triageClassifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "triage_classifications_total",
			Help:        "Total triage classifications by category.",
			ConstLabels: constLabels,
		}, []string{"category"}),
		admissionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "admission_transitions_total",
			Help:        "Total admission status transitions by target status.",
			ConstLabels: constLabels,
		}, []string{"status"}),
		dosesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "mar_doses_recorded_total",
			Help:        "Total medication administration outcomes by status.",
			ConstLabels: constLabels,
		}, []string{"status"}),
		dbPoolActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_pool_active_connections",
			Help:        "Number of active database pool connections.",
			ConstLabels: constLabels,
		}),
		dbPoolIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_pool_idle_connections",
			Help:        "Number of idle database pool connections.",
			ConstLabels: constLabels,
		}),
	}

	reg.MustRegister(
		p.requestsTotal,
		p.requestDuration,
		p.activeRequests,
		p.triageClassifications,
		p.admissionTransitions,
		p.dosesRecorded,
		p.dbPoolActive,
		p.dbPoolIdle,
	)

	return p
}

// Middleware returns Echo middleware that records request count, duration and
// in-flight gauge for every request. The route pattern (not the raw path) is
// used as the label to keep cardinality bounded.
func (p *Provider) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p.activeRequests.Inc()
			start := time.Now()

			err := next(c)

			p.activeRequests.Dec()

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			method := c.Request().Method
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			p.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			p.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler returns an Echo handler serving the Prometheus exposition format.
func (p *Provider) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
}

// TriageClassified increments the triage classification counter.
func (p *Provider) TriageClassified(category string) {
	p.triageClassifications.WithLabelValues(category).Inc()
}

// AdmissionTransition increments the admission transition counter.
func (p *Provider) AdmissionTransition(status string) {
	p.admissionTransitions.WithLabelValues(status).Inc()
}

// DoseRecorded increments the dose outcome counter.
func (p *Provider) DoseRecorded(status string) {
	p.dosesRecorded.WithLabelValues(status).Inc()
}

// SetDBPoolStats updates the database pool gauges.
func (p *Provider) SetDBPoolStats(active, idle int64) {
	p.dbPoolActive.Set(float64(active))
	p.dbPoolIdle.Set(float64(idle))
}
