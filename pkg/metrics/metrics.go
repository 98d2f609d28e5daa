// Package metrics exposes request counters and latency histograms for the
// prediction service in the prometheus text format.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Exporter owns its own registry, so tests can run several side by side
// without duplicate registration panics.
type Exporter struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kardia_requests_total",
			Help: "Requests served, by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)
	durations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kardia_request_duration_seconds",
			Help:    "Request latency, by endpoint.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	registry.MustRegister(requests, durations)

	return &Exporter{
		registry:  registry,
		requests:  requests,
		durations: durations,
	}
}

// Middleware observes every request. The endpoint label is the matched route
// pattern, not the raw URL, so path parameters do not blow up cardinality.
func (x *Exporter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			endpoint := c.Path()
			if endpoint == "" {
				endpoint = c.Request().URL.Path
			}

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var httpErr *echo.HTTPError
				if errors.As(err, &httpErr) {
					status = httpErr.Code
				}
			}

			x.requests.WithLabelValues(endpoint, outcome(status)).Inc()
			x.durations.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the scrape endpoint.
func (x *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(x.registry, promhttp.HandlerOpts{})
}

// Gather exposes the registry content for tests.
func (x *Exporter) Gather() ([]*dto.MetricFamily, error) {
	return x.registry.Gather()
}

func outcome(status int) string {
	switch {
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	default:
		return "ok"
	}
}
