package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// GeocodeJobs counts processed geocode jobs by outcome.
	GeocodeJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "geocode_jobs_total", Help: "Geocode job attempts by outcome."},
		[]string{"outcome"},
	)
	// GeocodeEnqueued counts enqueued jobs by reason.
	GeocodeEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "geocode_jobs_enqueued_total", Help: "Geocode jobs enqueued by reason."},
		[]string{"reason"},
	)
	// RouteSuggestions counts suggestion computations by geometry provider.
	RouteSuggestions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_suggestions_total", Help: "Route suggestions by geometry provider."},
		[]string{"provider"},
	)
	// ProviderRequests records external provider call latency by endpoint and result.
	ProviderRequests = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "provider_request_duration_seconds", Help: "External provider request duration in seconds.", Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}},
		[]string{"endpoint", "result"},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(GeocodeJobs)
		Registry.MustRegister(GeocodeEnqueued)
		Registry.MustRegister(RouteSuggestions)
		Registry.MustRegister(ProviderRequests)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
