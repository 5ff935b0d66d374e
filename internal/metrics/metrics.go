package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registration outcome labels.
const (
	OutcomeCreated   = "created"
	OutcomeInvalid   = "invalid"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

// Metrics provides observability for the registration intake server.
// Each instance owns its registry so handlers can be built repeatedly.
type Metrics struct {
	registry *prometheus.Registry

	Registrations        *prometheus.CounterVec
	RegistrationDuration prometheus.Histogram
}

// New creates a new Metrics instance with all intake metrics registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lottery_registrations_total",
			Help: "Registration attempts by outcome",
		}, []string{"campaign", "outcome"}),
		RegistrationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lottery_registration_duration_seconds",
			Help:    "Duration of registration requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveRegistration records one registration attempt.
// Call with time.Now() at the start of the request.
func (m *Metrics) ObserveRegistration(campaignID, outcome string, start time.Time) {
	m.Registrations.WithLabelValues(campaignID, outcome).Inc()
	m.RegistrationDuration.Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
