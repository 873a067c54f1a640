package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the service's operational counters and gauges.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	StationsOccupied prometheus.Gauge
	ParkedSessions   prometheus.Gauge
	AlertsTotal      prometheus.Counter
	AutoStopsTotal   prometheus.Counter
}

// NewMetrics builds and registers the metric set on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentaldesk_http_requests_total",
			Help: "HTTP requests handled, by path and status class.",
		}, []string{"path", "status"}),
		StationsOccupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rentaldesk_stations_occupied",
			Help: "Stations currently hosting a session.",
		}),
		ParkedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rentaldesk_parked_sessions",
			Help: "Sessions currently parked off-station.",
		}),
		AlertsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rentaldesk_expiry_alerts_total",
			Help: "Clock ticks that raised a near-expiry alert.",
		}),
		AutoStopsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rentaldesk_auto_stops_total",
			Help: "Sessions stopped automatically at expiry.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.StationsOccupied,
		m.ParkedSessions,
		m.AlertsTotal,
		m.AutoStopsTotal,
	)
	return m
}

// Handler serves the registry in prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
