package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Simulation outcomes recorded in convsim_simulations_total.
const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeFailed  = "failed"
)

type Metrics struct {
	registry     *prometheus.Registry
	simulations  *prometheus.CounterVec
	simDuration  *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "convsim_simulations_total",
			Help: "Simulations run, by detected topology and outcome.",
		}, []string{"topology", "outcome"}),
		simDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "convsim_simulation_duration_seconds",
			Help:    "Wall time spent integrating one circuit.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"topology"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "convsim_http_requests_total",
			Help: "HTTP requests processed, by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "convsim_http_request_duration_seconds",
			Help:    "HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.simulations,
		m.simDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) ObserveSimulation(topology, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.simulations.WithLabelValues(topology, outcome).Inc()
	if outcome == outcomeOK {
		m.simDuration.WithLabelValues(topology).Observe(d.Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
