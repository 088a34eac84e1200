// Package metrics exposes lab activity as Prometheus collectors.
//
// Collectors live on a private registry so several controllers, or tests,
// never collide on the global default registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/vlab/internal/lab"
)

type Metrics struct {
	reg *prometheus.Registry

	ticks        *prometheus.CounterVec
	events       *prometheus.CounterVec
	runs         *prometheus.CounterVec
	running      *prometheus.GaugeVec
	percentError *prometheus.HistogramVec
	reports      *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vlab_ticks_total",
			Help: "Clock ticks delivered to a running simulator.",
		}, []string{"experiment"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vlab_events_total",
			Help: "Domain events emitted, by experiment and kind.",
		}, []string{"experiment", "kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vlab_runs_total",
			Help: "Runs that reached a status, by experiment.",
		}, []string{"experiment", "status"}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vlab_running",
			Help: "1 while an experiment is running.",
		}, []string{"experiment"}),
		percentError: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vlab_report_percent_error",
			Help:    "Percent error of completed measurements.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}, []string{"experiment"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vlab_reports_total",
			Help: "Reports produced, by accuracy label.",
		}, []string{"experiment", "accuracy"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vlab_http_requests_total",
			Help: "HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vlab_http_request_duration_seconds",
			Help:    "HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.reg.MustRegister(
		m.ticks,
		m.events,
		m.runs,
		m.running,
		m.percentError,
		m.reports,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry is the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Observe counts a controller event. It is meant to be passed to
// Controller.Subscribe.
func (m *Metrics) Observe(ev lab.Event) {
	if m == nil {
		return
	}
	kind := string(ev.Snapshot.Kind)
	switch ev.Kind {
	case lab.EventTick:
		m.ticks.WithLabelValues(kind).Inc()
		return
	case lab.EventStatusChanged:
		m.runs.WithLabelValues(kind, ev.Snapshot.Status.String()).Inc()
		if ev.Snapshot.Status == lab.StatusRunning {
			m.running.WithLabelValues(kind).Set(1)
		} else {
			m.running.WithLabelValues(kind).Set(0)
		}
	}
	m.events.WithLabelValues(kind, string(ev.Kind)).Inc()
}

func (m *Metrics) ObserveReport(kind lab.Kind, r lab.Report) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(string(kind), r.Accuracy).Inc()
	if !r.NoData {
		m.percentError.WithLabelValues(string(kind)).Observe(r.PercentError)
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

// Flush keeps streaming responses working through the wrapper.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
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
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
