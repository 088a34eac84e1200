// Package api serves one lab session over HTTP as JSON.
//
// Every handler is a thin call into the experiment controller; the UI drives
// the session through these routes and follows it through the event stream.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/san-kum/vlab/internal/experiment"
	"github.com/san-kum/vlab/internal/logging"
	"github.com/san-kum/vlab/internal/metrics"
)

type Server struct {
	ctl     *experiment.Controller
	metrics *metrics.Metrics
	log     *slog.Logger
}

type Option func(*Server)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func NewServer(ctl *experiment.Controller, opts ...Option) *Server {
	s := &Server{ctl: ctl}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	return s
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	handle := func(path string, h http.HandlerFunc, methods ...string) {
		r.Handle(path, s.metrics.WrapHandler(path, h)).Methods(methods...)
	}

	handle("/health", healthHandler, http.MethodGet)
	handle("/experiments", s.listExperiments, http.MethodGet)
	handle("/experiments/{id}", s.getExperiment, http.MethodGet)

	handle("/session", s.selectExperiment, http.MethodPost)
	handle("/session/start", s.start, http.MethodPost)
	handle("/session/stop", s.stop, http.MethodPost)
	handle("/session/reset", s.reset, http.MethodPost)
	handle("/session/params", s.getParams, http.MethodGet)
	handle("/session/params", s.putParams, http.MethodPut, http.MethodPatch)
	handle("/session/snapshot", s.snapshot, http.MethodGet)
	handle("/session/report", s.report, http.MethodGet)
	handle("/session/state", s.state, http.MethodGet)

	// the stream stays open, so it is kept out of the duration histogram
	r.HandleFunc("/session/events", s.events).Methods(http.MethodGet)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}
