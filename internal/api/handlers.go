package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/san-kum/vlab/internal/experiment"
	"github.com/san-kum/vlab/internal/lab"
)

type errorResponse struct {
	Error string `json:"error"`
}

type selectRequest struct {
	Experiment lab.Kind           `json:"experiment"`
	Params     map[string]float64 `json:"params,omitempty"`
}

type experimentResponse struct {
	experiment.Info
	Params []lab.ParamSpec `json:"params"`
}

type paramsResponse struct {
	Experiment lab.Kind           `json:"experiment"`
	Values     map[string]float64 `json:"values"`
	Specs      []lab.ParamSpec    `json:"specs"`
}

type stateResponse struct {
	experiment.AssistantState
	Hint string `json:"hint"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lab.ErrUnknownExperiment):
		return http.StatusNotFound
	case errors.Is(err, lab.ErrInvalidParameter), errors.Is(err, lab.ErrUnknownParameter):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lab.ErrInvalidTransition), errors.Is(err, lab.ErrNoExperiment):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	s.log.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listExperiments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Registry().List())
}

func (s *Server) getExperiment(w http.ResponseWriter, r *http.Request) {
	kind := lab.Kind(mux.Vars(r)["id"])
	info, err := s.ctl.Registry().Info(kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	specs, err := s.ctl.Registry().ParamSpecs(kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, experimentResponse{Info: info, Params: specs})
}

func (s *Server) selectExperiment(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid body: %v", err)})
		return
	}
	if err := s.ctl.Select(req.Experiment); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.ctl.ApplyParams(req.Params); err != nil {
		s.fail(w, r, err)
		return
	}
	s.snapshot(w, r)
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.ctl.Start)
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.ctl.Stop)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.ctl.Reset)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, op func() error) {
	if err := op(); err != nil {
		s.fail(w, r, err)
		return
	}
	s.snapshot(w, r)
}

func (s *Server) getParams(w http.ResponseWriter, r *http.Request) {
	values, err := s.ctl.Params()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	specs, err := s.ctl.ParamSpecs()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paramsResponse{Experiment: s.ctl.Kind(), Values: values, Specs: specs})
}

func (s *Server) putParams(w http.ResponseWriter, r *http.Request) {
	var params map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid body: %v", err)})
		return
	}
	if err := s.ctl.ApplyParams(params); err != nil {
		s.fail(w, r, err)
		return
	}
	s.getParams(w, r)
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctl.Snapshot()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// report answers 200 with a no-data report when the run measured nothing.
func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	rep, err := s.ctl.Report()
	if err != nil && !errors.Is(err, lab.ErrDegenerateMeasurement) {
		s.fail(w, r, err)
		return
	}
	s.metrics.ObserveReport(s.ctl.Kind(), rep)
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) state(w http.ResponseWriter, _ *http.Request) {
	st := s.ctl.AssistantState()
	writeJSON(w, http.StatusOK, stateResponse{AssistantState: st, Hint: st.Hint()})
}
