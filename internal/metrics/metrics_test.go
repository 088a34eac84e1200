package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/san-kum/vlab/internal/clock"
	"github.com/san-kum/vlab/internal/experiment"
	"github.com/san-kum/vlab/internal/lab"
)

func TestMetrics_ObserveRun(t *testing.T) {
	m := New()
	manual := clock.NewManual()
	ctl := experiment.NewController(experiment.WithClock(manual))
	defer ctl.Close()
	ctl.Subscribe(m.Observe)

	if err := ctl.Select(lab.KindTitration); err != nil {
		t.Fatal(err)
	}
	if err := ctl.Start(); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.running.WithLabelValues("titration")); got != 1 {
		t.Errorf("running = %v, want 1", got)
	}

	manual.RunUntilStopped(10000)

	if got := testutil.ToFloat64(m.ticks.WithLabelValues("titration")); got != 500 {
		t.Errorf("ticks = %v, want 500", got)
	}
	if got := testutil.ToFloat64(m.events.WithLabelValues("titration", string(lab.EventEndpointReached))); got != 1 {
		t.Errorf("endpoint events = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("titration", "completed")); got != 1 {
		t.Errorf("completed runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.running.WithLabelValues("titration")); got != 0 {
		t.Errorf("running = %v after completion, want 0", got)
	}

	r, err := ctl.Report()
	if err != nil {
		t.Fatal(err)
	}
	m.ObserveReport(lab.KindTitration, r)
	if got := testutil.ToFloat64(m.reports.WithLabelValues("titration", r.Accuracy)); got != 1 {
		t.Errorf("reports = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.percentError); n != 1 {
		t.Errorf("percent error series = %d, want 1", n)
	}
}

func TestMetrics_NoDataReportSkipsHistogram(t *testing.T) {
	m := New()
	m.ObserveReport(lab.KindPendulum, lab.NoDataReport(2, "s"))
	if n := testutil.CollectAndCount(m.percentError); n != 0 {
		t.Errorf("percent error series = %d, want 0", n)
	}
	if got := testutil.ToFloat64(m.reports.WithLabelValues("pendulum", lab.NoDataLabel)); got != 1 {
		t.Errorf("no-data reports = %v, want 1", got)
	}
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.Observe(lab.Event{Kind: lab.EventTick})
	m.ObserveReport(lab.KindSpring, lab.Report{})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	h := m.WrapHandler("/teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot", nil))

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("/teapot", "418")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "vlab_http_requests_total") {
		t.Error("exposition missing vlab_http_requests_total")
	}
}
