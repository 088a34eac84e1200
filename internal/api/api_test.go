package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/vlab/internal/clock"
	"github.com/san-kum/vlab/internal/experiment"
	"github.com/san-kum/vlab/internal/formula"
	"github.com/san-kum/vlab/internal/lab"
	"github.com/san-kum/vlab/internal/metrics"
)

type fixture struct {
	manual *clock.Manual
	ctl    *experiment.Controller
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	manual := clock.NewManual()
	ctl := experiment.NewController(experiment.WithClock(manual))
	t.Cleanup(ctl.Close)
	m := metrics.New()
	ctl.Subscribe(m.Observe)
	return &fixture{
		manual: manual,
		ctl:    ctl,
		router: NewServer(ctl, WithMetrics(m)).Router(),
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestAPI_Catalogue(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/experiments", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list := decode[[]experiment.Info](t, rec)
	if len(list) != 4 || list[0].ID != lab.KindPermanganometry {
		t.Errorf("list = %+v", list)
	}

	rec = f.do(t, http.MethodGet, "/experiments/pendulum", nil)
	got := decode[experimentResponse](t, rec)
	if got.ID != lab.KindPendulum || len(got.Params) != 3 {
		t.Errorf("pendulum = %+v", got)
	}

	if rec := f.do(t, http.MethodGet, "/experiments/electrolysis", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown experiment status = %d, want 404", rec.Code)
	}
}

func TestAPI_TitrationSession(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(t, http.MethodPost, "/session/start", nil); rec.Code != http.StatusConflict {
		t.Errorf("start before select = %d, want 409", rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/session", selectRequest{Experiment: lab.KindTitration})
	if rec.Code != http.StatusOK {
		t.Fatalf("select = %d: %s", rec.Code, rec.Body)
	}
	snap := decode[lab.Snapshot](t, rec)
	if snap.Status != lab.StatusSetup || snap.Burette.CurrentVolume != 50 {
		t.Errorf("snapshot = %+v", snap)
	}

	rec = f.do(t, http.MethodPost, "/session/start", nil)
	if snap := decode[lab.Snapshot](t, rec); snap.Status != lab.StatusRunning || snap.RunID == "" {
		t.Errorf("start snapshot = %+v", snap)
	}
	if rec := f.do(t, http.MethodPost, "/session/start", nil); rec.Code != http.StatusConflict {
		t.Errorf("second start = %d, want 409", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/session/report", nil); rec.Code != http.StatusConflict {
		t.Errorf("report while running = %d, want 409", rec.Code)
	}

	f.manual.Advance(250 * clock.TitrationInterval)
	rec = f.do(t, http.MethodPost, "/session/stop", nil)
	if snap := decode[lab.Snapshot](t, rec); snap.Status != lab.StatusCompleted || !snap.Flask.EndpointReached || snap.Burette.VolumeAdded != 25 {
		t.Errorf("stop snapshot = %+v", snap)
	}

	rep := decode[lab.Report](t, f.do(t, http.MethodGet, "/session/report", nil))
	if rep.Measured != 25 || rep.Accuracy != formula.Excellent {
		t.Errorf("report = %+v", rep)
	}

	st := decode[stateResponse](t, f.do(t, http.MethodGet, "/session/state", nil))
	if st.Status != lab.StatusCompleted || st.Measurements["volume_added"] != 25 || !strings.Contains(st.Hint, "repeat") {
		t.Errorf("state = %+v", st)
	}

	rec = f.do(t, http.MethodPost, "/session/reset", nil)
	if snap := decode[lab.Snapshot](t, rec); snap.Status != lab.StatusSetup || snap.Burette.CurrentVolume != 50 {
		t.Errorf("reset snapshot = %+v", snap)
	}
}

func TestAPI_Params(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/session", selectRequest{
		Experiment: lab.KindPendulum,
		Params:     map[string]float64{"length": 2},
	})

	got := decode[paramsResponse](t, f.do(t, http.MethodGet, "/session/params", nil))
	if got.Experiment != lab.KindPendulum || got.Values["length"] != 2 || len(got.Specs) != 3 {
		t.Errorf("params = %+v", got)
	}

	rec := f.do(t, http.MethodPut, "/session/params", map[string]float64{"gravity": 1.62})
	if got := decode[paramsResponse](t, rec); got.Values["gravity"] != 1.62 {
		t.Errorf("gravity = %v", got.Values["gravity"])
	}

	tests := []struct {
		name   string
		params map[string]float64
		want   int
	}{
		{"negative length", map[string]float64{"length": -1}, http.StatusUnprocessableEntity},
		{"unknown name", map[string]float64{"damping": 0.1}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := f.do(t, http.MethodPut, "/session/params", tt.params); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/session/params", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", rec.Code)
	}

	f.do(t, http.MethodPost, "/session/start", nil)
	if rec := f.do(t, http.MethodPut, "/session/params", map[string]float64{"length": 1}); rec.Code != http.StatusConflict {
		t.Errorf("params while running = %d, want 409", rec.Code)
	}
}

func TestAPI_NoDataReport(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/session", selectRequest{Experiment: lab.KindSpring})
	f.do(t, http.MethodPost, "/session/start", nil)
	f.do(t, http.MethodPost, "/session/stop", nil)

	rec := f.do(t, http.MethodGet, "/session/report", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rep := decode[lab.Report](t, rec); !rep.NoData || rep.Accuracy != lab.NoDataLabel {
		t.Errorf("report = %+v", rep)
	}
}

func TestAPI_Metrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/health", nil)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `vlab_http_requests_total{route="/health",status="200"} 1`) {
		t.Errorf("metrics = %d\n%s", rec.Code, rec.Body)
	}
}

func TestAPI_EventStream(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/session/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	if !lines.Scan() || lines.Text() != ": connected" {
		t.Fatalf("first line = %q", lines.Text())
	}

	if err := f.ctl.Select(lab.KindTitration); err != nil {
		t.Fatal(err)
	}
	if err := f.ctl.Start(); err != nil {
		t.Fatal(err)
	}
	f.manual.Advance(250 * clock.TitrationInterval)

	var kinds []string
	for lines.Scan() && len(kinds) < 3 {
		if k, ok := strings.CutPrefix(lines.Text(), "event: "); ok {
			kinds = append(kinds, k)
		}
	}
	want := []string{"status_changed", "status_changed", "endpoint_reached"}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", kinds, want)
	}
}
