package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"comfyd/pkg/types"
)

type stubService struct {
	ready bool
	state types.SupervisorState
}

func (s stubService) Status() types.StatusResponse {
	return types.StatusResponse{State: s.state, HandlerMode: types.HandlerModeJob}
}

func (s stubService) Ready() bool { return s.ready }

func TestHealthz(t *testing.T) {
	mux := NewMux(stubService{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	mux := NewMux(stubService{ready: false, state: types.StateInferenceStarting})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz while starting: %d", rec.Code)
	}

	mux = NewMux(stubService{ready: true, state: types.StateRunning})
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ready" {
		t.Fatalf("readyz while running: %d %q", rec.Code, rec.Body.String())
	}
}

func TestStatus(t *testing.T) {
	mux := NewMux(stubService{state: types.StateRunning})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code: %d", rec.Code)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.State != types.StateRunning {
		t.Fatalf("state: %s", st.State)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := NewMux(stubService{})
	// generate at least one instrumented request first
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics code: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "comfyd_http_requests_total") {
		t.Fatalf("metrics output missing request counter")
	}
}

func TestItoa(t *testing.T) {
	cases := map[int]string{0: "0", 200: "200", 404: "404", 503: "503"}
	for in, want := range cases {
		if got := itoa(in); got != want {
			t.Fatalf("itoa(%d) = %q, want %q", in, got, want)
		}
	}
}
