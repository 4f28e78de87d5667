package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramosmx/clubpilot/pkg/browser"
	"github.com/ramosmx/clubpilot/pkg/extract"
	"github.com/ramosmx/clubpilot/pkg/login"
	"github.com/ramosmx/clubpilot/pkg/server"
)

type stubService struct {
	resp *extract.Response
	err  error
	last extract.Request
}

func (s *stubService) Extract(_ context.Context, req extract.Request) (*extract.Response, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type stubPool struct{ status browser.PoolStatus }

func (p *stubPool) Status() browser.PoolStatus { return p.status }

type stubEngine struct{ ready bool }

func (e *stubEngine) Ready() bool { return e.ready }

type stubExtractor struct{ name string }

func (e *stubExtractor) Descriptor() extract.Descriptor {
	return extract.Descriptor{Name: e.name, Description: "stub", RequiresNavigation: true}
}

func (e *stubExtractor) Extract(context.Context, browser.Handle, string) (map[string]any, error) {
	return map[string]any{}, nil
}

func newTestServer(t *testing.T, service *stubService, engine *stubEngine) *httptest.Server {
	t.Helper()

	registry := extract.NewRegistry()
	registry.MustRegister(&stubExtractor{name: "profile"})
	registry.MustRegister(&stubExtractor{name: "tasks"})

	pool := &stubPool{status: browser.PoolStatus{Active: 1, Idle: 0, Capacity: 3}}
	srv := server.NewServer("127.0.0.1:0", service, registry, pool, engine, nil)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func extractBody(include ...string) string {
	req := extract.Request{
		Credentials: login.Credentials{Username: "juan", Password: "secreto"},
		Include:     include,
	}
	data, _ := json.Marshal(req)
	return string(data)
}

func TestHandleExtractSuccess(t *testing.T) {
	service := &stubService{resp: &extract.Response{
		Success:   true,
		Message:   "1/1 extractors succeeded",
		SessionID: "abc",
		Outcomes:  []extract.Outcome{{Extractor: "profile", Status: extract.StatusSuccess}},
	}}
	ts := newTestServer(t, service, &stubEngine{ready: true})

	resp, err := http.Post(ts.URL+"/api/v1/extract", "application/json", strings.NewReader(extractBody("profile")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"profile"}, service.last.Include)

	var body extract.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "abc", body.SessionID)
}

func TestHandleExtractPartialFailureIsStillOK(t *testing.T) {
	service := &stubService{resp: &extract.Response{
		Success:  false,
		Message:  "0/1 extractors succeeded",
		Outcomes: []extract.Outcome{{Extractor: "profile", Status: extract.StatusFailed, Error: "boom"}},
		Errors:   []string{"profile: boom"},
	}}
	ts := newTestServer(t, service, &stubEngine{ready: true})

	resp, err := http.Post(ts.URL+"/api/v1/extract", "application/json", strings.NewReader(extractBody("profile")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "partial failure is a normal response")
}

func TestHandleExtractValidation(t *testing.T) {
	ts := newTestServer(t, &stubService{}, &stubEngine{ready: true})

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: "{nope"},
		{name: "missing credentials", body: `{"include":["profile"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/v1/extract", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHandleExtractErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantStage  string
	}{
		{
			name: "auth failure",
			err: &extract.RequestError{
				Stage: extract.StageAuthenticate,
				Err:   &login.AuthError{Username: "juan", Reason: "bad password"},
			},
			wantStatus: http.StatusUnauthorized,
			wantStage:  extract.StageAuthenticate,
		},
		{
			name: "target not found",
			err: &extract.RequestError{
				Stage: extract.StageSelectTarget,
				Err:   &login.TargetError{RequestedName: "No Existe"},
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantStage:  extract.StageSelectTarget,
		},
		{
			name: "pool exhausted",
			err: &extract.RequestError{
				Stage: extract.StageAcquire,
				Err:   fmt.Errorf("wrapped: %w", browser.ErrPoolExhausted),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantStage:  extract.StageAcquire,
		},
		{
			name:       "unclassified failure",
			err:        fmt.Errorf("engine exploded"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &stubService{err: tt.err}, &stubEngine{ready: true})

			resp, err := http.Post(ts.URL+"/api/v1/extract", "application/json", strings.NewReader(extractBody("profile")))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body struct {
				Error string `json:"error"`
				Stage string `json:"stage"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.wantStage, body.Stage)
		})
	}
}

func TestHandleAvailable(t *testing.T) {
	ts := newTestServer(t, &stubService{}, &stubEngine{ready: true})

	resp, err := http.Get(ts.URL + "/api/v1/extract/available")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Extractors []extract.Descriptor `json:"extractors"`
		Count      int                  `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "profile", body.Extractors[0].Name)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, &stubService{}, &stubEngine{ready: true})

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestReadinessFailsWithoutEngine(t *testing.T) {
	ts := newTestServer(t, &stubService{}, &stubEngine{ready: false})

	resp, err := http.Get(ts.URL + "/health/ready")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		Status string             `json:"status"`
		Pool   browser.PoolStatus `json:"pool"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, 3, body.Pool.Capacity)
}

func TestMetricsEndpoint(t *testing.T) {
	service := &stubService{resp: &extract.Response{
		Success:  true,
		Outcomes: []extract.Outcome{{Extractor: "profile", Status: extract.StatusSuccess}},
	}}
	ts := newTestServer(t, service, &stubEngine{ready: true})

	resp, err := http.Post(ts.URL+"/api/v1/extract", "application/json", strings.NewReader(extractBody("profile")))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(raw)

	assert.Contains(t, text, "clubpilot_pool_capacity 3")
	assert.Contains(t, text, `clubpilot_extractions_total{status="success"} 1`)
	assert.Contains(t, text, `clubpilot_extractor_outcomes_total{extractor="profile",status="success"} 1`)
}
