package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/apps"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/config"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/healthcheck"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/pipeline"
)

type stubProcessor struct {
	res    *pipeline.Result
	err    error
	panics bool
	input  string
	ctx    context.Context
}

func (p *stubProcessor) Process(ctx context.Context, input string) (*pipeline.Result, error) {
	if p.panics {
		panic("boom")
	}
	p.input = input
	p.ctx = ctx
	return p.res, p.err
}

type stubHealth struct{ report healthcheck.Report }

func (h stubHealth) Report() healthcheck.Report { return h.report }

func testServer(t *testing.T, port int, p Processor, h HealthReporter) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server = config.ServerConfig{Port: port, Host: "localhost"}
	return New(cfg, p, h, nil)
}

func post(t *testing.T, h http.Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestMessageSuccess(t *testing.T) {
	p := &stubProcessor{res: &pipeline.Result{
		App:    apps.Matchmaking,
		Values: map[string]any{"namespace": "mm", "resources": map[string]any{}},
	}}
	srv := testServer(t, 18803, p, nil)

	w := post(t, srv.Router(), `{"input": "increase replicas"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"namespace": "mm", "resources": {}}`, w.Body.String())
	assert.Equal(t, "increase replicas", p.input)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestMessageFailureReturnsDetail(t *testing.T) {
	p := &stubProcessor{err: &pipeline.Failure{
		Kind:   pipeline.SchemaViolation,
		Reason: "Validation failed after retry: missing property 'namespace'",
	}}
	srv := testServer(t, 18803, p, nil)

	w := post(t, srv.Router(), `{"input": "break it"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Validation failed after retry: missing property 'namespace'", body.Detail)
}

func TestMessageRejectsBadBody(t *testing.T) {
	p := &stubProcessor{err: errors.New("should not run")}
	srv := testServer(t, 18803, p, nil)

	for _, body := range []string{``, `not json`, `{}`, `{"input": null}`, `{"input": 3}`} {
		w := post(t, srv.Router(), body, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, body)
	}
	assert.Empty(t, p.input)
}

func TestMessageDetachesCancellation(t *testing.T) {
	p := &stubProcessor{res: &pipeline.Result{App: apps.Chat, Values: map[string]any{}}}
	srv := testServer(t, 18803, p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(`{"input": "x"}`)).WithContext(ctx)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.NotNil(t, p.ctx)
	assert.NoError(t, p.ctx.Err())
	assert.Equal(t, "req-42", RequestID(p.ctx))
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestPanicRecovered(t *testing.T) {
	srv := testServer(t, 18803, &stubProcessor{panics: true}, nil)
	w := post(t, srv.Router(), `{"input": "x"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal Server Error")
}

func TestHealthHandler(t *testing.T) {
	h := stubHealth{report: healthcheck.Report{
		Status: "degraded",
		Dependencies: map[string]*healthcheck.DependencyStatus{
			"oracle": {Name: "oracle", Status: healthcheck.StatusDown},
		},
	}}
	srv := testServer(t, 18803, &stubProcessor{}, h)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var hr HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hr))
	assert.Equal(t, "degraded", hr.Status)
	assert.Equal(t, healthcheck.StatusDown, hr.Dependencies["oracle"].Status)
}

func TestHealthWithoutChecker(t *testing.T) {
	srv := testServer(t, 18803, &stubProcessor{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	var hr HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hr))
	assert.Equal(t, "healthy", hr.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t, 18803, &stubProcessor{err: &pipeline.Failure{Kind: pipeline.OracleSilent, Reason: "x"}}, nil)
	post(t, srv.Router(), `{"input": "x"}`, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `configbot_requests_total{outcome="failure"}`)
}

func TestUnknownRoutes(t *testing.T) {
	srv := testServer(t, 18803, &stubProcessor{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/message", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShutdown(t *testing.T) {
	srv := testServer(t, 18801, &stubProcessor{}, nil)
	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-errc)
}
