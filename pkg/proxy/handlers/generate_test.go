package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/relay/internal/upstreamtest"
	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/telemetry/metrics"
	"mercator-hq/relay/pkg/upstream"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const (
	generatePath = "/generate_ai_response"
	validBody    = `{"user_id":"u1","session_id":"s1","prompt":"hi"}`
)

// recordingSink collects observed exchanges.
type recordingSink struct {
	mu        sync.Mutex
	exchanges []types.Exchange
}

func (s *recordingSink) Observe(_ context.Context, ex types.Exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges = append(s.exchanges, ex)
}

func (s *recordingSink) all() []types.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Exchange(nil), s.exchanges...)
}

type testEnv struct {
	mock      *upstreamtest.MockServer
	handler   *GenerateHandler
	collector *metrics.Collector
	sink      *recordingSink
}

func newTestEnv(t *testing.T, timeout time.Duration) *testEnv {
	t.Helper()

	mock := upstreamtest.NewMockServer(t)
	fwd, err := upstream.NewForwarder(upstream.Config{
		BaseURL: mock.URL(),
		Path:    generatePath,
		Timeout: timeout,
	})
	if err != nil {
		t.Fatalf("NewForwarder() error = %v", err)
	}
	t.Cleanup(fwd.Close)

	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, prometheus.NewRegistry())
	sink := &recordingSink{}

	handler := NewGenerateHandler(fwd, GenerateOptions{
		MaxBodyBytes: 1024,
		Metrics:      collector,
		Sinks:        []ExchangeSink{sink},
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return &testEnv{mock: mock, handler: handler, collector: collector, sink: sink}
}

func (e *testEnv) post(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/gemini", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body %q is not a JSON object: %v", w.Body.String(), err)
	}
	return body
}

func TestGenerateSuccessPassesBodyThrough(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.mock.SetResponse(generatePath, upstreamtest.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"response":"hello"}`,
	})

	w := env.post(validBody)

	if w.Code != http.StatusOK {
		t.Fatalf("Code = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != `{"response":"hello"}` {
		t.Errorf("body = %q, want upstream body unmodified", got)
	}

	requests := env.mock.Requests()
	if len(requests) != 1 {
		t.Fatalf("upstream calls = %d, want 1", len(requests))
	}
	var forwarded map[string]string
	if err := json.Unmarshal(requests[0].Body, &forwarded); err != nil {
		t.Fatalf("forwarded body: %v", err)
	}
	want := map[string]string{"user_id": "u1", "session_id": "s1", "prompt": "hi"}
	for k, v := range want {
		if forwarded[k] != v {
			t.Errorf("forwarded %s = %q, want %q", k, forwarded[k], v)
		}
	}
}

func TestGenerateValidationNeverCallsUpstream(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantError string
	}{
		{"empty body", "", 400, "Missing required fields: user_id, session_id, prompt"},
		{"empty object", "{}", 400, "Missing required fields: user_id, session_id, prompt"},
		{"missing prompt", `{"user_id":"u1","session_id":"s1"}`, 400, "Missing required fields: prompt"},
		{"blank session", `{"user_id":"u1","session_id":"  ","prompt":"hi"}`, 400, "Missing required fields: session_id"},
		{"non-string user", `{"user_id":7,"session_id":"s1","prompt":"hi"}`, 400, "Missing required fields: user_id"},
		{"array body", `["u1","s1","hi"]`, 400, "Missing required fields: user_id, session_id, prompt"},
		{"malformed JSON", `{"user_id":`, 400, types.MessageInvalidJSON},
		{"too large", `{"prompt":"` + strings.Repeat("a", 2048) + `"}`, 413, types.MessageBodyTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, time.Second)

			w := env.post(tt.body)

			if w.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", w.Code, tt.wantCode)
			}
			if body := decodeJSON(t, w); body["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", body["error"], tt.wantError)
			}
			if n := env.mock.RequestCount(); n != 0 {
				t.Errorf("upstream calls = %d, want 0", n)
			}
			if n := len(env.sink.all()); n != 0 {
				t.Errorf("sink saw %d exchanges for a rejected request", n)
			}
		})
	}
}

func TestGenerateIdenticalRequestsAreIndependent(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.mock.SetResponse(generatePath, upstreamtest.MockResponse{StatusCode: 200, Body: `{"response":"ok"}`})

	env.post(validBody)
	env.post(validBody)

	if n := env.mock.RequestCount(); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

func TestGenerateTimeout(t *testing.T) {
	env := newTestEnv(t, 100*time.Millisecond)
	env.mock.SetResponse(generatePath, upstreamtest.MockResponse{
		StatusCode: 200,
		Body:       `{"response":"late"}`,
		Delay:      2 * time.Second,
	})

	w := env.post(validBody)

	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("Code = %d, want 504", w.Code)
	}
	body := decodeJSON(t, w)
	if body["error"] != "request timed out after 100ms" {
		t.Errorf("error = %v", body["error"])
	}
	if _, ok := body["details"]; ok {
		t.Errorf("timeout body has details: %v", body)
	}
}

func TestGenerateApplicationError(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.mock.SetResponse(generatePath, upstreamtest.MockResponse{
		StatusCode: http.StatusUnprocessableEntity,
		Body:       `{"detail":"bad prompt"}`,
	})

	w := env.post(validBody)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Code = %d, want 422", w.Code)
	}
	body := decodeJSON(t, w)
	if body["error"] != "bad prompt" {
		t.Errorf("error = %v, want bad prompt", body["error"])
	}
	details, ok := body["details"].(map[string]any)
	if !ok || details["detail"] != "bad prompt" {
		t.Errorf("details = %v, want upstream body", body["details"])
	}
}

func TestGenerateConnectionFailure(t *testing.T) {
	fwd, err := upstream.NewForwarder(upstream.Config{
		BaseURL: upstreamtest.ClosedURL(t),
		Path:    generatePath,
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewForwarder() error = %v", err)
	}
	t.Cleanup(fwd.Close)
	handler := NewGenerateHandler(fwd, GenerateOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/gemini", strings.NewReader(validBody)))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Code = %d, want 500", w.Code)
	}
	body := decodeJSON(t, w)
	if body["error"] != types.MessageUpstreamFailed {
		t.Errorf("error = %v", body["error"])
	}
	if details, _ := body["details"].(string); details == "" {
		t.Error("details missing for connection failure")
	}
}

func TestGenerateMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, time.Second)

	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/gemini", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Code = %d, want 405", w.Code)
	}
	if allow := w.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow = %q, want POST", allow)
	}
	if body := decodeJSON(t, w); body["error"] != types.MessageMethodNotAllowed {
		t.Errorf("error = %v", body["error"])
	}
	if n := env.mock.RequestCount(); n != 0 {
		t.Errorf("upstream calls = %d, want 0", n)
	}
}

func TestGenerateNotifiesSinks(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.mock.SetResponse(generatePath, upstreamtest.MockResponse{StatusCode: 503, Body: `{"error":"overloaded"}`})

	env.post(validBody)

	exchanges := env.sink.all()
	if len(exchanges) != 1 {
		t.Fatalf("sink saw %d exchanges, want 1", len(exchanges))
	}
	ex := exchanges[0]
	if ex.UserID != "u1" || ex.SessionID != "s1" {
		t.Errorf("ids = %q/%q", ex.UserID, ex.SessionID)
	}
	if ex.Outcome != "application_error" || ex.StatusCode != 503 {
		t.Errorf("outcome = %s/%d", ex.Outcome, ex.StatusCode)
	}
	if ex.PromptChars != 2 || len(ex.PromptSHA256) != 64 {
		t.Errorf("prompt fingerprint = %d chars, %q", ex.PromptChars, ex.PromptSHA256)
	}
	if ex.Error == "" {
		t.Error("error not recorded for failed exchange")
	}
	if ex.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestGenerateRecordsMetrics(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.mock.SetResponse(generatePath, upstreamtest.MockResponse{StatusCode: 200, Body: `{"response":"ok"}`})

	env.post(validBody)
	env.post(`{}`)

	expected := `
# HELP relay_gateway_validation_failures_total Total number of requests rejected before forwarding
# TYPE relay_gateway_validation_failures_total counter
relay_gateway_validation_failures_total{reason="missing_fields"} 1
`
	if err := testutil.GatherAndCompare(env.collector.Registry(), bytes.NewBufferString(expected),
		"relay_gateway_validation_failures_total"); err != nil {
		t.Error(err)
	}

	expected = `
# HELP relay_gateway_requests_total Total number of relay requests by outcome and caller status
# TYPE relay_gateway_requests_total counter
relay_gateway_requests_total{outcome="success",status="200"} 1
relay_gateway_requests_total{outcome="validation_error",status="400"} 1
`
	if err := testutil.GatherAndCompare(env.collector.Registry(), bytes.NewBufferString(expected),
		"relay_gateway_requests_total"); err != nil {
		t.Error(err)
	}
}

func TestGenerateConcurrentRequests(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)
	env.mock.SetResponse(generatePath, upstreamtest.MockResponse{
		StatusCode: 200,
		Body:       `{"response":"ok"}`,
		Delay:      20 * time.Millisecond,
	})

	const n = 10
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := range n {
		wg.Go(func() {
			codes[i] = env.post(validBody).Code
		})
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d: Code = %d", i, code)
		}
	}
	if got := env.mock.RequestCount(); got != n {
		t.Errorf("upstream calls = %d, want %d", got, n)
	}
}
