package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRootHandler(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
		wantBody string
		wantType string
	}{
		{"get root", http.MethodGet, "/", 200, RootMessage, "text/plain; charset=utf-8"},
		{"head root", http.MethodHead, "/", 200, "", "text/plain; charset=utf-8"},
		{"post root", http.MethodPost, "/", 405, `{"error":"method not allowed"}`, "application/json"},
		{"unknown path", http.MethodGet, "/nope", 404, `{"error":"not found"}`, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RootHandler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", w.Code, tt.wantCode)
			}
			if got := w.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
			if got := w.Header().Get("Content-Type"); got != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", got, tt.wantType)
			}
		})
	}
}
