package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	applog "talentdesk/internal/log"
)

func testLogger(buf *bytes.Buffer) *applog.Logger {
	return applog.New(applog.Config{
		Component: applog.ComponentTrace,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	var observed int

	m := NewMiddleware(nil, testLogger(&buf), func(method, path string, status int, _ time.Duration) {
		if method != http.MethodGet || path != "/api/reports/monthly/{month}" || status != http.StatusTeapot {
			t.Errorf("observer got %s %s %d", method, path, status)
		}
		observed++
	})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/reports/monthly/{month}", func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		applog.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})
	h := m.Middleware(mux)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/monthly/2025-06", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if got := rec.Header().Get(HeaderRequestID); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}
	if observed != 1 {
		t.Errorf("observer called %d times", observed)
	}
	if !strings.Contains(buf.String(), "request_id="+seen) || !strings.Contains(buf.String(), "inside handler") {
		t.Errorf("handler log should carry the request id:\n%s", buf.String())
	}
	if m.GetMetrics().TotalRequests != 1 {
		t.Errorf("total requests = %d", m.GetMetrics().TotalRequests)
	}
}

func TestMiddlewareKeepsCallerRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(nil, testLogger(&buf), nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("request id = %q, want caller's", got)
	}

	req.Header.Set(HeaderRequestID, strings.Repeat("x", 100))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); !strings.HasPrefix(got, "req_") {
		t.Errorf("oversized id should be replaced, got %q", got)
	}
}

func TestRouteLabelWithoutMux(t *testing.T) {
	var path string
	m := NewMiddleware(nil, testLogger(&bytes.Buffer{}), func(_, p string, _ int, _ time.Duration) { path = p })
	m.Middleware(http.NotFoundHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x/1", nil))
	if path != "unmatched" {
		t.Errorf("path label = %q, want unmatched", path)
	}
}

func TestGenerateRequestIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
