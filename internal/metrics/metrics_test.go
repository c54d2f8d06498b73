package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveHTTP(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/api/dashboard", 200, 15*time.Millisecond)
	m.ObserveHTTP("GET", "/api/dashboard", 200, 5*time.Millisecond)
	m.ObserveHTTP("GET", "/api/dashboard", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/dashboard", "200")); got != 2 {
		t.Errorf("200 count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/dashboard", "404")); got != 1 {
		t.Errorf("404 count = %v, want 1", got)
	}
}

func TestCountersByLabel(t *testing.T) {
	m := New()
	m.CacheLookup("monthly", true)
	m.CacheLookup("monthly", false)
	m.CacheLookup("monthly", false)
	m.LedgerEvent("expense", "created")
	m.Export(nil)
	m.Export(errors.New("quota"))

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"cache hit", testutil.ToFloat64(m.cacheLookups.WithLabelValues("monthly", "hit")), 1},
		{"cache miss", testutil.ToFloat64(m.cacheLookups.WithLabelValues("monthly", "miss")), 2},
		{"ledger event", testutil.ToFloat64(m.ledgerEvents.WithLabelValues("expense", "created")), 1},
		{"export ok", testutil.ToFloat64(m.exports.WithLabelValues("ok")), 1},
		{"export error", testutil.ToFloat64(m.exports.WithLabelValues("error")), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.ObserveReport("annual", 2*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `talentdesk_report_compute_duration_seconds_count{report="annual"} 1`) {
		t.Errorf("report histogram missing from output:\n%s", body)
	}
}
