package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"talentdesk/internal/budget"
	"talentdesk/internal/core"
	"talentdesk/internal/ledger/memory"
	applog "talentdesk/internal/log"
	"talentdesk/internal/metrics"
	"talentdesk/internal/report"
	"talentdesk/internal/services"
)

func fixture() core.Ledger {
	d := decimal.RequireFromString
	return core.Ledger{
		Users: []core.User{
			{ID: 1, Name: "Ana", Salary: d("3000"), Types: []string{"MANAGER"}},
		},
		Talents: []core.Talent{
			{ID: 10, Name: "Luna", ContractDate: core.NewDate(2024, 3, 15), AnnualBudget: d("2000"), ManagerID: core.ID(1)},
		},
		Expenses: []core.Expense{
			{ID: 1, Description: "flight", Amount: d("100"), Category: "Travel", Status: core.StatusPaid, Date: core.NewDate(2025, 6, 10), UserID: 1, TalentID: core.ID(10)},
		},
		Payments: []core.Payment{
			{ID: 1, Amount: d("100"), Type: core.PaymentExpense, Description: "flight", Date: core.NewDate(2025, 6, 12), UserID: 1, ExpenseID: core.ID(1)},
		},
		Incomes: []core.Income{
			{ID: 1, TalentID: 10, AccountingMonth: core.NewDate(2025, 6, 1), Platform: "YouTube", Currency: "USD", ActualValueUSD: d("1200")},
		},
	}
}

var testNow = time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, reports Reports, opts Options) http.Handler {
	t.Helper()
	if reports == nil {
		reports = services.NewReportService(memory.New(fixture()), nil, services.ReportServiceConfig{})
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Handler: slog.NewTextHandler(&bytes.Buffer{}, nil)})
	}
	opts.Now = func() time.Time { return testNow }
	s, err := NewServer(":0", reports, opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s.Handler()
}

func get(t *testing.T, h http.Handler, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v\n%s", path, err, rec.Body.String())
		}
	}
	return rec
}

func TestReportEndpoints(t *testing.T) {
	h := newTestServer(t, nil, Options{})

	var months []report.MonthlyReport
	if rec := get(t, h, "/api/reports/monthly", &months); rec.Code != http.StatusOK {
		t.Fatalf("monthly status = %d", rec.Code)
	}
	if len(months) != 1 || months[0].Month != "2025-06" {
		t.Fatalf("months = %+v", months)
	}

	var june report.MonthlyReport
	get(t, h, "/api/reports/monthly/2025-06", &june)
	if !june.AgencyShare.Equal(decimal.NewFromInt(240)) || !june.TotalSpent.Equal(decimal.NewFromInt(100)) {
		t.Errorf("june = share %s spent %s", june.AgencyShare, june.TotalSpent)
	}

	var year report.AnnualReport
	get(t, h, "/api/reports/annual/2025", &year)
	if year.Year != "2025" || len(year.MonthlyBreakdown) != 1 {
		t.Errorf("annual = %s, %d months", year.Year, len(year.MonthlyBreakdown))
	}

	var years []report.AnnualReport
	get(t, h, "/api/reports/annual", &years)
	if len(years) != 1 {
		t.Errorf("years = %d", len(years))
	}

	var all report.AllTimeReport
	if rec := get(t, h, "/api/reports/all-time?perTalent=true", &all); rec.Code != http.StatusOK {
		t.Fatalf("all-time status = %d", rec.Code)
	}
	if !all.AgencyShare.Equal(decimal.NewFromInt(240)) {
		t.Errorf("all-time share = %s", all.AgencyShare)
	}

	var d services.Dashboard
	get(t, h, "/api/dashboard?now=2025-06-02", &d)
	if d.CurrentMonth.Month != "2025-06" || d.CurrentYear.Year != "2025" || d.Snapshot == "" {
		t.Errorf("dashboard = %s %s %q", d.CurrentMonth.Month, d.CurrentYear.Year, d.Snapshot)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	h := newTestServer(t, nil, Options{})

	var tb budget.TalentBudget
	if rec := get(t, h, "/api/budgets/talents/10", &tb); rec.Code != http.StatusOK {
		t.Fatalf("talent budget status = %d: %s", rec.Code, rec.Body.String())
	}
	if tb.Period.Start.String() != "2025-03-15" || tb.Period.End.String() != "2026-03-15" {
		t.Errorf("period = %s..%s", tb.Period.Start, tb.Period.End)
	}
	if !tb.Spent.Equal(decimal.NewFromInt(100)) || !tb.Remaining.Equal(decimal.NewFromInt(1900)) || tb.OverBudget {
		t.Errorf("budget = spent %s remaining %s", tb.Spent, tb.Remaining)
	}

	// the previous period saw no spending
	get(t, h, "/api/budgets/talents/10?now=2025-03-14", &tb)
	if !tb.Spent.IsZero() || tb.Period.Start.String() != "2024-03-15" {
		t.Errorf("earlier period = %s spent %s", tb.Period.Start, tb.Spent)
	}

	var mb budget.ManagerBudget
	get(t, h, "/api/budgets/managers/1", &mb)
	if mb.Summary.TalentCount != 1 || !mb.Summary.TotalRemaining.Equal(decimal.NewFromInt(1900)) {
		t.Errorf("manager summary = %+v", mb.Summary)
	}

	mb = budget.ManagerBudget{}
	if rec := get(t, h, "/api/budgets/managers/42", &mb); rec.Code != http.StatusOK {
		t.Fatalf("unknown manager status = %d", rec.Code)
	}
	if mb.ManagerID != 42 || len(mb.Talents) != 0 || mb.Summary.TalentCount != 0 {
		t.Errorf("unknown manager = %+v", mb)
	}
}

func TestErrorMapping(t *testing.T) {
	h := newTestServer(t, nil, Options{})

	tests := []struct {
		path string
		want int
	}{
		{"/api/budgets/talents/999", http.StatusNotFound},
		{"/api/budgets/talents/abc", http.StatusBadRequest},
		{"/api/budgets/talents/0", http.StatusBadRequest},
		{"/api/budgets/managers/1?now=20-06-2025", http.StatusBadRequest},
		{"/api/reports/monthly/2025-13", http.StatusBadRequest},
		{"/api/reports/annual/twenty", http.StatusBadRequest},
		{"/api/reports/all-time?perTalent=maybe", http.StatusBadRequest},
		{"/api/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path, nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if !strings.HasPrefix(tt.path, "/api/nope") {
				var body errorBody
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" || body.RequestID == "" {
					t.Errorf("error body = %s", rec.Body.String())
				}
			}
		})
	}
}

type failingSource struct{}

func (failingSource) LoadLedger(context.Context) (core.Ledger, error) {
	return core.Ledger{}, errors.New("disk on fire")
}

func TestInternalErrorsAreHidden(t *testing.T) {
	var logs bytes.Buffer
	opts := Options{Logger: applog.New(applog.Config{Handler: slog.NewTextHandler(&logs, nil)})}
	h := newTestServer(t, services.NewReportService(failingSource{}, nil, services.ReportServiceConfig{}), opts)

	rec := get(t, h, "/api/reports/monthly", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk on fire") {
		t.Errorf("internal error leaked: %s", rec.Body.String())
	}
	var failed string
	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.Contains(line, `msg="Request failed"`) {
			failed = line
		}
	}
	id := rec.Header().Get("X-Request-ID")
	if !strings.Contains(failed, "disk on fire") || !strings.Contains(failed, "component=http") || !strings.Contains(failed, "request_id="+id) {
		t.Errorf("failure log = %q, want error, http component and request id %s", failed, id)
	}

	if rec := get(t, h, "/readyz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz = %d, want 503", rec.Code)
	}
	if rec := get(t, h, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
}

func TestMiddlewareChain(t *testing.T) {
	m := metrics.New()
	h := newTestServer(t, nil, Options{Metrics: m.Handler(), Observe: m.ObserveHTTP, RateLimit: 2})

	rec := get(t, h, "/api/budgets/talents/10", nil)
	if rec.Header().Get("X-Request-ID") == "" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("headers = %v", rec.Header())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}

	get(t, h, "/readyz", nil)
	rec = get(t, h, "/healthz", nil)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("third request = %d", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error != "rate limit exceeded" {
		t.Errorf("429 body = %s", rec.Body.String())
	}

	metricsRec := httptest.NewRecorder()
	m.Handler().ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(metricsRec.Body.String(), `path="/api/budgets/talents/{id}"`) {
		t.Errorf("metrics should label by route pattern:\n%s", metricsRec.Body.String())
	}
}
