package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"talentdesk/internal/amqp"
	"talentdesk/internal/budget"
	"talentdesk/internal/core"
	"talentdesk/internal/ledger"
	"talentdesk/internal/ledger/memory"
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

type countingSource struct {
	*memory.Store
	mu    sync.Mutex
	loads int
	err   error
}

func (c *countingSource) LoadLedger(ctx context.Context) (core.Ledger, error) {
	c.mu.Lock()
	c.loads++
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return core.Ledger{}, err
	}
	return c.Store.LoadLedger(ctx)
}

func (c *countingSource) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

type fakeRecorder struct {
	mu           sync.Mutex
	hits, misses int
	observed     map[string]int
}

func (r *fakeRecorder) ObserveReport(report string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.observed == nil {
		r.observed = map[string]int{}
	}
	r.observed[report]++
}

func (r *fakeRecorder) CacheLookup(_ string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newService(t *testing.T) (*ReportService, *countingSource, *fakeRecorder, *clock) {
	t.Helper()
	src := &countingSource{Store: memory.New(fixture())}
	rec := &fakeRecorder{}
	clk := &clock{t: time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)}
	svc := NewReportService(src, nil, ReportServiceConfig{CacheTTL: time.Minute, Recorder: rec, Now: clk.now})
	return svc, src, rec, clk
}

func TestReportServiceCachesPerSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, src, rec, _ := newService(t)

	first, err := svc.MonthlyFor(ctx, "2025-06")
	if err != nil {
		t.Fatalf("MonthlyFor: %v", err)
	}
	second, err := svc.MonthlyFor(ctx, "2025-06")
	if err != nil {
		t.Fatalf("MonthlyFor: %v", err)
	}

	if !first.AgencyShare.Equal(decimal.NewFromInt(240)) || !second.AgencyShare.Equal(first.AgencyShare) {
		t.Errorf("agency share = %s / %s, want 240", first.AgencyShare, second.AgencyShare)
	}
	if src.Loads() != 1 {
		t.Errorf("loads = %d, want 1", src.Loads())
	}
	if rec.hits != 1 || rec.misses != 1 || rec.observed["monthly"] != 1 {
		t.Errorf("recorder = %+v", rec)
	}
}

func TestReportServiceInvalidate(t *testing.T) {
	ctx := context.Background()
	svc, src, _, _ := newService(t)

	v1, err := svc.Version(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if _, err := svc.Annual(ctx); err != nil {
		t.Fatalf("Annual: %v", err)
	}

	svc.Invalidate(ctx)
	v2, err := svc.Version(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v1 == v2 {
		t.Error("snapshot version should change after Invalidate")
	}
	if src.Loads() != 2 {
		t.Errorf("loads = %d, want 2", src.Loads())
	}
}

func TestReportServiceSnapshotExpires(t *testing.T) {
	ctx := context.Background()
	svc, src, _, clk := newService(t)

	if _, err := svc.AllTime(ctx, false); err != nil {
		t.Fatalf("AllTime: %v", err)
	}
	clk.advance(30 * time.Second)
	if _, err := svc.AllTime(ctx, false); err != nil {
		t.Fatalf("AllTime: %v", err)
	}
	if src.Loads() != 1 {
		t.Fatalf("loads = %d before TTL, want 1", src.Loads())
	}

	clk.advance(time.Minute)
	if _, err := svc.AllTime(ctx, false); err != nil {
		t.Fatalf("AllTime: %v", err)
	}
	if src.Loads() != 2 {
		t.Errorf("loads = %d after TTL, want 2", src.Loads())
	}
}

func TestReportServiceRejectsBadPeriods(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newService(t)

	tests := []struct {
		name string
		call func() error
	}{
		{"month", func() error { _, err := svc.MonthlyFor(ctx, "2025-13"); return err }},
		{"month format", func() error { _, err := svc.MonthlyFor(ctx, "June"); return err }},
		{"year", func() error { _, err := svc.AnnualFor(ctx, "25"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrInvalidPeriod) {
				t.Errorf("err = %v, want ErrInvalidPeriod", err)
			}
		})
	}
}

func TestReportServiceBudgets(t *testing.T) {
	ctx := context.Background()
	svc, _, _, clk := newService(t)

	tb, err := svc.TalentBudget(ctx, 10, clk.now())
	if err != nil {
		t.Fatalf("TalentBudget: %v", err)
	}
	if !tb.Spent.Equal(decimal.NewFromInt(100)) || tb.Period.Start.String() != "2025-03-15" {
		t.Errorf("budget = spent %s period %s", tb.Spent, tb.Period.Start)
	}

	if _, err := svc.TalentBudget(ctx, 99, clk.now()); !errors.Is(err, budget.ErrTalentNotFound) {
		t.Errorf("err = %v, want ErrTalentNotFound", err)
	}

	mb, err := svc.ManagerBudget(ctx, 1, clk.now())
	if err != nil {
		t.Fatalf("ManagerBudget: %v", err)
	}
	if mb.Summary.TalentCount != 1 || !mb.Summary.TotalRemaining.Equal(decimal.NewFromInt(1900)) {
		t.Errorf("summary = %+v", mb.Summary)
	}
}

func TestDashboardReadsOneSnapshot(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{Store: memory.New(fixture())}

	// every clock read is past the TTL, so any unpinned lookup would reload
	var mu sync.Mutex
	t0 := time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)
	racing := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t0 = t0.Add(2 * time.Minute)
		return t0
	}
	svc := NewReportService(src, nil, ReportServiceConfig{CacheTTL: time.Minute, Now: racing})

	d, err := svc.Dashboard(ctx, time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if src.Loads() != 1 {
		t.Errorf("dashboard loaded %d snapshots, want 1", src.Loads())
	}
	if d.Snapshot == "" || d.CurrentMonth.Month != "2025-06" || !d.AllTime.AgencyShare.Equal(decimal.NewFromInt(240)) {
		t.Errorf("dashboard = %s %s %s", d.Snapshot, d.CurrentMonth.Month, d.AllTime.AgencyShare)
	}

	// a pinned snapshot outlives Invalidate
	snap, err := svc.snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	svc.Invalidate(ctx)
	if _, err := svc.MonthlyFor(withSnapshot(ctx, snap), "2025-06"); err != nil {
		t.Fatalf("MonthlyFor: %v", err)
	}
	if src.Loads() != 2 {
		t.Errorf("pinned lookup reloaded: %d loads, want 2", src.Loads())
	}
}

func TestReportServiceDashboard(t *testing.T) {
	ctx := context.Background()
	svc, src, _, clk := newService(t)

	d, err := svc.Dashboard(ctx, clk.now())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.CurrentMonth.Month != "2025-06" || d.CurrentYear.Year != "2025" {
		t.Errorf("dashboard windows = %s / %s", d.CurrentMonth.Month, d.CurrentYear.Year)
	}
	if !d.AllTime.AgencyShare.Equal(decimal.NewFromInt(240)) || !d.CurrentYear.AgencyShare.Equal(d.AllTime.AgencyShare) {
		t.Errorf("agency share year %s all-time %s", d.CurrentYear.AgencyShare, d.AllTime.AgencyShare)
	}
	v, _ := svc.Version(ctx)
	if d.Snapshot != v || src.Loads() != 1 {
		t.Errorf("snapshot %s vs %s, loads %d", d.Snapshot, v, src.Loads())
	}
}

func TestReportServiceLoadError(t *testing.T) {
	svc, src, _, _ := newService(t)
	src.err = errors.New("disk I/O error")

	if _, err := svc.Monthly(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if _, err := svc.Dashboard(context.Background(), time.Now()); err == nil {
		t.Fatal("expected load error from dashboard")
	}
}

type fakePublisher struct {
	msgs []*amqp.LedgerChangedMessage
	err  error
}

func (p *fakePublisher) PublishLedgerChanged(_ context.Context, msg *amqp.LedgerChangedMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

type fakeEvents map[string]int

func (e fakeEvents) LedgerEvent(entity, action string) { e[entity+"/"+action]++ }

func TestLedgerServiceWritesInvalidateAndPublish(t *testing.T) {
	ctx := context.Background()
	store := memory.New(fixture())
	reports := NewReportService(store, nil, ReportServiceConfig{})
	pub := &fakePublisher{}
	events := fakeEvents{}
	svc := NewLedgerService(store, pub, reports, events)

	before, err := reports.MonthlyFor(ctx, "2025-06")
	if err != nil {
		t.Fatalf("MonthlyFor: %v", err)
	}

	e, err := svc.CreateExpense(ctx, core.Expense{
		Description: "mic", Amount: decimal.NewFromInt(50), Category: "Gear",
		Date: core.NewDate(2025, 6, 15), UserID: 1, TalentID: core.ID(10),
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	after, err := reports.MonthlyFor(ctx, "2025-06")
	if err != nil {
		t.Fatalf("MonthlyFor: %v", err)
	}
	if !after.Expenses.Total.Sub(before.Expenses.Total).Equal(decimal.NewFromInt(50)) {
		t.Errorf("expenses %s -> %s, write not visible", before.Expenses.Total, after.Expenses.Total)
	}

	if _, err := svc.MarkExpensePaid(ctx, e.ID, core.NewDate(2025, 6, 16)); err != nil {
		t.Fatalf("MarkExpensePaid: %v", err)
	}

	if len(pub.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.msgs))
	}
	if m := pub.msgs[0]; m.Entity != amqp.EntityExpense || m.Action != amqp.ActionCreated || m.EntityID != e.ID {
		t.Errorf("first message = %+v", m)
	}
	if m := pub.msgs[1]; m.Action != amqp.ActionPaid || m.Validate() != nil {
		t.Errorf("second message = %+v", m)
	}
	if events["expense/created"] != 1 || events["expense/paid"] != 1 {
		t.Errorf("events = %v", events)
	}
}

func TestLedgerServicePublishFailureKeepsWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.New(fixture())
	svc := NewLedgerService(store, &fakePublisher{err: errors.New("circuit breaker is open")}, nil, nil)

	if _, err := svc.CreateUser(ctx, core.User{Name: "Bo", Salary: decimal.NewFromInt(10)}); err != nil {
		t.Fatalf("CreateUser should succeed when publishing fails: %v", err)
	}
	l, _ := store.LoadLedger(ctx)
	if len(l.Users) != 2 {
		t.Errorf("users = %d, want 2", len(l.Users))
	}
}

func TestLedgerServiceErrors(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewLedgerService(memory.New(fixture()), pub, nil, nil)

	if _, err := svc.CreateIncome(ctx, core.Income{TalentID: 10, AccountingMonth: core.NewDate(2025, 6, 2), Platform: "Twitch", ActualValueUSD: decimal.NewFromInt(5)}); !errors.Is(err, core.ErrNotFirstOfMonth) {
		t.Errorf("err = %v, want ErrNotFirstOfMonth", err)
	}
	if _, err := svc.MarkExpensePaid(ctx, 1, core.NewDate(2025, 6, 20)); !errors.Is(err, ledger.ErrAlreadyPaid) {
		t.Errorf("err = %v, want ErrAlreadyPaid", err)
	}
	if err := svc.DeletePayment(ctx, 42); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if len(pub.msgs) != 0 {
		t.Errorf("failed writes must not publish, got %d", len(pub.msgs))
	}
}
