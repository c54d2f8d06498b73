// Package report turns expense, payment and income ledgers into monthly,
// annual and all-time financial reports.
//
// Every report shape goes through the same rollup over a window of records;
// the windows differ only in which bucket they read. Agency share for a window
// is always the sum of per-month shares produced by package share.
package report

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"talentdesk/internal/bucket"
	"talentdesk/internal/core"
	"talentdesk/internal/share"
)

// Options tune the engine. Zero fields fall back to DefaultOptions.
type Options struct {
	ShareScope     share.Scope
	TopN           int
	RecentExpenses int
	RecentIncomes  int
	RecentPayments int
}

func DefaultOptions() Options {
	return Options{
		ShareScope:     share.PerTalent,
		TopN:           5,
		RecentExpenses: 10,
		RecentIncomes:  10,
		RecentPayments: 15,
	}
}

// Engine is stateless apart from its options and safe for concurrent use.
type Engine struct {
	opts Options
}

func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.ShareScope == "" {
		opts.ShareScope = def.ShareScope
	}
	if opts.TopN <= 0 {
		opts.TopN = def.TopN
	}
	if opts.RecentExpenses <= 0 {
		opts.RecentExpenses = def.RecentExpenses
	}
	if opts.RecentIncomes <= 0 {
		opts.RecentIncomes = def.RecentIncomes
	}
	if opts.RecentPayments <= 0 {
		opts.RecentPayments = def.RecentPayments
	}
	return &Engine{opts: opts}
}

func (e *Engine) Options() Options {
	return e.opts
}

// index is the read-only view of one ledger snapshot that rollups work from.
type index struct {
	users    map[int64]core.User
	talents  map[int64]core.Talent
	salaries decimal.Decimal

	expenses bucket.Buckets[core.Expense]
	payments bucket.Buckets[core.Payment]
	incomes  bucket.Buckets[core.Income]

	shares        []share.MonthlyShare
	sharesByMonth map[string]decimal.Decimal
}

func expenseDate(e core.Expense) time.Time { return e.Date.Time }
func paymentDate(p core.Payment) time.Time { return p.Date.Time }
func incomeMonth(i core.Income) time.Time  { return i.AccountingMonth.Time }

func (e *Engine) index(l core.Ledger) *index {
	ix := &index{
		users:    make(map[int64]core.User, len(l.Users)),
		talents:  make(map[int64]core.Talent, len(l.Talents)),
		salaries: decimal.Zero,
		expenses: bucket.ByMonth(l.Expenses, expenseDate),
		payments: bucket.ByMonth(l.Payments, paymentDate),
		incomes:  bucket.ByMonth(l.Incomes, incomeMonth),
	}
	for _, u := range l.Users {
		ix.users[u.ID] = u
		if u.Salary.IsPositive() {
			ix.salaries = ix.salaries.Add(u.Salary)
		}
	}
	for _, t := range l.Talents {
		ix.talents[t.ID] = t
	}

	ix.shares = share.MonthlyAgencyShares(share.MonthlyIncomeTotals(l.Incomes, e.opts.ShareScope))
	ix.sharesByMonth = share.ByMonth(ix.shares)
	return ix
}

func (ix *index) userLabel(id int64) string {
	if u, ok := ix.users[id]; ok && strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return Unknown
}

func (ix *index) talentLabel(id int64) string {
	if t, ok := ix.talents[id]; ok && strings.TrimSpace(t.Name) != "" {
		return t.Name
	}
	return Unknown
}

// months lists every month key present in any ledger.
func (ix *index) months() []string {
	return bucket.MergeKeys(ix.expenses.Keys(), ix.payments.Keys(), ix.incomes.Keys())
}

// window is a set of month keys a rollup reads.
type window []string

func (ix *index) yearWindow(year string) window {
	var w window
	for _, m := range ix.months() {
		if bucket.YearOfMonth(m) == year {
			w = append(w, m)
		}
	}
	return w
}

// records gathers the window's records in month order.
func (ix *index) records(w window) ([]core.Expense, []core.Payment, []core.Income) {
	var (
		exps []core.Expense
		pays []core.Payment
		incs []core.Income
	)
	for _, m := range w {
		exps = append(exps, ix.expenses.Get(m)...)
		pays = append(pays, ix.payments.Get(m)...)
		incs = append(incs, ix.incomes.Get(m)...)
	}
	return exps, pays, incs
}

// windowShare sums the already tiered share of each month in the window.
func (ix *index) windowShare(w window) decimal.Decimal {
	total := decimal.Zero
	for _, m := range w {
		total = total.Add(ix.sharesByMonth[m])
	}
	return total
}

// rollup is the single aggregation every report shape is built from.
func (ix *index) rollup(w window) Summary {
	exps, pays, incs := ix.records(w)
	return ix.summarize(exps, pays, incs, ix.windowShare(w))
}

func (ix *index) summarize(exps []core.Expense, pays []core.Payment, incs []core.Income, agencyShare decimal.Decimal) Summary {
	s := Summary{
		TotalSpent:      decimal.Zero,
		SalaryPayments:  decimal.Zero,
		ExpensePayments: decimal.Zero,
		PaymentCount:    len(pays),
		Expenses: ExpenseTotals{
			Total:     decimal.Zero,
			Recurring: decimal.Zero,
			OneOff:    decimal.Zero,
			Count:     len(exps),
		},
		Income:      IncomeTotals{Total: decimal.Zero, Count: len(incs)},
		AgencyShare: agencyShare,
	}

	for _, p := range pays {
		s.TotalSpent = s.TotalSpent.Add(p.Amount)
		if p.Type == core.PaymentSalary {
			s.SalaryPayments = s.SalaryPayments.Add(p.Amount)
		} else {
			s.ExpensePayments = s.ExpensePayments.Add(p.Amount)
		}
	}

	byCategory, byUser := newTally(), newTally()
	for _, e := range exps {
		s.Expenses.Total = s.Expenses.Total.Add(e.Amount)
		if e.IsRecurring {
			s.Expenses.Recurring = s.Expenses.Recurring.Add(e.Amount)
		} else {
			s.Expenses.OneOff = s.Expenses.OneOff.Add(e.Amount)
		}
		byCategory.add(e.Category, e.Amount)
		byUser.add(ix.userLabel(e.UserID), e.Amount)
	}

	byPlatform, byTalent := newTally(), newTally()
	for _, in := range incs {
		s.Income.Total = s.Income.Total.Add(in.ActualValueUSD)
		byPlatform.add(in.Platform, in.ActualValueUSD)
		byTalent.add(ix.talentLabel(in.TalentID), in.ActualValueUSD)
	}

	s.NetFlow = s.AgencyShare.Sub(s.TotalSpent)
	s.EstimatedMonthlyCost = ix.salaries.Add(s.Expenses.Recurring)
	s.ByCategory = categories(byCategory.descending())
	s.ByUser = users(byUser.descending())
	s.IncomeByPlatform = platforms(byPlatform.descending())
	s.IncomeByTalent = talents(byTalent.descending())
	return s
}

// Monthly returns one report per month present in any ledger, oldest first.
func (e *Engine) Monthly(l core.Ledger) []MonthlyReport {
	ix := e.index(l)
	months := ix.months()
	out := make([]MonthlyReport, 0, len(months))
	for _, m := range months {
		out = append(out, MonthlyReport{Month: m, Summary: ix.rollup(window{m})})
	}
	return out
}

// MonthlyFor returns the report of a single YYYY-MM month; months without
// records yield zero totals and empty breakdowns.
func (e *Engine) MonthlyFor(l core.Ledger, month string) MonthlyReport {
	ix := e.index(l)
	return MonthlyReport{Month: month, Summary: ix.rollup(window{month})}
}

// Annual returns one report per year present in any ledger, oldest first.
func (e *Engine) Annual(l core.Ledger) []AnnualReport {
	ix := e.index(l)
	var yrs []string
	for _, m := range ix.months() {
		y := bucket.YearOfMonth(m)
		if len(yrs) == 0 || yrs[len(yrs)-1] != y {
			yrs = append(yrs, y)
		}
	}
	out := make([]AnnualReport, 0, len(yrs))
	for _, y := range yrs {
		out = append(out, ix.annual(y))
	}
	return out
}

// AnnualFor returns the report of a single YYYY year.
func (e *Engine) AnnualFor(l core.Ledger, year string) AnnualReport {
	return e.index(l).annual(year)
}

func (ix *index) annual(year string) AnnualReport {
	w := ix.yearWindow(year)
	r := AnnualReport{
		Year:             year,
		Summary:          ix.rollup(w),
		MonthlyBreakdown: make([]MonthEntry, 0, len(w)),
	}
	r.EstimatedAnnualCost = ix.salaries.Mul(decimal.NewFromInt(12)).Add(r.Expenses.Recurring)

	for _, m := range w {
		ms := ix.rollup(window{m})
		r.MonthlyBreakdown = append(r.MonthlyBreakdown, MonthEntry{
			Month:       m,
			Expenses:    ms.Expenses.Total,
			Payments:    ms.TotalSpent,
			Income:      ms.Income.Total,
			AgencyShare: ms.AgencyShare,
		})
	}
	return r
}
