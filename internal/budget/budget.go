// Package budget measures a talent's spending against the annual budget of
// their current contract period, and rolls those figures up per manager.
package budget

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"talentdesk/internal/core"
	"talentdesk/internal/period"
	"talentdesk/internal/report"
	"talentdesk/internal/share"
)

var ErrTalentNotFound = errors.New("talent not found")

type TalentRef struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ManagerID *int64 `json:"managerId,omitempty"`
}

type TalentBudget struct {
	Talent              TalentRef       `json:"talent"`
	Period              period.Period   `json:"period"`
	AnnualBudget        decimal.Decimal `json:"annualBudget"`
	Spent               decimal.Decimal `json:"spent"`
	Remaining           decimal.Decimal `json:"remaining"`
	UsedPercent         decimal.Decimal `json:"usedPercent"`
	OverBudget          bool            `json:"overBudget"`
	IncomeInPeriod      decimal.Decimal `json:"incomeInPeriod"`
	AgencyShareInPeriod decimal.Decimal `json:"agencyShareInPeriod"`
	NetFlow             decimal.Decimal `json:"netFlow"`

	Monthly []report.MonthlyReport `json:"monthly"`
	Annual  []report.AnnualReport  `json:"annual"`
	AllTime report.AllTimeReport   `json:"allTime"`
}

type ManagerSummary struct {
	TalentCount    int             `json:"talentCount"`
	TotalBudget    decimal.Decimal `json:"totalBudget"`
	TotalSpent     decimal.Decimal `json:"totalSpent"`
	TotalRemaining decimal.Decimal `json:"totalRemaining"`
	AgencyShare    decimal.Decimal `json:"agencyShare"`
	NetFlow        decimal.Decimal `json:"netFlow"`
}

type ManagerBudget struct {
	ManagerID int64          `json:"managerId"`
	Talents   []TalentBudget `json:"talents"`
	Summary   ManagerSummary `json:"summary"`
}

// Tracker computes budgets with the same engine the reports use, so a
// talent's sub-rollups match what the report endpoints would show for the
// same records.
type Tracker struct {
	engine *report.Engine
}

func NewTracker(engine *report.Engine) *Tracker {
	if engine == nil {
		engine = report.NewEngine(report.DefaultOptions())
	}
	return &Tracker{engine: engine}
}

// ForTalent returns the budget position of talentID for the period containing now.
func (t *Tracker) ForTalent(l core.Ledger, talentID int64, now time.Time) (TalentBudget, error) {
	for _, tl := range l.Talents {
		if tl.ID == talentID {
			return t.talentBudget(l, tl, now), nil
		}
	}
	return TalentBudget{}, ErrTalentNotFound
}

// ForManager returns the budgets of every talent managed by managerID, in
// ledger order, plus their straight sums. An unknown manager yields an empty
// result.
func (t *Tracker) ForManager(l core.Ledger, managerID int64, now time.Time) ManagerBudget {
	mb := ManagerBudget{
		ManagerID: managerID,
		Talents:   make([]TalentBudget, 0),
		Summary: ManagerSummary{
			TotalBudget:    decimal.Zero,
			TotalSpent:     decimal.Zero,
			TotalRemaining: decimal.Zero,
			AgencyShare:    decimal.Zero,
			NetFlow:        decimal.Zero,
		},
	}
	for _, tl := range l.Talents {
		if tl.ManagerID == nil || *tl.ManagerID != managerID {
			continue
		}
		tb := t.talentBudget(l, tl, now)
		mb.Talents = append(mb.Talents, tb)

		s := &mb.Summary
		s.TalentCount++
		s.TotalBudget = s.TotalBudget.Add(tb.AnnualBudget)
		s.TotalSpent = s.TotalSpent.Add(tb.Spent)
		s.TotalRemaining = s.TotalRemaining.Add(tb.Remaining)
		s.AgencyShare = s.AgencyShare.Add(tb.AgencyShareInPeriod)
		s.NetFlow = s.NetFlow.Add(tb.NetFlow)
	}
	return mb
}

func (t *Tracker) talentBudget(l core.Ledger, tl core.Talent, now time.Time) TalentBudget {
	scoped := ScopeToTalent(l, tl.ID)
	p := period.Resolve(tl.ContractDate.Time, now)

	spent := decimal.Zero
	for _, e := range scoped.Expenses {
		if !e.IsSalary && p.Contains(e.Date.Time) {
			spent = spent.Add(e.Amount)
		}
	}

	var inPeriod []core.Income
	income := decimal.Zero
	for _, in := range scoped.Incomes {
		if p.Contains(in.AccountingMonth.Time) {
			inPeriod = append(inPeriod, in)
			income = income.Add(in.ActualValueUSD)
		}
	}
	// One talent, so per-talent tiering applies regardless of engine scope.
	agencyShare := share.Compute(inPeriod, share.PerTalent)

	remaining := tl.AnnualBudget.Sub(spent)
	return TalentBudget{
		Talent:              TalentRef{ID: tl.ID, Name: tl.Name, ManagerID: tl.ManagerID},
		Period:              p,
		AnnualBudget:        tl.AnnualBudget,
		Spent:               spent,
		Remaining:           remaining,
		UsedPercent:         UsedPercent(spent, tl.AnnualBudget),
		OverBudget:          remaining.IsNegative(),
		IncomeInPeriod:      income,
		AgencyShareInPeriod: agencyShare,
		NetFlow:             agencyShare.Sub(spent),
		Monthly:             t.engine.Monthly(scoped),
		Annual:              t.engine.Annual(scoped),
		AllTime:             t.engine.AllTime(scoped, report.AllTimeOptions{}),
	}
}

// UsedPercent is spent/budget*100 rounded to cents. It is not capped at 100
// and is zero when the budget is not positive.
func UsedPercent(spent, budget decimal.Decimal) decimal.Decimal {
	if !budget.IsPositive() {
		return decimal.Zero
	}
	return spent.Mul(core.Hundred).DivRound(budget, 2)
}

// ScopeToTalent keeps the expenses booked against talentID, the payments
// settling those expenses and the talent's incomes. Users and talents are
// carried over so labels still resolve, but users lose their salaries: staff
// pay is an agency cost, not a talent's.
func ScopeToTalent(l core.Ledger, talentID int64) core.Ledger {
	out := core.Ledger{Users: make([]core.User, len(l.Users)), Talents: l.Talents}
	for i, u := range l.Users {
		u.Salary = decimal.Zero
		out.Users[i] = u
	}

	expenseIDs := make(map[int64]struct{})
	for _, e := range l.Expenses {
		if e.TalentID != nil && *e.TalentID == talentID {
			out.Expenses = append(out.Expenses, e)
			expenseIDs[e.ID] = struct{}{}
		}
	}
	for _, p := range l.Payments {
		if p.ExpenseID == nil {
			continue
		}
		if _, ok := expenseIDs[*p.ExpenseID]; ok {
			out.Payments = append(out.Payments, p)
		}
	}
	for _, in := range l.Incomes {
		if in.TalentID == talentID {
			out.Incomes = append(out.Incomes, in)
		}
	}
	return out
}
