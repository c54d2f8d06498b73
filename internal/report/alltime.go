package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"talentdesk/internal/bucket"
	"talentdesk/internal/core"
	"talentdesk/internal/share"
)

// AllTimeOptions select optional parts of the all-time report.
type AllTimeOptions struct {
	// PerTalent adds agencyShareByTalent and tiers the headline share per
	// talent per month. Without it the headline pools every talent's income
	// of a month before tiering, whatever the engine's scope.
	PerTalent bool
}

// AllTime summarises the whole ledger.
func (e *Engine) AllTime(l core.Ledger, opts AllTimeOptions) AllTimeReport {
	ix := e.index(l)

	var (
		agencyShare decimal.Decimal
		perTalent   []share.MonthlyShare
	)
	if opts.PerTalent {
		perTalent = ix.shares
		if e.opts.ShareScope != share.PerTalent {
			perTalent = share.MonthlyAgencyShares(share.MonthlyIncomeTotals(l.Incomes, share.PerTalent))
		}
		agencyShare = share.SumShares(perTalent)
	} else {
		agencyShare = share.Compute(l.Incomes, share.Global)
	}

	r := AllTimeReport{
		Summary: ix.summarize(l.Expenses, l.Payments, l.Incomes, agencyShare),
	}
	r.ExpensesByStatus = statusTotals(l.Expenses)

	r.TopCategories = top(r.ByCategory, e.opts.TopN)
	r.TopUsers = top(r.ByUser, e.opts.TopN)
	r.TopPlatforms = top(r.IncomeByPlatform, e.opts.TopN)
	r.TopTalents = top(r.IncomeByTalent, e.opts.TopN)

	r.TotalMonthlySalaries = ix.salaries
	r.SalaryByUserType = salaryByUserType(l.Users)
	r.TalentSalaries = ix.talentSalaries(l.Expenses)

	r.RecentExpenses = ix.recentExpenses(l.Expenses, e.opts.RecentExpenses)
	r.RecentIncomes = ix.recentIncomes(l.Incomes, e.opts.RecentIncomes)
	r.RecentPayments = ix.recentPayments(l.Payments, e.opts.RecentPayments)

	r.SpendTrend = spendTrend(l.Payments)
	r.IncomeTrend = incomeTrend(l.Incomes)

	if opts.PerTalent {
		byTalent := share.ByTalent(perTalent)
		t := newTally()
		for _, id := range talentIDs(perTalent) {
			t.add(ix.talentLabel(id), byTalent[id])
		}
		r.AgencyShareByTalent = talents(t.descending())
	}
	return r
}

func top[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return append(make([]T, 0, len(items)), items...)
}

func talentIDs(shares []share.MonthlyShare) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, s := range shares {
		if _, ok := seen[s.TalentID]; ok {
			continue
		}
		seen[s.TalentID] = struct{}{}
		ids = append(ids, s.TalentID)
	}
	return ids
}

func statusTotals(exps []core.Expense) StatusTotals {
	st := StatusTotals{Pending: decimal.Zero, Paid: decimal.Zero}
	for _, e := range exps {
		if e.Status == core.StatusPaid {
			st.Paid = st.Paid.Add(e.Amount)
			st.PaidCount++
			continue
		}
		st.Pending = st.Pending.Add(e.Amount)
		st.PendingCount++
	}
	return st
}

// salaryByUserType counts each user's salary once under every type it has.
func salaryByUserType(us []core.User) []TypeAmount {
	t := newTally()
	for _, u := range us {
		if !u.Salary.IsPositive() {
			continue
		}
		if len(u.Types) == 0 {
			t.add(Unknown, u.Salary)
			continue
		}
		for _, typ := range u.Types {
			t.add(typ, u.Salary)
		}
	}
	return types(t.descending())
}

// talentSalaries sums salary expenses booked against a talent.
func (ix *index) talentSalaries(exps []core.Expense) []TalentAmount {
	t := newTally()
	for _, e := range exps {
		if !e.IsSalary || e.TalentID == nil {
			continue
		}
		t.add(ix.talentLabel(*e.TalentID), e.Amount)
	}
	return talents(t.descending())
}

// newestFirst returns the order of records by date descending, ties in input
// order.
func newestFirst(n int, date func(int) core.Date) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return date(idx[a]).After(date(idx[b]).Time)
	})
	return idx
}

func limit(idx []int, n int) []int {
	if len(idx) > n {
		return idx[:n]
	}
	return idx
}

func (ix *index) recentExpenses(exps []core.Expense, n int) []RecentExpense {
	order := limit(newestFirst(len(exps), func(i int) core.Date { return exps[i].Date }), n)
	out := make([]RecentExpense, 0, len(order))
	for _, i := range order {
		e := exps[i]
		re := RecentExpense{
			ID:          e.ID,
			Description: e.Description,
			Amount:      e.Amount,
			Category:    e.Category,
			Status:      e.Status,
			Date:        e.Date,
			User:        ix.userLabel(e.UserID),
		}
		if e.TalentID != nil {
			re.Talent = ix.talentLabel(*e.TalentID)
		}
		out = append(out, re)
	}
	return out
}

func (ix *index) recentIncomes(incs []core.Income, n int) []RecentIncome {
	order := limit(newestFirst(len(incs), func(i int) core.Date { return incs[i].AccountingMonth }), n)
	out := make([]RecentIncome, 0, len(order))
	for _, i := range order {
		in := incs[i]
		out = append(out, RecentIncome{
			ID:              in.ID,
			Talent:          ix.talentLabel(in.TalentID),
			Platform:        in.Platform,
			AccountingMonth: in.AccountingMonth,
			AmountUSD:       in.ActualValueUSD,
			Description:     in.Description,
		})
	}
	return out
}

func (ix *index) recentPayments(pays []core.Payment, n int) []RecentPayment {
	order := limit(newestFirst(len(pays), func(i int) core.Date { return pays[i].Date }), n)
	out := make([]RecentPayment, 0, len(order))
	for _, i := range order {
		p := pays[i]
		out = append(out, RecentPayment{
			ID:          p.ID,
			Type:        p.Type,
			Description: p.Description,
			Amount:      p.Amount,
			Date:        p.Date,
			User:        ix.userLabel(p.UserID),
		})
	}
	return out
}

func spendTrend(pays []core.Payment) []YearAmount {
	t := newTally()
	for y, ps := range bucket.ByYear(pays, paymentDate) {
		total := decimal.Zero
		for _, p := range ps {
			total = total.Add(p.Amount)
		}
		t.add(y, total)
	}
	return years(t.ascendingLabel())
}

func incomeTrend(incs []core.Income) []YearAmount {
	t := newTally()
	for y, is := range bucket.ByYear(incs, incomeMonth) {
		total := decimal.Zero
		for _, in := range is {
			total = total.Add(in.ActualValueUSD)
		}
		t.add(y, total)
	}
	return years(t.ascendingLabel())
}
