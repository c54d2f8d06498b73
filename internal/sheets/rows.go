package sheets

import (
	"github.com/shopspring/decimal"

	"talentdesk/internal/report"
)

// Section headers, also used to find sections when reading a sheet back.
const (
	HeaderSummary  = "Summary"
	HeaderMonthly  = "Month"
	HeaderCategory = "Category"
	HeaderPlatform = "Platform"
)

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// AnnualRows lays an annual report out as a summary block, the monthly
// breakdown, then spend by category and income by platform. Amounts are
// fixed two-decimal strings so the sheet parses them as numbers.
func AnnualRows(r report.AnnualReport) [][]interface{} {
	rows := [][]interface{}{
		{HeaderSummary, r.Year},
		{"Total spent", amount(r.TotalSpent)},
		{"Salary payments", amount(r.SalaryPayments)},
		{"Expense payments", amount(r.ExpensePayments)},
		{"Expenses", amount(r.Expenses.Total)},
		{"Recurring expenses", amount(r.Expenses.Recurring)},
		{"One-off expenses", amount(r.Expenses.OneOff)},
		{"Income", amount(r.Income.Total)},
		{"Agency share", amount(r.AgencyShare)},
		{"Net flow", amount(r.NetFlow)},
		{"Estimated monthly cost", amount(r.EstimatedMonthlyCost)},
		{"Estimated annual cost", amount(r.EstimatedAnnualCost)},
		{},
		{HeaderMonthly, "Expenses", "Payments", "Income", "Agency share"},
	}
	for _, m := range r.MonthlyBreakdown {
		rows = append(rows, []interface{}{m.Month, amount(m.Expenses), amount(m.Payments), amount(m.Income), amount(m.AgencyShare)})
	}

	rows = append(rows, []interface{}{}, []interface{}{HeaderCategory, "Amount"})
	for _, c := range r.ByCategory {
		rows = append(rows, []interface{}{c.Category, amount(c.Amount)})
	}

	rows = append(rows, []interface{}{}, []interface{}{HeaderPlatform, "Amount"})
	for _, p := range r.IncomeByPlatform {
		rows = append(rows, []interface{}{p.Platform, amount(p.Amount)})
	}
	return rows
}
