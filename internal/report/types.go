package report

import (
	"github.com/shopspring/decimal"

	"talentdesk/internal/core"
)

// Unknown labels records whose referenced user, talent or category is gone.
const Unknown = "Unknown"

type (
	CategoryAmount struct {
		Category string          `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
	}

	UserAmount struct {
		User   string          `json:"user"`
		Amount decimal.Decimal `json:"amount"`
	}

	PlatformAmount struct {
		Platform string          `json:"platform"`
		Amount   decimal.Decimal `json:"amount"`
	}

	TalentAmount struct {
		Talent string          `json:"talent"`
		Amount decimal.Decimal `json:"amount"`
	}

	TypeAmount struct {
		Type   string          `json:"type"`
		Amount decimal.Decimal `json:"amount"`
	}

	YearAmount struct {
		Year   string          `json:"year"`
		Amount decimal.Decimal `json:"amount"`
	}
)

// ExpenseTotals are expenses incurred in a window, by their own date.
type ExpenseTotals struct {
	Total     decimal.Decimal `json:"total"`
	Recurring decimal.Decimal `json:"recurring"`
	OneOff    decimal.Decimal `json:"oneOff"`
	Count     int             `json:"count"`
}

type IncomeTotals struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// Summary is the part shared by the monthly, annual and all-time reports.
type Summary struct {
	TotalSpent           decimal.Decimal  `json:"totalSpent"`
	SalaryPayments       decimal.Decimal  `json:"salaryPayments"`
	ExpensePayments      decimal.Decimal  `json:"expensePayments"`
	PaymentCount         int              `json:"paymentCount"`
	Expenses             ExpenseTotals    `json:"expenses"`
	Income               IncomeTotals     `json:"income"`
	AgencyShare          decimal.Decimal  `json:"agencyShare"`
	NetFlow              decimal.Decimal  `json:"netFlow"`
	EstimatedMonthlyCost decimal.Decimal  `json:"estimatedMonthlyCost"`
	ByCategory           []CategoryAmount `json:"byCategory"`
	ByUser               []UserAmount     `json:"byUser"`
	IncomeByPlatform     []PlatformAmount `json:"incomeByPlatform"`
	IncomeByTalent       []TalentAmount   `json:"incomeByTalent"`
}

type MonthlyReport struct {
	Month string `json:"month"`
	Summary
}

// MonthEntry is one row of an annual report's monthly breakdown.
type MonthEntry struct {
	Month       string          `json:"month"`
	Expenses    decimal.Decimal `json:"expenses"`
	Payments    decimal.Decimal `json:"payments"`
	Income      decimal.Decimal `json:"income"`
	AgencyShare decimal.Decimal `json:"agencyShare"`
}

type AnnualReport struct {
	Year string `json:"year"`
	Summary
	EstimatedAnnualCost decimal.Decimal `json:"estimatedAnnualCost"`
	MonthlyBreakdown    []MonthEntry    `json:"monthlyBreakdown"`
}

type StatusTotals struct {
	Pending      decimal.Decimal `json:"pending"`
	Paid         decimal.Decimal `json:"paid"`
	PendingCount int             `json:"pendingCount"`
	PaidCount    int             `json:"paidCount"`
}

type RecentExpense struct {
	ID          int64              `json:"id"`
	Description string             `json:"description"`
	Amount      decimal.Decimal    `json:"amount"`
	Category    string             `json:"category"`
	Status      core.ExpenseStatus `json:"status"`
	Date        core.Date          `json:"date"`
	User        string             `json:"user"`
	Talent      string             `json:"talent,omitempty"`
}

type RecentIncome struct {
	ID              int64           `json:"id"`
	Talent          string          `json:"talent"`
	Platform        string          `json:"platform"`
	AccountingMonth core.Date       `json:"accountingMonth"`
	AmountUSD       decimal.Decimal `json:"amountUSD"`
	Description     string          `json:"description"`
}

type RecentPayment struct {
	ID          int64            `json:"id"`
	Type        core.PaymentType `json:"type"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	Date        core.Date        `json:"date"`
	User        string           `json:"user"`
}

type AllTimeReport struct {
	Summary
	ExpensesByStatus     StatusTotals     `json:"expensesByStatus"`
	TopCategories        []CategoryAmount `json:"topCategories"`
	TopUsers             []UserAmount     `json:"topUsers"`
	TopPlatforms         []PlatformAmount `json:"topPlatforms"`
	TopTalents           []TalentAmount   `json:"topTalents"`
	TotalMonthlySalaries decimal.Decimal  `json:"totalMonthlySalaries"`
	SalaryByUserType     []TypeAmount     `json:"salaryByUserType"`
	TalentSalaries       []TalentAmount   `json:"talentSalaries"`
	RecentExpenses       []RecentExpense  `json:"recentExpenses"`
	RecentIncomes        []RecentIncome   `json:"recentIncomes"`
	RecentPayments       []RecentPayment  `json:"recentPayments"`
	SpendTrend           []YearAmount     `json:"spendTrend"`
	IncomeTrend          []YearAmount     `json:"incomeTrend"`
	AgencyShareByTalent  []TalentAmount   `json:"agencyShareByTalent,omitempty"`
}
