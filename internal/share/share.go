// Package share computes the agency's cut of talent platform income.
//
// The rate tier depends on a single calendar month of a single talent's
// income, so wider windows are always built as
// MonthlyIncomeTotals -> MonthlyAgencyShares -> SumShares and never by
// applying AgencyShare to a multi-month total.
package share

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"talentdesk/internal/core"
)

var (
	// Threshold separates the two tiers; the high-income rate applies strictly above it.
	Threshold = decimal.NewFromInt(1000)
	// HighIncomeRate applies to months with income above Threshold.
	HighIncomeRate = decimal.RequireFromString("0.20")
	// BaseRate applies to months with income at or below Threshold.
	BaseRate = decimal.RequireFromString("0.45")
)

// Scope selects how monthly income is pooled before the tier is picked.
type Scope string

const (
	// PerTalent tiers each talent's month separately.
	PerTalent Scope = "talent"
	// Global pools every talent's income of a month into one total.
	Global Scope = "global"
)

// ParseScope accepts "talent" or "global"; empty means PerTalent.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", PerTalent:
		return PerTalent, nil
	case Global:
		return Global, nil
	default:
		return "", fmt.Errorf("unknown agency share scope: %s", s)
	}
}

// AgencyShare returns the agency's cut of one talent's income for one month.
func AgencyShare(monthlyIncomeUSD decimal.Decimal) decimal.Decimal {
	return monthlyIncomeUSD.Mul(Rate(monthlyIncomeUSD))
}

// Rate returns the tier rate for a monthly income.
func Rate(monthlyIncomeUSD decimal.Decimal) decimal.Decimal {
	if monthlyIncomeUSD.GreaterThan(Threshold) {
		return HighIncomeRate
	}
	return BaseRate
}

// MonthlyTotal is the income of one month, for one talent or pooled.
type MonthlyTotal struct {
	Month    string
	TalentID int64 // zero when pooled
	Total    decimal.Decimal
}

// MonthlyShare is the agency share of one MonthlyTotal.
type MonthlyShare struct {
	Month    string
	TalentID int64
	Income   decimal.Decimal
	Share    decimal.Decimal
}

type totalKey struct {
	month    string
	talentID int64
}

// MonthlyIncomeTotals sums ActualValueUSD per accounting month, and per talent
// when scope is PerTalent. Output is ordered by month, then talent id.
func MonthlyIncomeTotals(incomes []core.Income, scope Scope) []MonthlyTotal {
	sums := make(map[totalKey]decimal.Decimal)
	var keys []totalKey
	for _, in := range incomes {
		k := totalKey{month: in.AccountingMonth.MonthKey()}
		if scope != Global {
			k.talentID = in.TalentID
		}
		cur, ok := sums[k]
		if !ok {
			keys = append(keys, k)
		}
		sums[k] = cur.Add(in.ActualValueUSD)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].month != keys[j].month {
			return keys[i].month < keys[j].month
		}
		return keys[i].talentID < keys[j].talentID
	})

	out := make([]MonthlyTotal, 0, len(keys))
	for _, k := range keys {
		out = append(out, MonthlyTotal{Month: k.month, TalentID: k.talentID, Total: sums[k]})
	}
	return out
}

// MonthlyAgencyShares applies AgencyShare to each monthly total.
func MonthlyAgencyShares(totals []MonthlyTotal) []MonthlyShare {
	out := make([]MonthlyShare, 0, len(totals))
	for _, t := range totals {
		out = append(out, MonthlyShare{
			Month:    t.Month,
			TalentID: t.TalentID,
			Income:   t.Total,
			Share:    AgencyShare(t.Total),
		})
	}
	return out
}

// SumShares adds up already tiered monthly shares.
func SumShares(shares []MonthlyShare) decimal.Decimal {
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(s.Share)
	}
	return total
}

// Compute runs the full pipeline over incomes.
func Compute(incomes []core.Income, scope Scope) decimal.Decimal {
	return SumShares(MonthlyAgencyShares(MonthlyIncomeTotals(incomes, scope)))
}

// ByMonth returns the summed share of each month.
func ByMonth(shares []MonthlyShare) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, s := range shares {
		out[s.Month] = out[s.Month].Add(s.Share)
	}
	return out
}

// ByTalent returns the summed share of each talent. Meaningful only for
// PerTalent shares.
func ByTalent(shares []MonthlyShare) map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal)
	for _, s := range shares {
		out[s.TalentID] = out[s.TalentID].Add(s.Share)
	}
	return out
}
