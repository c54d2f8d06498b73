// Package period resolves rolling budget windows anchored to a contract
// anniversary instead of the calendar year.
package period

import (
	"time"

	"talentdesk/internal/core"
)

// Period is the half-open window [Start, End).
type Period struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

// Contains reports whether t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start.Time) && t.Before(p.End.Time)
}

// Resolve returns the anniversary-to-anniversary window containing now.
//
// The candidate start uses now's year with the contract's month and day; if it
// lies after now the previous year is used. Contract days that do not exist in
// the target month (Feb 29, Apr 31, ...) land on the last day of that month.
func Resolve(contractDate, now time.Time) Period {
	today := core.DateOf(now)
	month, day := contractDate.Month(), contractDate.Day()

	year := today.Year()
	start := Anniversary(year, month, day)
	if start.After(today.Time) {
		year--
		start = Anniversary(year, month, day)
	}

	return Period{
		Start: start,
		End:   Anniversary(year+1, month, day),
	}
}

// Anniversary builds the date for year/month/day, clamping day to the last day
// of the month.
func Anniversary(year int, month time.Month, day int) core.Date {
	if last := daysIn(year, month); day > last {
		day = last
	}
	return core.NewDate(year, int(month), day)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
