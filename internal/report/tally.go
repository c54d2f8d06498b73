package report

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type entry struct {
	label  string
	amount decimal.Decimal
}

// tally folds amounts under labels and remembers the order labels first
// appeared in, which breaks ties when sorting.
type tally struct {
	pos     map[string]int
	entries []entry
}

func newTally() *tally {
	return &tally{pos: make(map[string]int)}
}

func (t *tally) add(label string, amount decimal.Decimal) {
	if strings.TrimSpace(label) == "" {
		label = Unknown
	}
	i, ok := t.pos[label]
	if !ok {
		t.pos[label] = len(t.entries)
		t.entries = append(t.entries, entry{label: label, amount: amount})
		return
	}
	t.entries[i].amount = t.entries[i].amount.Add(amount)
}

// descending returns entries by amount, largest first, ties in first-seen order.
func (t *tally) descending() []entry {
	out := append([]entry(nil), t.entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].amount.GreaterThan(out[j].amount)
	})
	return out
}

// ascendingLabel returns entries ordered by label, for time series keys.
func (t *tally) ascendingLabel() []entry {
	out := append([]entry(nil), t.entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].label < out[j].label
	})
	return out
}

func categories(entries []entry) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(entries))
	for _, e := range entries {
		out = append(out, CategoryAmount{Category: e.label, Amount: e.amount})
	}
	return out
}

func users(entries []entry) []UserAmount {
	out := make([]UserAmount, 0, len(entries))
	for _, e := range entries {
		out = append(out, UserAmount{User: e.label, Amount: e.amount})
	}
	return out
}

func platforms(entries []entry) []PlatformAmount {
	out := make([]PlatformAmount, 0, len(entries))
	for _, e := range entries {
		out = append(out, PlatformAmount{Platform: e.label, Amount: e.amount})
	}
	return out
}

func talents(entries []entry) []TalentAmount {
	out := make([]TalentAmount, 0, len(entries))
	for _, e := range entries {
		out = append(out, TalentAmount{Talent: e.label, Amount: e.amount})
	}
	return out
}

func types(entries []entry) []TypeAmount {
	out := make([]TypeAmount, 0, len(entries))
	for _, e := range entries {
		out = append(out, TypeAmount{Type: e.label, Amount: e.amount})
	}
	return out
}

func years(entries []entry) []YearAmount {
	out := make([]YearAmount, 0, len(entries))
	for _, e := range entries {
		out = append(out, YearAmount{Year: e.label, Amount: e.amount})
	}
	return out
}
