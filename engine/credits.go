package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CreditAllocation is a validated set of complimentary nights.
type CreditAllocation struct {
	Dates     []time.Time
	Available int
	Remaining int
}

func (a CreditAllocation) Nights() int { return len(a.Dates) }

func (a CreditAllocation) Covers(d time.Time) bool {
	d = DateOf(d)
	for _, x := range a.Dates {
		if x.Equal(d) {
			return true
		}
	}
	return false
}

// DateStrings renders the dates for storage.
func (a CreditAllocation) DateStrings() []string {
	out := make([]string, len(a.Dates))
	for i, d := range a.Dates {
		out[i] = FormatDate(d)
	}
	return out
}

// AllocateCredits validates that 1 ≤ distinct selected dates ≤ available and
// that every date is a night of [in, out).
func AllocateCredits(available int, in, out time.Time, selected []time.Time) (CreditAllocation, error) {
	if err := ValidateStay(in, out); err != nil {
		return CreditAllocation{}, err
	}
	if available < 0 {
		available = 0
	}
	seen := map[time.Time]bool{}
	dates := make([]time.Time, 0, len(selected))
	for _, s := range selected {
		d := DateOf(s)
		if seen[d] {
			continue
		}
		seen[d] = true
		if d.Before(DateOf(in)) || !d.Before(DateOf(out)) {
			return CreditAllocation{}, invalid("complimentary_dates", "%s is outside the stay %s to %s", FormatDate(d), FormatDate(in), FormatDate(out))
		}
		dates = append(dates, d)
	}
	if len(dates) == 0 {
		return CreditAllocation{}, invalid("complimentary_dates", "at least one date is required")
	}
	if len(dates) > available {
		return CreditAllocation{}, &InsufficientCreditsError{Selected: len(dates), Available: available}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return CreditAllocation{Dates: dates, Available: available, Remaining: available - len(dates)}, nil
}

// ApplyCredits returns a copy of nightly with the allocated nights priced at zero.
func ApplyCredits(nightly []NightlyPrice, alloc CreditAllocation) []NightlyPrice {
	out := make([]NightlyPrice, len(nightly))
	copy(out, nightly)
	for i := range out {
		if alloc.Covers(out[i].Date) {
			out[i].Price = decimal.Zero
			out[i].Complimentary = true
		}
	}
	return out
}
