package pricing

import (
	"math"
	"time"
)

// SelectCurrent picks the most recently effective list on date: the
// greatest effective_from not after date, ties broken by higher version
// then higher id.
func SelectCurrent(lists []PriceList, date time.Time) (PriceList, bool) {
	day := truncateDay(date)
	var best PriceList
	found := false
	for _, pl := range lists {
		if truncateDay(pl.EffectiveFrom).After(day) {
			continue
		}
		if !found || newer(pl, best) {
			best = pl
			found = true
		}
	}
	return best, found
}

func newer(a, b PriceList) bool {
	if !a.EffectiveFrom.Equal(b.EffectiveFrom) {
		return a.EffectiveFrom.After(b.EffectiveFrom)
	}
	if a.Version != b.Version {
		return a.Version > b.Version
	}
	return a.ID > b.ID
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ApplyDiscount returns the price after a discount, never below zero.
func ApplyDiscount(base float64, kind DiscountKind, value float64) float64 {
	var net float64
	switch kind {
	case DiscountFixed:
		net = base - value
	case DiscountPercent:
		net = base * (1 - value/100)
	default:
		net = base
	}
	return Round2(math.Max(0, net))
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
