// Package proration spreads metered billing periods over calendar months.
package proration

import (
	"time"

	"github.com/jgoulah/usageledger/pkg/models"
)

// window is the part of a billing period inside one reporting year
type window struct {
	start, end time.Time
	days       int
	units      float64
}

func clip(period models.BillingPeriod, targetYear int) (window, bool) {
	if period.Start.IsZero() || period.End.IsZero() || period.Units == 0 {
		return window{}, false
	}

	start, end := dateOnly(period.Start), dateOnly(period.End)
	if end.Before(start) {
		return window{}, false
	}
	billingDays := daysBetween(start, end) + 1

	yearStart := time.Date(targetYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(targetYear, time.December, 31, 0, 0, 0, 0, time.UTC)

	w := window{start: start, end: end}
	if yearStart.After(w.start) {
		w.start = yearStart
	}
	if yearEnd.Before(w.end) {
		w.end = yearEnd
	}
	if w.start.After(w.end) {
		return window{}, false
	}

	w.days = daysBetween(w.start, w.end) + 1
	w.units = period.Units * float64(w.days) / float64(billingDays)
	return w, true
}

// Distribute splits period.Units over the calendar months of targetYear that
// the period covers. Only the in-year share of the period contributes:
// units are clipped by effectiveDays/billingDays before being split by day
// count. Values are rounded to two decimals.
//
// A period outside targetYear, with no units, or with missing dates yields an
// empty map. Callers rely on the difference between an empty map and zeros.
func Distribute(period models.BillingPeriod, targetYear int) models.Monthly {
	result := models.Monthly{}
	w, ok := clip(period, targetYear)
	if !ok {
		return result
	}

	// Walk month by month; a 70-day cap still allows three touched months.
	for cursor := w.start; !cursor.After(w.end); {
		monthEnd := lastOfMonth(cursor)
		if monthEnd.After(w.end) {
			monthEnd = w.end
		}
		days := daysBetween(cursor, monthEnd) + 1
		result[int(cursor.Month())] = models.Round2(w.units * float64(days) / float64(w.days))
		cursor = monthEnd.AddDate(0, 0, 1)
	}
	return result
}

// EffectiveUnits returns the unrounded share of period.Units inside targetYear
func EffectiveUnits(period models.BillingPeriod, targetYear int) float64 {
	w, ok := clip(period, targetYear)
	if !ok {
		return 0
	}
	return w.units
}

// MonthlyTotals sums the distribution of every period into one monthly map
func MonthlyTotals(periods []models.BillingPeriod, targetYear int) models.Monthly {
	totals := models.Monthly{}
	for _, p := range periods {
		for month, v := range Distribute(p, targetYear) {
			totals[month] += v
		}
	}
	for month, v := range totals {
		totals[month] = models.Round2(v)
	}
	return totals
}
