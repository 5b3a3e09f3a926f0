package proration

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// rocOffset converts a Republic of China calendar year to a Gregorian year
const rocOffset = 1911

const isoLayout = "2006-01-02"

var rocPattern = regexp.MustCompile(`^(\d{2,3})/(\d{1,2})/(\d{1,2})$`)

// ParseDate parses an ISO date (2024-01-15) or an ROC date (113/01/15) into
// a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if t, err := time.Parse(isoLayout, s); err == nil {
		return t.UTC(), nil
	}

	m := rocPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s (use YYYY-MM-DD or ROC yyy/m/d)", s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	t := time.Date(year+rocOffset, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 113/02/30 into March; reject instead
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid calendar date: %s", s)
	}
	return t, nil
}

// FormatROC renders t as an ROC date string (113/1/15)
func FormatROC(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Year()-rocOffset, int(t.Month()), t.Day())
}

// BillingDays returns the inclusive day count from start to end
func BillingDays(start, end time.Time) int {
	return daysBetween(dateOnly(start), dateOnly(end)) + 1
}

// DaysInMonth returns the number of days in month of year
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

func lastOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), DaysInMonth(t.Year(), t.Month()), 0, 0, 0, 0, time.UTC)
}
