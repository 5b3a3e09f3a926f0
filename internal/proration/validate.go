package proration

import (
	"fmt"

	"github.com/jgoulah/usageledger/pkg/models"
)

// DefaultMaxBillingDays caps the length of one billing period
const DefaultMaxBillingDays = 70

// ValidateBill checks a bill's raw fields and returns its parsed period
func ValidateBill(start, end string, units float64, maxDays int) (models.BillingPeriod, error) {
	if maxDays <= 0 {
		maxDays = DefaultMaxBillingDays
	}
	if start == "" || end == "" {
		return models.BillingPeriod{}, models.Invalid("billing_period", "start and end dates are required")
	}

	s, err := ParseDate(start)
	if err != nil {
		return models.BillingPeriod{}, models.Invalid("billing_start", "%v", err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return models.BillingPeriod{}, models.Invalid("billing_end", "%v", err)
	}
	if e.Before(s) {
		return models.BillingPeriod{}, models.Invalid("billing_end", "end date %s is before start date %s", end, start)
	}
	if days := BillingDays(s, e); days > maxDays {
		return models.BillingPeriod{}, models.Invalid("billing_period", "%d days exceeds the %d day limit", days, maxDays)
	}
	if units <= 0 {
		return models.BillingPeriod{}, models.Invalid("billing_units", "units must be greater than zero")
	}

	return models.BillingPeriod{Start: s, End: e, Units: units}, nil
}

// RecordPeriod validates the billing fields of r
func RecordPeriod(r models.DataRecord, maxDays int) (models.BillingPeriod, error) {
	p, err := ValidateBill(r.BillingStart, r.BillingEnd, r.BillingUnits, maxDays)
	if err != nil {
		return p, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return p, nil
}
