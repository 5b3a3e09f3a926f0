package reconcile

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jgoulah/usageledger/internal/category"
	"github.com/jgoulah/usageledger/internal/proration"
	"github.com/jgoulah/usageledger/pkg/models"
)

// monthlyUsage computes the monthly totals of an entry. Billing categories
// are prorated; other records land in their month, the month of their date,
// or January when they carry neither. Drafts skip invalid bills instead of
// failing.
func (r *Reconciler) monthlyUsage(cat category.Category, sub Submission) (models.Monthly, error) {
	if cat.Billing {
		periods := make([]models.BillingPeriod, 0, len(sub.Records))
		for _, rec := range sub.Records {
			p, err := proration.RecordPeriod(rec, r.maxBillingDays)
			if err != nil {
				if sub.IsDraft {
					r.logger.Debug("skipping invalid bill in draft", zap.String("record_id", rec.ID), zap.Error(err))
					continue
				}
				return nil, err
			}
			periods = append(periods, p)
		}
		return positive(proration.MonthlyTotals(periods, sub.Year)), nil
	}

	monthly := models.Monthly{}
	for _, rec := range sub.Records {
		q := rec.Quantity
		if q == 0 {
			q = rec.Hours
		}
		switch {
		case rec.Month >= 1 && rec.Month <= 12:
			monthly[rec.Month] += q
		case rec.Month != 0:
			return nil, models.Invalid("month", "record %s: month %d out of range", rec.ID, rec.Month)
		case rec.Date != "":
			t, err := proration.ParseDate(rec.Date)
			if err != nil {
				return nil, fmt.Errorf("record %s: %w", rec.ID, models.Invalid("date", "%v", err))
			}
			if t.Year() != sub.Year {
				continue
			}
			monthly[int(t.Month())] += q
		default:
			monthly[1] += q
		}
	}
	for m, v := range monthly {
		monthly[m] = models.Round2(v)
	}
	return positive(monthly), nil
}

func positive(m models.Monthly) models.Monthly {
	for month, v := range m {
		if v <= 0 {
			delete(m, month)
		}
	}
	return m
}
