package proration

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/usageledger/pkg/models"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-01-15", want: date(2024, 1, 15)},
		{in: "113/01/15", want: date(2024, 1, 15)},
		{in: "113/1/5", want: date(2024, 1, 5)},
		{in: " 112/12/31 ", want: date(2023, 12, 31)},
		{in: "113/02/30", wantErr: true},
		{in: "2024/01/15", wantErr: true},
		{in: "", wantErr: true},
		{in: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestFormatROC(t *testing.T) {
	assert.Equal(t, "113/1/15", FormatROC(date(2024, 1, 15)))
}

func TestBillingDaysAndDaysInMonth(t *testing.T) {
	assert.Equal(t, 27, BillingDays(date(2024, 1, 15), date(2024, 2, 10)))
	assert.Equal(t, 1, BillingDays(date(2024, 1, 15), date(2024, 1, 15)))
	assert.Equal(t, 29, DaysInMonth(2024, time.February))
	assert.Equal(t, 28, DaysInMonth(2023, time.February))
	assert.Equal(t, 31, DaysInMonth(2024, time.December))
}

func TestValidateBill(t *testing.T) {
	p, err := ValidateBill("113/01/15", "2024-02-10", 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.Units)
	assert.True(t, date(2024, 1, 15).Equal(p.Start))

	tests := []struct {
		name       string
		start, end string
		units      float64
		field      string
	}{
		{"missing end", "2024-01-01", "", 10, "billing_period"},
		{"malformed start", "2024-13-01", "2024-02-01", 10, "billing_start"},
		{"end before start", "2024-02-01", "2024-01-01", 10, "billing_end"},
		{"too long", "2024-01-01", "2024-03-15", 10, "billing_period"},
		{"no units", "2024-01-01", "2024-01-31", 0, "billing_units"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateBill(tt.start, tt.end, tt.units, DefaultMaxBillingDays)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrValidation))

			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRecordPeriod_WrapsRecordID(t *testing.T) {
	_, err := RecordPeriod(models.DataRecord{ID: "bill-1", BillingStart: "2024-01-01"}, 70)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bill-1")
	assert.ErrorIs(t, err, models.ErrValidation)
}
