package models

import (
	"encoding/json"
	"math"
	"time"
)

// Entry statuses
const (
	StatusSaved     = "saved"
	StatusSubmitted = "submitted"
)

// Entry is one category's yearly usage report
type Entry struct {
	ID        string          `json:"id"`
	PageKey   string          `json:"page_key"`
	Year      int             `json:"period_year"`
	Unit      string          `json:"unit"`
	Monthly   Monthly         `json:"monthly"`
	Amount    float64         `json:"amount"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Status    string          `json:"status"`
	Published bool            `json:"published"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Monthly maps a calendar month (1-12) to usage
type Monthly map[int]float64

// Total returns the sum of all months rounded to two decimals
func (m Monthly) Total() float64 {
	var sum float64
	for _, v := range m {
		sum += v
	}
	return Round2(sum)
}

// Round2 rounds v to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
