package models

import "strings"

// DataRecord is one user-entered usage row. EvidenceFiles and PendingFiles
// are client-only and never part of the persisted payload.
type DataRecord struct {
	ID           string  `json:"id" yaml:"id"`
	GroupID      string  `json:"groupId,omitempty" yaml:"group_id,omitempty"`
	Date         string  `json:"date,omitempty" yaml:"date,omitempty"` // YYYY-MM-DD
	Month        int     `json:"month,omitempty" yaml:"month,omitempty"`
	Quantity     float64 `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Hours        float64 `json:"hours,omitempty" yaml:"hours,omitempty"`
	SpecID       string  `json:"specId,omitempty" yaml:"spec_id,omitempty"`
	MeterID      string  `json:"meterId,omitempty" yaml:"meter_id,omitempty"`
	BillingStart string  `json:"billingStart,omitempty" yaml:"billing_start,omitempty"`
	BillingEnd   string  `json:"billingEnd,omitempty" yaml:"billing_end,omitempty"`
	BillingUnits float64 `json:"billingUnits,omitempty" yaml:"billing_units,omitempty"`

	EvidenceFiles []EvidenceFile `json:"-" yaml:"-"`
	PendingFiles  []PendingFile  `json:"-" yaml:"pending_files,omitempty"`
}

// HasData reports whether the record carries any usable signal: a date or
// month, or a positive quantity or hour count.
func (r DataRecord) HasData() bool {
	return strings.TrimSpace(r.Date) != "" || r.Month > 0 || r.Quantity > 0 || r.Hours > 0
}

// IsBill reports whether the record carries billing period fields
func (r DataRecord) IsBill() bool {
	return r.BillingStart != "" || r.BillingEnd != "" || r.BillingUnits != 0
}

// Reconciled reports whether the record has no files waiting for upload
func (r DataRecord) Reconciled() bool {
	return len(r.PendingFiles) == 0
}

// Clean returns a copy without client-only fields
func (r DataRecord) Clean() DataRecord {
	r.EvidenceFiles = nil
	r.PendingFiles = nil
	return r
}

// Spec is a reusable item definition referenced by records via SpecID
type Spec struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	PendingFiles []PendingFile `json:"-" yaml:"pending_files,omitempty"`
}

// Clean returns a copy without client-only fields
func (s Spec) Clean() Spec {
	s.PendingFiles = nil
	return s
}
