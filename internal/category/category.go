// Package category describes each reporting page: its unit and how evidence
// files are tied to its records.
package category

import (
	"sort"

	"github.com/jgoulah/usageledger/pkg/models"
)

// Kind selects how a category's evidence files are keyed to records
type Kind string

const (
	KindGroup  Kind = "group"  // record_id is the group id or the member id list
	KindIndex  Kind = "index"  // record_index is the record's position
	KindSingle Kind = "single" // record_id is the record id
	KindMulti  Kind = "multi"  // record_id is a comma-joined id list
	KindMonth  Kind = "month"  // month matches the record month
	KindNone   Kind = "none"   // no per-record evidence
)

// Category is a page key and its evidence rules
type Category struct {
	Key          string
	Name         string
	Unit         string
	Kind         Kind
	EvidenceType string   // file_type of per-record evidence
	SoloType     string   // file_type for records outside any group, when it differs
	SharedTypes  []string // file types exposed once per entry when record_id is empty
	SingleSlot   bool     // one evidence slot: fall back to all entry files
	Billing      bool     // records are billing periods prorated into months
	HasSpecs     bool     // records reference Specs with their own evidence
}

var registry = map[string]Category{
	"diesel":               {Key: "diesel", Name: "Diesel (mobile)", Unit: "L", Kind: KindGroup, EvidenceType: models.FileTypeUsageEvidence, SingleSlot: true},
	"gasoline":             {Key: "gasoline", Name: "Gasoline", Unit: "L", Kind: KindGroup, EvidenceType: models.FileTypeUsageEvidence, SingleSlot: true},
	"diesel_generator":     {Key: "diesel_generator", Name: "Diesel (stationary)", Unit: "L", Kind: KindGroup, EvidenceType: models.FileTypeUsageEvidence, SoloType: models.FileTypeOther, SingleSlot: true},
	"electricity":          {Key: "electricity", Name: "Purchased electricity", Unit: "kWh", Kind: KindIndex, EvidenceType: models.FileTypeUsageEvidence, Billing: true},
	"natural_gas":          {Key: "natural_gas", Name: "Natural gas", Unit: "m³", Kind: KindIndex, EvidenceType: models.FileTypeUsageEvidence, SharedTypes: []string{models.FileTypeHeatValueEvidence, models.FileTypeOther}, Billing: true},
	"acetylene":            {Key: "acetylene", Name: "Acetylene", Unit: "kg", Kind: KindMulti, EvidenceType: models.FileTypeOther, HasSpecs: true},
	"wd40":                 {Key: "wd40", Name: "WD-40", Unit: "ml", Kind: KindMulti, EvidenceType: models.FileTypeOther, HasSpecs: true},
	"lpg":                  {Key: "lpg", Name: "LPG", Unit: "kg", Kind: KindMulti, EvidenceType: models.FileTypeOther, HasSpecs: true},
	"gas_cylinder":         {Key: "gas_cylinder", Name: "Gas cylinder", Unit: "kg", Kind: KindMulti, EvidenceType: models.FileTypeOther, HasSpecs: true},
	"welding_rod":          {Key: "welding_rod", Name: "Welding rod", Unit: "kg", Kind: KindMulti, EvidenceType: models.FileTypeOther, SharedTypes: []string{models.FileTypeMSDS}, HasSpecs: true},
	"refrigerant":          {Key: "refrigerant", Name: "Refrigerant", Unit: "kg", Kind: KindSingle, EvidenceType: models.FileTypeOther},
	"fire_extinguisher":    {Key: "fire_extinguisher", Name: "Fire extinguisher", Unit: "kg", Kind: KindSingle, EvidenceType: models.FileTypeOther, SharedTypes: []string{models.FileTypeOther}, HasSpecs: true},
	"urea":                 {Key: "urea", Name: "Urea", Unit: "L", Kind: KindSingle, EvidenceType: models.FileTypeUsageEvidence, SharedTypes: []string{models.FileTypeMSDS}},
	"septic_tank":          {Key: "septic_tank", Name: "Septic tank", Unit: "hr", Kind: KindMonth, EvidenceType: models.FileTypeUsageEvidence},
	"other_energy_sources": {Key: "other_energy_sources", Name: "Other energy sources", Unit: "", Kind: KindMonth, EvidenceType: models.FileTypeUsageEvidence},
	"employee_commute":     {Key: "employee_commute", Name: "Employee commute", Unit: "km", Kind: KindNone},
}

// Lookup returns the category for key
func Lookup(key string) (Category, bool) {
	c, ok := registry[key]
	return c, ok
}

// Get returns the category for key, or a month-keyed single-slot default for
// unknown keys.
func Get(key string) Category {
	if c, ok := registry[key]; ok {
		return c
	}
	return Category{Key: key, Name: key, Kind: KindMonth, EvidenceType: models.FileTypeUsageEvidence, SingleSlot: true}
}

// Keys returns all registered page keys in sorted order
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsShared reports whether fileType is one of the category's shared types
func (c Category) IsShared(fileType string) bool {
	for _, t := range c.SharedTypes {
		if t == fileType {
			return true
		}
	}
	return false
}
