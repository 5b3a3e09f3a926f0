package models

import (
	"strings"
	"time"
)

// Evidence file types
const (
	FileTypeUsageEvidence     = "usage_evidence"
	FileTypeOther             = "other"
	FileTypeMSDS              = "msds"
	FileTypeHeatValueEvidence = "heat_value_evidence"
)

// RecordKeySeparator joins group member ids in EvidenceFile.RecordID
const RecordKeySeparator = ","

// EvidenceFile is a server-confirmed uploaded document
type EvidenceFile struct {
	ID          string    `json:"id"`
	EntryID     string    `json:"entry_id"`
	Path        string    `json:"file_path"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	RecordID    string    `json:"record_id,omitempty"`    // single id or comma-joined ids
	Month       int       `json:"month,omitempty"`        // 0 when unset
	RecordIndex *int      `json:"record_index,omitempty"` // nil when unset
	MimeType    string    `json:"mime_type"`
	FileSize    int64     `json:"file_size"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecordIDs splits RecordID into its member ids
func (f EvidenceFile) RecordIDs() []string {
	if f.RecordID == "" {
		return nil
	}
	return strings.Split(f.RecordID, RecordKeySeparator)
}

// CoversRecord reports whether id is one of the file's record ids
func (f EvidenceFile) CoversRecord(id string) bool {
	if id == "" {
		return false
	}
	for _, rid := range f.RecordIDs() {
		if rid == id {
			return true
		}
	}
	return false
}

// PendingFile is a client-side blob not yet uploaded
type PendingFile struct {
	Name     string `json:"name" yaml:"name"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	MimeType string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	Preview  string `json:"-" yaml:"-"`
	Data     []byte `json:"-" yaml:"-"`
}

// BillingPeriod is a metered interval with its total units
type BillingPeriod struct {
	Start time.Time
	End   time.Time
	Units float64
}
