package reconcile

import (
	"context"
	"encoding/json"

	"github.com/jgoulah/usageledger/pkg/models"
)

// UploadMeta describes how an uploaded file is keyed to records.
// RecordKey is a single id or a comma-joined id list; that encoding is a
// persisted contract.
type UploadMeta struct {
	PageKey     string
	Year        int
	EntryID     string
	FileType    string
	RecordKey   string
	Month       int
	RecordIndex *int
}

// FileRepository stores evidence files
type FileRepository interface {
	Upload(ctx context.Context, file models.PendingFile, meta UploadMeta) (models.EvidenceFile, error)
	Delete(ctx context.Context, fileID string) error
	List(ctx context.Context, entryID string) ([]models.EvidenceFile, error)
}

// EntryInput is the persisted form of one entry
type EntryInput struct {
	PageKey string
	Year    int
	Unit    string
	Monthly models.Monthly
	Payload json.RawMessage
	Status  string
}

// EntryRepository stores entries. Get returns nil, nil when no entry exists.
type EntryRepository interface {
	Upsert(ctx context.Context, entryID string, in EntryInput) (string, error)
	Get(ctx context.Context, pageKey string, year int) (*models.Entry, error)
	Delete(ctx context.Context, entryID string) error
}

// Notifier is told about entries that were submitted for review
type Notifier interface {
	EntrySubmitted(ctx context.Context, entry models.Entry) error
}
