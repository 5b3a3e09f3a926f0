package evidence

import (
	"github.com/jgoulah/usageledger/internal/category"
	"github.com/jgoulah/usageledger/pkg/models"
)

// Buckets are the named evidence columns of one record. A file appears in
// at most one bucket.
type Buckets struct {
	Usage []models.EvidenceFile // usage or quantity evidence
	Spec  []models.EvidenceFile // evidence of the record's Spec
}

// RecordEvidence is one record's buckets
type RecordEvidence struct {
	RecordID string
	Index    int
	Buckets
}

// EntryEvidence is every record's buckets plus the entry-level shared files
type EntryEvidence struct {
	Records []RecordEvidence
	Shared  []models.EvidenceFile
}

// RecordBuckets splits the evidence of record into its named buckets
func (r *Resolver) RecordBuckets(pageKey string, record models.DataRecord, recordIndex int, allFiles []models.EvidenceFile) Buckets {
	usage := dedupeByName(r.Resolve(pageKey, record, recordIndex, allFiles))

	var b Buckets
	b.Usage = usage
	if !category.Get(pageKey).HasSpecs || record.SpecID == "" {
		return b
	}

	ids := make(map[string]struct{}, len(usage))
	names := make(map[string]struct{}, len(usage))
	for _, f := range usage {
		ids[f.ID] = struct{}{}
		names[f.FileName] = struct{}{}
	}

	spec := filter(allFiles, func(f models.EvidenceFile) bool {
		if f.FileType != models.FileTypeOther || f.RecordID != record.SpecID {
			return false
		}
		if _, dup := ids[f.ID]; dup {
			return false
		}
		_, dup := names[f.FileName]
		return !dup
	})
	b.Spec = dedupeByName(spec)
	return b
}

// EntryEvidence resolves every record of an entry and its shared files
func (r *Resolver) EntryEvidence(pageKey string, records []models.DataRecord, allFiles []models.EvidenceFile) EntryEvidence {
	out := EntryEvidence{
		Records: make([]RecordEvidence, 0, len(records)),
		Shared:  r.SharedFiles(pageKey, allFiles),
	}
	for i, rec := range records {
		out.Records = append(out.Records, RecordEvidence{
			RecordID: rec.ID,
			Index:    i,
			Buckets:  r.RecordBuckets(pageKey, rec, i, allFiles),
		})
	}
	return out
}

func dedupeByName(files []models.EvidenceFile) []models.EvidenceFile {
	if len(files) == 0 {
		return files
	}
	seen := make(map[string]struct{}, len(files))
	out := make([]models.EvidenceFile, 0, len(files))
	for _, f := range files {
		key := f.FileName
		if key == "" {
			key = "id:" + f.ID
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}
