package evidence

import "github.com/jgoulah/usageledger/pkg/models"

// Strategy selects the files that belong to one record
type Strategy interface {
	Match(record models.DataRecord, recordIndex int, files []models.EvidenceFile) []models.EvidenceFile
}

// StrategyFunc adapts a plain function to Strategy
type StrategyFunc func(record models.DataRecord, recordIndex int, files []models.EvidenceFile) []models.EvidenceFile

// Match calls f
func (f StrategyFunc) Match(record models.DataRecord, recordIndex int, files []models.EvidenceFile) []models.EvidenceFile {
	return f(record, recordIndex, files)
}

func filter(files []models.EvidenceFile, keep func(models.EvidenceFile) bool) []models.EvidenceFile {
	var out []models.EvidenceFile
	for _, f := range files {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// ByGroup matches files keyed by the record's group id, or by a member id
// list that includes the record.
func ByGroup(fileType string) Strategy {
	return StrategyFunc(func(r models.DataRecord, _ int, files []models.EvidenceFile) []models.EvidenceFile {
		return filter(files, func(f models.EvidenceFile) bool {
			if f.FileType != fileType {
				return false
			}
			return (r.GroupID != "" && f.RecordID == r.GroupID) || f.CoversRecord(r.ID)
		})
	})
}

// ByIndex matches files by the record's position in the entry
func ByIndex(fileType string) Strategy {
	return StrategyFunc(func(_ models.DataRecord, idx int, files []models.EvidenceFile) []models.EvidenceFile {
		return filter(files, func(f models.EvidenceFile) bool {
			return f.FileType == fileType && f.RecordIndex != nil && *f.RecordIndex == idx
		})
	})
}

// BySingleID matches files whose record_id is exactly the record id
func BySingleID(fileType string) Strategy {
	return StrategyFunc(func(r models.DataRecord, _ int, files []models.EvidenceFile) []models.EvidenceFile {
		if r.ID == "" {
			return nil
		}
		return filter(files, func(f models.EvidenceFile) bool {
			return f.FileType == fileType && f.RecordID == r.ID
		})
	})
}

// ByMultiID matches files whose comma-joined record_id lists the record
func ByMultiID(fileType string) Strategy {
	return StrategyFunc(func(r models.DataRecord, _ int, files []models.EvidenceFile) []models.EvidenceFile {
		return filter(files, func(f models.EvidenceFile) bool {
			return f.FileType == fileType && f.CoversRecord(r.ID)
		})
	})
}

// ByMonth matches files tagged with the record's month
func ByMonth(fileType string) Strategy {
	return StrategyFunc(func(r models.DataRecord, _ int, files []models.EvidenceFile) []models.EvidenceFile {
		if r.Month == 0 {
			return nil
		}
		return filter(files, func(f models.EvidenceFile) bool {
			return f.FileType == fileType && f.Month == r.Month
		})
	})
}

// None never matches
func None() Strategy {
	return StrategyFunc(func(models.DataRecord, int, []models.EvidenceFile) []models.EvidenceFile {
		return nil
	})
}

// soloStrategy covers categories whose grouped records share group
// evidence while ungrouped ones carry their own file keyed by their id, as
// diesel generator refuels and test runs do.
func soloStrategy(groupType, soloType string) Strategy {
	grouped := ByGroup(groupType)
	solo := BySingleID(soloType)
	return StrategyFunc(func(r models.DataRecord, idx int, files []models.EvidenceFile) []models.EvidenceFile {
		if r.GroupID != "" {
			return grouped.Match(r, idx, files)
		}
		return solo.Match(r, idx, files)
	})
}
