// Package evidence ties uploaded evidence files back to the records they
// document.
package evidence

import (
	"sync"

	"go.uber.org/zap"

	"github.com/jgoulah/usageledger/internal/category"
	"github.com/jgoulah/usageledger/pkg/models"
)

// Resolver matches evidence files to records using a per-category strategy
type Resolver struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	logger     *zap.Logger
}

// NewResolver creates a resolver with a strategy for every registered category
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		strategies: make(map[string]Strategy),
		logger:     logger.Named("evidence"),
	}
	for _, key := range category.Keys() {
		r.strategies[key] = strategyFor(category.Get(key))
	}
	return r
}

func strategyFor(c category.Category) Strategy {
	switch c.Kind {
	case category.KindGroup:
		if c.SoloType != "" {
			return soloStrategy(c.EvidenceType, c.SoloType)
		}
		return ByGroup(c.EvidenceType)
	case category.KindIndex:
		return ByIndex(c.EvidenceType)
	case category.KindSingle:
		return BySingleID(c.EvidenceType)
	case category.KindMulti:
		return ByMultiID(c.EvidenceType)
	case category.KindMonth:
		return ByMonth(c.EvidenceType)
	default:
		return None()
	}
}

// Register adds or replaces the strategy for a page key
func (r *Resolver) Register(pageKey string, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[pageKey] = s
}

func (r *Resolver) strategy(pageKey string) Strategy {
	r.mu.RLock()
	s, ok := r.strategies[pageKey]
	r.mu.RUnlock()
	if ok {
		return s
	}
	return strategyFor(category.Get(pageKey))
}

// Resolve returns the files of allFiles that belong to record.
//
// When nothing matches and the category has a single evidence slot, every
// file of the entry is returned. That broadening is logged.
func (r *Resolver) Resolve(pageKey string, record models.DataRecord, recordIndex int, allFiles []models.EvidenceFile) []models.EvidenceFile {
	matched := r.strategy(pageKey).Match(record, recordIndex, allFiles)

	if len(matched) == 0 && len(allFiles) > 0 {
		if category.Get(pageKey).SingleSlot {
			r.logger.Warn("no evidence matched record, falling back to all entry files",
				zap.String("page_key", pageKey),
				zap.String("record_id", record.ID),
				zap.String("group_id", record.GroupID),
				zap.Int("record_index", recordIndex),
				zap.Int("files", len(allFiles)),
			)
			return append([]models.EvidenceFile(nil), allFiles...)
		}
		r.logger.Debug("no evidence matched record",
			zap.String("page_key", pageKey),
			zap.String("record_id", record.ID),
			zap.Int("record_index", recordIndex),
		)
	}
	return matched
}

// SharedFiles returns the entry-level files of a category (MSDS sheets,
// inspection forms, heat value proofs): a shared file type and no record_id.
func (r *Resolver) SharedFiles(pageKey string, allFiles []models.EvidenceFile) []models.EvidenceFile {
	c := category.Get(pageKey)
	return filter(allFiles, func(f models.EvidenceFile) bool {
		return f.RecordID == "" && f.RecordIndex == nil && c.IsShared(f.FileType)
	})
}

// Attach returns copies of records with EvidenceFiles resolved from allFiles
func (r *Resolver) Attach(pageKey string, records []models.DataRecord, allFiles []models.EvidenceFile) []models.DataRecord {
	out := make([]models.DataRecord, len(records))
	for i, rec := range records {
		rec.EvidenceFiles = r.Resolve(pageKey, rec, i, allFiles)
		out[i] = rec
	}
	return out
}
