package reconcile

import (
	"go.uber.org/zap"

	"github.com/jgoulah/usageledger/internal/category"
	"github.com/jgoulah/usageledger/internal/grouping"
	"github.com/jgoulah/usageledger/pkg/models"
)

// upload is one pending file and the records or spec it belongs to
type upload struct {
	file      models.PendingFile
	meta      UploadMeta
	recordIDs []string
	specID    string
}

// planUploads lists every pending file to upload. Group, multi-id and month
// categories upload once per group under the member id list; single-id and
// index categories upload per record. Spec files are keyed by the spec id.
func (r *Reconciler) planUploads(cat category.Category, sub Submission) ([]upload, error) {
	var plan []upload
	base := UploadMeta{PageKey: sub.PageKey, Year: sub.Year, FileType: cat.EvidenceType}

	add := func(members []models.DataRecord, files []models.PendingFile, meta UploadMeta) {
		ids := make([]string, len(members))
		for i, m := range members {
			ids[i] = m.ID
		}
		for _, f := range files {
			plan = append(plan, upload{file: f, meta: meta, recordIDs: ids})
		}
	}

	switch cat.Kind {
	case category.KindNone:
		for _, rec := range sub.Records {
			if len(rec.PendingFiles) > 0 {
				r.logger.Warn("category takes no record evidence, pending files ignored",
					zap.String("page_key", sub.PageKey), zap.String("record_id", rec.ID))
			}
		}
	case category.KindSingle, category.KindIndex:
		for i, rec := range sub.Records {
			key, err := grouping.RecordKey([]models.DataRecord{rec})
			if err != nil {
				return nil, err
			}
			meta := base
			meta.RecordKey = key
			if cat.Kind == category.KindIndex {
				idx := i
				meta.RecordIndex = &idx
			}
			add([]models.DataRecord{rec}, rec.PendingFiles, meta)
		}
	default:
		var err error
		grouping.BuildGroups(sub.Records).Each(func(groupID string, members []models.DataRecord) {
			if err != nil {
				return
			}
			if groupID == grouping.NoGroup {
				for _, rec := range members {
					var key string
					if key, err = grouping.RecordKey([]models.DataRecord{rec}); err != nil {
						return
					}
					meta := base
					meta.RecordKey = key
					if cat.SoloType != "" {
						meta.FileType = cat.SoloType
					}
					if cat.Kind == category.KindMonth {
						meta.Month = rec.Month
					}
					add([]models.DataRecord{rec}, rec.PendingFiles, meta)
				}
				return
			}
			var key string
			if key, err = grouping.RecordKey(members); err != nil {
				return
			}
			meta := base
			meta.RecordKey = key
			if cat.Kind == category.KindMonth {
				meta.Month = members[0].Month
			}
			add(members, grouping.SharedPendingFiles(members), meta)
		})
		if err != nil {
			return nil, err
		}
	}

	for _, s := range sub.Specs {
		for _, f := range s.PendingFiles {
			meta := base
			meta.FileType = models.FileTypeOther
			meta.RecordKey = s.ID
			plan = append(plan, upload{file: f, meta: meta, specID: s.ID})
		}
	}
	return plan, nil
}
