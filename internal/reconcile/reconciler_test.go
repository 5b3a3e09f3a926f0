package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/usageledger/pkg/models"
)

type harness struct {
	ops      *opLog
	entries  *fakeEntries
	files    *fakeFiles
	notifier *fakeNotifier
	rec      *Reconciler
}

func newHarness() *harness {
	ops := &opLog{}
	h := &harness{
		ops:      ops,
		entries:  newFakeEntries(ops),
		files:    newFakeFiles(ops),
		notifier: &fakeNotifier{},
	}
	h.rec = New(h.entries, h.files, Options{Notifier: h.notifier})
	return h
}

func pending(names ...string) []models.PendingFile {
	out := make([]models.PendingFile, len(names))
	for i, n := range names {
		out[i] = models.PendingFile{Name: n, Data: []byte(n)}
	}
	return out
}

func TestSubmit_CompositeKeyUploadsOncePerGroup(t *testing.T) {
	h := newHarness()
	files := pending("receipt.pdf")
	records := []models.DataRecord{
		{ID: "a", GroupID: "g1", Quantity: 1, PendingFiles: files},
		{ID: "b", GroupID: "g1", Quantity: 2, PendingFiles: files},
		{ID: "c", GroupID: "g1", Quantity: 3, PendingFiles: files},
	}

	res, err := h.rec.Submit(context.Background(), Submission{PageKey: "lpg", Year: 2024, Records: records})
	require.NoError(t, err)
	assert.Empty(t, res.Failures)

	require.Len(t, h.files.uploads, 1)
	assert.Equal(t, "a,b,c", h.files.uploads[0].RecordKey)
	assert.Equal(t, models.FileTypeOther, h.files.uploads[0].FileType)
	assert.Equal(t, res.EntryID, h.files.uploads[0].EntryID)

	require.Len(t, res.Records, 3)
	for _, r := range res.Records {
		assert.True(t, r.Reconciled(), "record %s", r.ID)
		require.Len(t, r.EvidenceFiles, 1, "record %s", r.ID)
		assert.Equal(t, "receipt.pdf", r.EvidenceFiles[0].FileName)
	}
	assert.Equal(t, models.Monthly{1: 6}, res.Monthly)
}

func TestSubmit_PartialUploadFailureIsReturnedAsData(t *testing.T) {
	h := newHarness()
	h.files.failName["b.pdf"] = true
	records := []models.DataRecord{
		{ID: "r1", Date: "2024-03-02", Quantity: 10, PendingFiles: pending("a.pdf")},
		{ID: "r2", Date: "2024-03-20", Quantity: 5, PendingFiles: pending("b.pdf")},
		{ID: "r3", Date: "2024-04-01", Quantity: 7, PendingFiles: pending("c.pdf")},
	}

	res, err := h.rec.Submit(context.Background(), Submission{PageKey: "diesel", Year: 2024, Records: records})
	require.NoError(t, err)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, OpUpload, res.Failures[0].Op)
	assert.Equal(t, "r2", res.Failures[0].Target)
	assert.Equal(t, "b.pdf", res.Failures[0].File)
	assert.ErrorIs(t, res.Failures[0].Err, errBoom)

	assert.True(t, res.Records[0].Reconciled())
	assert.False(t, res.Records[1].Reconciled(), "failed upload keeps pending file for retry")
	assert.True(t, res.Records[2].Reconciled())
	assert.Len(t, h.files.files, 2)

	entry, err := h.entries.Get(context.Background(), "diesel", 2024)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, models.Monthly{3: 15, 4: 7}, entry.Monthly)
}

func TestSubmit_PersistenceFailureSkipsFileOperations(t *testing.T) {
	h := newHarness()
	h.entries.upsertErr = errBoom

	res, err := h.rec.Submit(context.Background(), Submission{
		PageKey:       "lpg",
		Year:          2024,
		Records:       []models.DataRecord{{ID: "a", Quantity: 1, PendingFiles: pending("x.pdf")}},
		FilesToDelete: []string{"old"},
	})
	require.Error(t, err)
	assert.Nil(t, res)

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "lpg", perr.PageKey)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"upsert"}, h.ops.list())
	assert.Empty(t, h.notifier.entries)
}

func TestSubmit_ValidationRunsBeforeAnyRepositoryCall(t *testing.T) {
	tests := []struct {
		name  string
		sub   Submission
		field string
	}{
		{
			name:  "unknown category",
			sub:   Submission{PageKey: "plutonium", Year: 2024},
			field: "page_key",
		},
		{
			name: "bill over 70 days",
			sub: Submission{PageKey: "electricity", Year: 2024, Records: []models.DataRecord{
				{ID: "e1", BillingStart: "2024-01-01", BillingEnd: "2024-04-30", BillingUnits: 100},
			}},
			field: "billing_period",
		},
		{
			name: "missing spec reference",
			sub: Submission{PageKey: "welding_rod", Year: 2024, Records: []models.DataRecord{
				{ID: "w1", Quantity: 3, SpecID: "gone"},
			}},
			field: "spec_id",
		},
		{
			name: "record id with separator",
			sub: Submission{PageKey: "lpg", Year: 2024, Records: []models.DataRecord{
				{ID: "a,b", Quantity: 3, PendingFiles: pending("x.pdf")},
			}},
			field: "record_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			_, err := h.rec.Submit(context.Background(), tt.sub)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrValidation)

			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, h.ops.list())
		})
	}
}

func TestSubmit_DraftSkipsInvalidBills(t *testing.T) {
	h := newHarness()
	records := []models.DataRecord{
		{ID: "e1", BillingStart: "2024-01-15", BillingEnd: "2024-02-10", BillingUnits: 100},
		{ID: "e2", BillingStart: "2024-03-01"},
	}

	res, err := h.rec.Submit(context.Background(), Submission{PageKey: "electricity", Year: 2024, Records: records, IsDraft: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSaved, res.Status)
	assert.Equal(t, models.Monthly{1: 62.96, 2: 37.04}, res.Monthly)
	assert.Empty(t, h.notifier.entries, "drafts are not announced")
}

func TestSubmit_BillingProratesAcrossRecords(t *testing.T) {
	h := newHarness()
	records := []models.DataRecord{
		{ID: "e1", BillingStart: "2024-01-15", BillingEnd: "2024-02-10", BillingUnits: 100, PendingFiles: pending("jan.pdf")},
		{ID: "e2", BillingStart: "2024-02-11", BillingEnd: "2024-02-29", BillingUnits: 50, PendingFiles: pending("feb.pdf")},
	}

	res, err := h.rec.Submit(context.Background(), Submission{PageKey: "electricity", Year: 2024, Records: records})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, res.Status)
	assert.Equal(t, models.Monthly{1: 62.96, 2: 87.04}, res.Monthly)

	require.Len(t, h.files.uploads, 2)
	indexes := map[string]int{}
	for _, u := range h.files.uploads {
		require.NotNil(t, u.RecordIndex)
		indexes[u.RecordKey] = *u.RecordIndex
	}
	assert.Equal(t, map[string]int{"e1": 0, "e2": 1}, indexes)

	require.Len(t, res.Records[1].EvidenceFiles, 1)
	assert.Equal(t, "feb.pdf", res.Records[1].EvidenceFiles[0].FileName)

	require.Len(t, h.notifier.entries, 1)
	assert.Equal(t, 150.0, h.notifier.entries[0].Amount)
	assert.Equal(t, "kWh", h.notifier.entries[0].Unit)
}

func TestSubmit_MonthCategoryTagsMonth(t *testing.T) {
	h := newHarness()
	records := []models.DataRecord{
		{ID: "s1", Month: 5, Hours: 4, PendingFiles: pending("may.jpg")},
		{ID: "s2", Month: 6, Hours: 2},
	}

	res, err := h.rec.Submit(context.Background(), Submission{PageKey: "septic_tank", Year: 2024, Records: records})
	require.NoError(t, err)
	assert.Equal(t, models.Monthly{5: 4, 6: 2}, res.Monthly)

	require.Len(t, h.files.uploads, 1)
	assert.Equal(t, 5, h.files.uploads[0].Month)
	assert.Len(t, res.Records[0].EvidenceFiles, 1)
	assert.Empty(t, res.Records[1].EvidenceFiles)
}

func TestSubmit_SpecFilesKeyedBySpecID(t *testing.T) {
	h := newHarness()
	h.files.failName["bad.pdf"] = true
	specs := []models.Spec{
		{ID: "sp1", Name: "E7018", PendingFiles: pending("msds.pdf")},
		{ID: "sp2", Name: "E6013", PendingFiles: pending("bad.pdf")},
	}
	records := []models.DataRecord{{ID: "w1", Quantity: 2, SpecID: "sp1"}}

	res, err := h.rec.Submit(context.Background(), Submission{PageKey: "welding_rod", Year: 2024, Records: records, Specs: specs})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)

	var keys []string
	for _, u := range h.files.uploads {
		assert.Equal(t, models.FileTypeOther, u.FileType)
		keys = append(keys, u.RecordKey)
	}
	assert.ElementsMatch(t, []string{"sp1", "sp2"}, keys)
	assert.Empty(t, res.Specs[0].PendingFiles)
	assert.Len(t, res.Specs[1].PendingFiles, 1)
}

func TestSubmit_DeletesBeforeUploads(t *testing.T) {
	h := newHarness()
	h.files.files = []models.EvidenceFile{{ID: "old", EntryID: "entry-1", FileName: "old.pdf"}}

	_, err := h.rec.Submit(context.Background(), Submission{
		PageKey:       "refrigerant",
		Year:          2024,
		EntryID:       "entry-1",
		Records:       []models.DataRecord{{ID: "r1", Quantity: 1, PendingFiles: pending("new.pdf")}},
		FilesToDelete: []string{"old"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"upsert", "delete old", "upload new.pdf"}, h.ops.list())
}

func TestSubmit_PayloadExcludesClientFields(t *testing.T) {
	h := newHarness()
	_, err := h.rec.Submit(context.Background(), Submission{
		PageKey: "urea",
		Year:    2024,
		Records: []models.DataRecord{{ID: "u1", Quantity: 20, PendingFiles: pending("u.pdf")}},
	})
	require.NoError(t, err)

	entry, err := h.entries.Get(context.Background(), "urea", 2024)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.NotContains(t, string(entry.Payload), "u.pdf")

	var p payload
	require.NoError(t, json.Unmarshal(entry.Payload, &p))
	require.Len(t, p.Records, 1)
	assert.Equal(t, "u1", p.Records[0].ID)
}

func TestSubmit_BoundedConcurrency(t *testing.T) {
	h := newHarness()
	h.files.delay = 10 * time.Millisecond
	var records []models.DataRecord
	for _, id := range strings.Split("a b c d e f g h", " ") {
		records = append(records, models.DataRecord{ID: id, Quantity: 1, PendingFiles: pending(id + ".pdf")})
	}

	res, err := h.rec.Submit(context.Background(), Submission{PageKey: "refrigerant", Year: 2024, Records: records})
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Len(t, h.files.uploads, 8)
	assert.LessOrEqual(t, h.files.maxSeen.Load(), int32(DefaultConcurrency))
}

func TestSubmit_NotifierErrorDoesNotFailSubmission(t *testing.T) {
	h := newHarness()
	h.notifier.err = errBoom

	res, err := h.rec.Submit(context.Background(), Submission{
		PageKey: "gasoline",
		Year:    2024,
		Records: []models.DataRecord{{ID: "g1", Quantity: 40}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Len(t, h.notifier.entries, 1)
}

func TestReload(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	loaded, err := h.rec.Reload(ctx, "lpg", 2024)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	files := pending("shared.pdf")
	_, err = h.rec.Submit(ctx, Submission{PageKey: "lpg", Year: 2024, Records: []models.DataRecord{
		{ID: "a", GroupID: "g", Quantity: 1, PendingFiles: files},
		{ID: "b", GroupID: "g", Quantity: 1, PendingFiles: files},
		{ID: "c", Quantity: 1},
	}})
	require.NoError(t, err)

	loaded, err = h.rec.Reload(ctx, "lpg", 2024)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Records, 3)
	assert.Len(t, loaded.Records[0].EvidenceFiles, 1)
	assert.Len(t, loaded.Records[1].EvidenceFiles, 1)
	assert.Empty(t, loaded.Records[2].EvidenceFiles)
	assert.Len(t, loaded.Files, 1)
	assert.Len(t, loaded.Evidence.Records, 3)
}

func TestClear(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	res, err := h.rec.Submit(ctx, Submission{PageKey: "refrigerant", Year: 2024, Records: []models.DataRecord{
		{ID: "r1", Quantity: 1, PendingFiles: pending("a.pdf", "b.pdf")},
	}})
	require.NoError(t, err)
	require.Len(t, h.files.files, 2)

	h.files.failID["file-2"] = true
	failures, err := h.rec.Clear(ctx, res.EntryID)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "file-2", failures[0].Target)
	entry, err := h.entries.Get(ctx, "refrigerant", 2024)
	require.NoError(t, err)
	assert.NotNil(t, entry, "entry kept while files remain")

	delete(h.files.failID, "file-2")
	failures, err = h.rec.Clear(ctx, res.EntryID)
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Empty(t, h.files.files)

	entry, err = h.entries.Get(ctx, "refrigerant", 2024)
	require.NoError(t, err)
	assert.Nil(t, entry)

	ops := h.ops.list()
	assert.Equal(t, "delete-entry", ops[len(ops)-1])
}

func TestSubmit_GeneratorTestRecordsUseOwnType(t *testing.T) {
	h := newHarness()
	fuel := pending("fuel.pdf")
	records := []models.DataRecord{
		{ID: "f1", GroupID: "g1", Date: "2024-02-01", Quantity: 100, PendingFiles: fuel},
		{ID: "f2", GroupID: "g1", Date: "2024-02-15", Quantity: 50, PendingFiles: fuel},
		{ID: "t1", Hours: 2, PendingFiles: pending("plate.jpg")},
	}

	res, err := h.rec.Submit(context.Background(), Submission{PageKey: "diesel_generator", Year: 2024, Records: records})
	require.NoError(t, err)
	require.Len(t, h.files.uploads, 2)

	types := map[string]string{}
	for _, u := range h.files.uploads {
		types[u.RecordKey] = u.FileType
	}
	assert.Equal(t, map[string]string{"f1,f2": models.FileTypeUsageEvidence, "t1": models.FileTypeOther}, types)

	require.Len(t, res.Records[2].EvidenceFiles, 1)
	assert.Equal(t, "plate.jpg", res.Records[2].EvidenceFiles[0].FileName)
	require.Len(t, res.Records[0].EvidenceFiles, 1)
	assert.Equal(t, "fuel.pdf", res.Records[0].EvidenceFiles[0].FileName)
}

func TestSubmit_OnlyFailedFilesStayPending(t *testing.T) {
	h := newHarness()
	h.files.failName["b.pdf"] = true
	files := pending("a.pdf", "b.pdf")
	records := []models.DataRecord{
		{ID: "r1", GroupID: "g1", Quantity: 1, PendingFiles: files},
		{ID: "r2", GroupID: "g1", Quantity: 2, PendingFiles: files},
	}

	res, err := h.rec.Submit(context.Background(), Submission{PageKey: "lpg", Year: 2024, Records: records})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)

	for _, r := range res.Records {
		require.Len(t, r.PendingFiles, 1, "record %s", r.ID)
		assert.Equal(t, "b.pdf", r.PendingFiles[0].Name)
		require.Len(t, r.EvidenceFiles, 1)
		assert.Equal(t, "a.pdf", r.EvidenceFiles[0].FileName)
	}

	// resubmitting the settled records uploads only the failed file
	delete(h.files.failName, "b.pdf")
	res, err = h.rec.Submit(context.Background(), Submission{PageKey: "lpg", Year: 2024, EntryID: res.EntryID, Records: res.Records})
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Len(t, h.files.files, 2)
	for _, r := range res.Records {
		assert.True(t, r.Reconciled())
		assert.Len(t, r.EvidenceFiles, 2)
	}
}
