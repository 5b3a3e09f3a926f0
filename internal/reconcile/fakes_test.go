package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jgoulah/usageledger/pkg/models"
)

var errBoom = errors.New("boom")

type fakeEntries struct {
	mu        sync.Mutex
	entries   map[string]*models.Entry
	upsertErr error
	upserts   int
	ops       *opLog
}

func newFakeEntries(ops *opLog) *fakeEntries {
	return &fakeEntries{entries: map[string]*models.Entry{}, ops: ops}
}

func (f *fakeEntries) Upsert(_ context.Context, entryID string, in EntryInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.ops.add("upsert")
	if f.upsertErr != nil {
		return "", f.upsertErr
	}
	if entryID == "" {
		for id, e := range f.entries {
			if e.PageKey == in.PageKey && e.Year == in.Year {
				entryID = id
			}
		}
	}
	if entryID == "" {
		entryID = fmt.Sprintf("entry-%d", len(f.entries)+1)
	}
	f.entries[entryID] = &models.Entry{
		ID:      entryID,
		PageKey: in.PageKey,
		Year:    in.Year,
		Unit:    in.Unit,
		Monthly: in.Monthly,
		Amount:  in.Monthly.Total(),
		Payload: in.Payload,
		Status:  in.Status,
	}
	return entryID, nil
}

func (f *fakeEntries) Get(_ context.Context, pageKey string, year int) (*models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.PageKey == pageKey && e.Year == year {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeEntries) Delete(_ context.Context, entryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops.add("delete-entry")
	delete(f.entries, entryID)
	return nil
}

type fakeFiles struct {
	mu       sync.Mutex
	files    []models.EvidenceFile
	uploads  []UploadMeta
	failName map[string]bool
	failID   map[string]bool
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	ops      *opLog
}

func newFakeFiles(ops *opLog) *fakeFiles {
	return &fakeFiles{failName: map[string]bool{}, failID: map[string]bool{}, ops: ops}
}

func (f *fakeFiles) track() func() {
	n := f.inFlight.Add(1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeFiles) Upload(_ context.Context, file models.PendingFile, meta UploadMeta) (models.EvidenceFile, error) {
	defer f.track()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops.add("upload " + file.Name)
	f.uploads = append(f.uploads, meta)
	if f.failName[file.Name] {
		return models.EvidenceFile{}, errBoom
	}
	ev := models.EvidenceFile{
		ID:          fmt.Sprintf("file-%d", len(f.files)+1),
		EntryID:     meta.EntryID,
		FileName:    file.Name,
		FileType:    meta.FileType,
		RecordID:    meta.RecordKey,
		Month:       meta.Month,
		RecordIndex: meta.RecordIndex,
	}
	f.files = append(f.files, ev)
	return ev, nil
}

func (f *fakeFiles) Delete(_ context.Context, fileID string) error {
	defer f.track()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops.add("delete " + fileID)
	if f.failID[fileID] {
		return errBoom
	}
	kept := f.files[:0]
	for _, ev := range f.files {
		if ev.ID != fileID {
			kept = append(kept, ev)
		}
	}
	f.files = kept
	return nil
}

func (f *fakeFiles) List(_ context.Context, entryID string) ([]models.EvidenceFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.EvidenceFile
	for _, ev := range f.files {
		if ev.EntryID == entryID {
			out = append(out, ev)
		}
	}
	return out, nil
}

type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *opLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ops...)
}

type fakeNotifier struct {
	entries []models.Entry
	err     error
}

func (n *fakeNotifier) EntrySubmitted(_ context.Context, e models.Entry) error {
	n.entries = append(n.entries, e)
	return n.err
}
