package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jgoulah/usageledger/internal/category"
	"github.com/jgoulah/usageledger/internal/evidence"
	"github.com/jgoulah/usageledger/internal/proration"
	"github.com/jgoulah/usageledger/pkg/models"
)

// DefaultConcurrency bounds parallel file operations
const DefaultConcurrency = 3

// Submission is one save or submit of an entry
type Submission struct {
	PageKey       string
	Year          int
	EntryID       string
	Records       []models.DataRecord
	Specs         []models.Spec
	FilesToDelete []string
	IsDraft       bool
}

// Result reports a completed submission. Failures lists file operations
// that did not complete; Records and Specs keep only the pending files that
// failed, so submitting them again retries just those.
type Result struct {
	EntryID  string
	Status   string
	Monthly  models.Monthly
	Records  []models.DataRecord
	Specs    []models.Spec
	Files    []models.EvidenceFile
	Failures []Failure
}

// Loaded is a persisted entry with its evidence attached
type Loaded struct {
	Entry    models.Entry
	Records  []models.DataRecord
	Specs    []models.Spec
	Files    []models.EvidenceFile
	Evidence evidence.EntryEvidence
}

// Options configures a Reconciler. Zero values take defaults.
type Options struct {
	Concurrency    int
	MaxBillingDays int
	Resolver       *evidence.Resolver
	Notifier       Notifier
	Logger         *zap.Logger
}

// Reconciler persists entries and brings their evidence files in line with
// the records that reference them.
type Reconciler struct {
	entries        EntryRepository
	files          FileRepository
	resolver       *evidence.Resolver
	notifier       Notifier
	concurrency    int
	maxBillingDays int
	logger         *zap.Logger
}

type payload struct {
	Records []models.DataRecord `json:"records"`
	Specs   []models.Spec       `json:"specs,omitempty"`
}

// New creates a Reconciler over the given repositories
func New(entries EntryRepository, files FileRepository, opts Options) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reconciler{
		entries:        entries,
		files:          files,
		resolver:       opts.Resolver,
		notifier:       opts.Notifier,
		concurrency:    opts.Concurrency,
		maxBillingDays: opts.MaxBillingDays,
		logger:         logger.Named("reconcile"),
	}
	if r.resolver == nil {
		r.resolver = evidence.NewResolver(logger)
	}
	if r.concurrency <= 0 {
		r.concurrency = DefaultConcurrency
	}
	if r.maxBillingDays <= 0 {
		r.maxBillingDays = proration.DefaultMaxBillingDays
	}
	return r
}

// Submit validates and persists an entry, then deletes and uploads its
// evidence files. A ValidationError or PersistenceError means no file
// operation ran. Individual file failures never abort the batch; they are
// returned in Result.Failures.
func (r *Reconciler) Submit(ctx context.Context, sub Submission) (*Result, error) {
	cat, ok := category.Lookup(sub.PageKey)
	if !ok {
		return nil, models.Invalid("page_key", "unknown category %q", sub.PageKey)
	}
	if sub.Year <= 0 {
		return nil, models.Invalid("year", "must be positive, got %d", sub.Year)
	}
	if err := checkSpecRefs(sub.Records, sub.Specs); err != nil {
		return nil, err
	}

	monthly, err := r.monthlyUsage(cat, sub)
	if err != nil {
		return nil, err
	}
	uploads, err := r.planUploads(cat, sub)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(cleanPayload(sub.Records, sub.Specs))
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	status := models.StatusSubmitted
	if sub.IsDraft {
		status = models.StatusSaved
	}

	entryID, err := r.entries.Upsert(ctx, sub.EntryID, EntryInput{
		PageKey: sub.PageKey,
		Year:    sub.Year,
		Unit:    cat.Unit,
		Monthly: monthly,
		Payload: body,
		Status:  status,
	})
	if err != nil {
		return nil, &PersistenceError{PageKey: sub.PageKey, Year: sub.Year, Err: err}
	}
	r.logger.Info("entry saved",
		zap.String("entry_id", entryID),
		zap.String("page_key", sub.PageKey),
		zap.Int("year", sub.Year),
		zap.String("status", status),
		zap.Float64("amount", monthly.Total()))

	failures := r.deleteFiles(ctx, sub.FilesToDelete)

	for i := range uploads {
		uploads[i].meta.EntryID = entryID
	}
	uploadFailures, failed := r.uploadFiles(ctx, uploads)
	failures = append(failures, uploadFailures...)

	res := &Result{
		EntryID:  entryID,
		Status:   status,
		Monthly:  monthly,
		Failures: failures,
	}

	files, err := r.files.List(ctx, entryID)
	if err != nil {
		res.Failures = append(res.Failures, Failure{Op: OpList, Target: entryID, Err: err})
	}
	res.Files = files
	res.Records = r.resolver.Attach(sub.PageKey, settleRecords(sub.Records, failed), files)
	res.Specs = settleSpecs(sub.Specs, failed)

	if len(res.Failures) > 0 {
		r.logger.Warn("submission finished with file failures",
			zap.String("entry_id", entryID), zap.Int("failures", len(res.Failures)))
	}

	if !sub.IsDraft && r.notifier != nil {
		entry := models.Entry{
			ID:      entryID,
			PageKey: sub.PageKey,
			Year:    sub.Year,
			Unit:    cat.Unit,
			Monthly: monthly,
			Amount:  monthly.Total(),
			Status:  status,
		}
		if err := r.notifier.EntrySubmitted(ctx, entry); err != nil {
			r.logger.Warn("notifying submission failed", zap.String("entry_id", entryID), zap.Error(err))
		}
	}
	return res, nil
}

// Reload loads the entry for a category and year and attaches its evidence.
// It returns nil, nil when no entry exists.
func (r *Reconciler) Reload(ctx context.Context, pageKey string, year int) (*Loaded, error) {
	entry, err := r.entries.Get(ctx, pageKey, year)
	if err != nil {
		return nil, fmt.Errorf("loading entry: %w", err)
	}
	if entry == nil {
		return nil, nil
	}

	var p payload
	if len(entry.Payload) > 0 {
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding payload of entry %s: %w", entry.ID, err)
		}
	}

	files, err := r.files.List(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("listing files of entry %s: %w", entry.ID, err)
	}

	return &Loaded{
		Entry:    *entry,
		Records:  r.resolver.Attach(pageKey, p.Records, files),
		Specs:    p.Specs,
		Files:    files,
		Evidence: r.resolver.EntryEvidence(pageKey, p.Records, files),
	}, nil
}

// Clear deletes every evidence file of an entry, then the entry. The entry
// is kept when any file delete fails so the clear can be retried.
func (r *Reconciler) Clear(ctx context.Context, entryID string) ([]Failure, error) {
	files, err := r.files.List(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("listing files of entry %s: %w", entryID, err)
	}
	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	failures := r.deleteFiles(ctx, ids)
	if len(failures) > 0 {
		return failures, nil
	}
	if err := r.entries.Delete(ctx, entryID); err != nil {
		return nil, fmt.Errorf("deleting entry %s: %w", entryID, err)
	}
	r.logger.Info("entry cleared", zap.String("entry_id", entryID), zap.Int("files", len(files)))
	return nil, nil
}

func (r *Reconciler) deleteFiles(ctx context.Context, ids []string) []Failure {
	failures := make([]*Failure, len(ids))
	r.settle(len(ids), func(i int) {
		if err := r.files.Delete(ctx, ids[i]); err != nil {
			r.logger.Warn("deleting file failed", zap.String("file_id", ids[i]), zap.Error(err))
			failures[i] = &Failure{Op: OpDelete, Target: ids[i], Err: err}
		}
	})
	return compact(failures)
}

// uploadFiles returns the failures and, per record or spec id, the pending
// files that did not upload.
func (r *Reconciler) uploadFiles(ctx context.Context, uploads []upload) ([]Failure, map[string][]models.PendingFile) {
	failures := make([]*Failure, len(uploads))
	r.settle(len(uploads), func(i int) {
		u := uploads[i]
		f, err := r.files.Upload(ctx, u.file, u.meta)
		if err != nil {
			r.logger.Warn("uploading file failed",
				zap.String("file", u.file.Name), zap.String("record_key", u.meta.RecordKey), zap.Error(err))
			failures[i] = &Failure{Op: OpUpload, Target: u.meta.RecordKey, File: u.file.Name, Err: err}
			return
		}
		r.logger.Debug("file uploaded", zap.String("file_id", f.ID), zap.String("record_key", u.meta.RecordKey))
	})

	failed := make(map[string][]models.PendingFile)
	for i, f := range failures {
		if f == nil {
			continue
		}
		for _, id := range uploads[i].recordIDs {
			failed[id] = append(failed[id], uploads[i].file)
		}
		if uploads[i].specID != "" {
			failed[uploads[i].specID] = append(failed[uploads[i].specID], uploads[i].file)
		}
	}
	return compact(failures), failed
}

// settle runs fn for 0..n-1 with bounded concurrency and waits for all
func (r *Reconciler) settle(n int, fn func(i int)) {
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

func compact(in []*Failure) []Failure {
	var out []Failure
	for _, f := range in {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}

// settleRecords leaves each record only the pending files that failed
func settleRecords(records []models.DataRecord, failed map[string][]models.PendingFile) []models.DataRecord {
	out := make([]models.DataRecord, len(records))
	for i, rec := range records {
		rec.PendingFiles = failed[rec.ID]
		out[i] = rec
	}
	return out
}

func settleSpecs(specs []models.Spec, failed map[string][]models.PendingFile) []models.Spec {
	out := make([]models.Spec, len(specs))
	for i, s := range specs {
		s.PendingFiles = failed[s.ID]
		out[i] = s
	}
	return out
}

func cleanPayload(records []models.DataRecord, specs []models.Spec) payload {
	p := payload{Records: make([]models.DataRecord, len(records))}
	for i, rec := range records {
		p.Records[i] = rec.Clean()
	}
	for _, s := range specs {
		p.Specs = append(p.Specs, s.Clean())
	}
	return p
}

func checkSpecRefs(records []models.DataRecord, specs []models.Spec) error {
	known := make(map[string]bool, len(specs))
	for _, s := range specs {
		known[s.ID] = true
	}
	for _, rec := range records {
		if rec.SpecID != "" && !known[rec.SpecID] {
			return models.Invalid("spec_id", "record %s references missing spec %s", rec.ID, rec.SpecID)
		}
	}
	return nil
}
