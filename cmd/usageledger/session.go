package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jgoulah/usageledger/internal/category"
	"github.com/jgoulah/usageledger/internal/grouping"
	"github.com/jgoulah/usageledger/internal/reconcile"
	"github.com/jgoulah/usageledger/pkg/models"
)

// sessionFile is the YAML document the submit command reads. Groups are
// applied in order on top of Records: a group without group_id is new, one
// with a group_id replaces that group's members.
type sessionFile struct {
	PageKey       string              `yaml:"page_key"`
	Year          int                 `yaml:"year"`
	EntryID       string              `yaml:"entry_id,omitempty"`
	Records       []models.DataRecord `yaml:"records,omitempty"`
	Groups        []groupEdit         `yaml:"groups,omitempty"`
	DeleteGroups  []string            `yaml:"delete_groups,omitempty"`
	Specs         []models.Spec       `yaml:"specs,omitempty"`
	DeleteSpecs   []string            `yaml:"delete_specs,omitempty"`
	FilesToDelete []string            `yaml:"files_to_delete,omitempty"`
}

type groupEdit struct {
	GroupID      string               `yaml:"group_id,omitempty"`
	Records      []models.DataRecord  `yaml:"records"`
	PendingFiles []models.PendingFile `yaml:"pending_files,omitempty"`
}

func readSession(path string) (*sessionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	var sf sessionFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	return &sf, nil
}

// buildSubmission applies the session's group and spec edits and returns
// the submission. Relative file paths resolve against baseDir.
func buildSubmission(sf *sessionFile, baseDir string, draft bool, newID grouping.IDFunc) (reconcile.Submission, error) {
	cat, ok := category.Lookup(sf.PageKey)
	if !ok {
		return reconcile.Submission{}, models.Invalid("page_key", "unknown category %q", sf.PageKey)
	}
	mode := grouping.ModeQuantity
	if cat.Billing {
		mode = grouping.ModeBilling
	}

	records := withIDs(sf.Records, newID)
	for _, id := range sf.DeleteGroups {
		records = grouping.DeleteGroup(records, id)
	}

	for i, g := range sf.Groups {
		if g.GroupID != "" {
			if _, err := grouping.EditGroup(records, g.GroupID); err != nil {
				return reconcile.Submission{}, fmt.Errorf("group %d: %w", i+1, err)
			}
		}
		session := grouping.EditSession{
			GroupID:      g.GroupID,
			Records:      withIDs(g.Records, newID),
			PendingFiles: resolvePaths(g.PendingFiles, baseDir),
		}
		var err error
		records, _, err = grouping.SaveGroup(records, session, mode, newID)
		if err != nil {
			return reconcile.Submission{}, fmt.Errorf("group %d: %w", i+1, err)
		}
	}
	for i := range records {
		records[i].PendingFiles = resolvePaths(records[i].PendingFiles, baseDir)
	}

	var specs []models.Spec
	for _, s := range sf.Specs {
		s.PendingFiles = resolvePaths(s.PendingFiles, baseDir)
		var err error
		if specs, _, err = grouping.UpsertSpec(specs, s, newID); err != nil {
			return reconcile.Submission{}, err
		}
	}
	for _, id := range sf.DeleteSpecs {
		var err error
		if specs, err = grouping.DeleteSpec(specs, records, id); err != nil {
			return reconcile.Submission{}, err
		}
	}

	return reconcile.Submission{
		PageKey:       sf.PageKey,
		Year:          sf.Year,
		EntryID:       sf.EntryID,
		Records:       records,
		Specs:         specs,
		FilesToDelete: sf.FilesToDelete,
		IsDraft:       draft,
	}, nil
}

func withIDs(records []models.DataRecord, newID grouping.IDFunc) []models.DataRecord {
	out := make([]models.DataRecord, len(records))
	for i, r := range records {
		if r.ID == "" {
			r.ID = newID()
		}
		out[i] = r
	}
	return out
}

func resolvePaths(files []models.PendingFile, baseDir string) []models.PendingFile {
	if len(files) == 0 {
		return nil
	}
	out := make([]models.PendingFile, len(files))
	for i, f := range files {
		if f.Path != "" && !filepath.IsAbs(f.Path) {
			f.Path = filepath.Join(baseDir, f.Path)
		}
		if f.Name == "" {
			f.Name = filepath.Base(f.Path)
		}
		out[i] = f
	}
	return out
}

// submitSession builds and submits the session at path, then writes the
// settled state back so a second run retries only what failed.
func submitSession(ctx context.Context, rec *reconcile.Reconciler, path string, draft bool, newID grouping.IDFunc) (*reconcile.Result, error) {
	sf, err := readSession(path)
	if err != nil {
		return nil, err
	}
	baseDir := filepath.Dir(path)
	sub, err := buildSubmission(sf, baseDir, draft, newID)
	if err != nil {
		return nil, err
	}
	res, err := rec.Submit(ctx, sub)
	if err != nil {
		return nil, err
	}
	if err := saveSession(path, settledSession(sf, res, baseDir)); err != nil {
		return res, fmt.Errorf("entry %s saved but the session file was not updated: %w", res.EntryID, err)
	}
	return res, nil
}

// settledSession is the session after a submit: edits are folded into
// records, ids are fixed, and only failed files and deletes stay pending.
func settledSession(sf *sessionFile, res *reconcile.Result, baseDir string) *sessionFile {
	out := &sessionFile{
		PageKey: sf.PageKey,
		Year:    sf.Year,
		EntryID: res.EntryID,
	}
	for _, r := range res.Records {
		r.EvidenceFiles = nil
		r.PendingFiles = relativePaths(r.PendingFiles, baseDir)
		out.Records = append(out.Records, r)
	}
	for _, s := range res.Specs {
		s.PendingFiles = relativePaths(s.PendingFiles, baseDir)
		out.Specs = append(out.Specs, s)
	}
	for _, f := range res.Failures {
		if f.Op == reconcile.OpDelete {
			out.FilesToDelete = append(out.FilesToDelete, f.Target)
		}
	}
	return out
}

// relativePaths undoes resolvePaths for files under baseDir
func relativePaths(files []models.PendingFile, baseDir string) []models.PendingFile {
	if len(files) == 0 {
		return nil
	}
	out := make([]models.PendingFile, len(files))
	for i, f := range files {
		if f.Path != "" {
			if rel, err := filepath.Rel(baseDir, f.Path); err == nil && !strings.HasPrefix(rel, "..") {
				f.Path = rel
			}
		}
		out[i] = f
	}
	return out
}

// saveSession replaces the session file through a temp file and rename
func saveSession(path string, sf *sessionFile) error {
	data, err := yaml.Marshal(sf)
	if err != nil {
		return fmt.Errorf("encoding session file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}
