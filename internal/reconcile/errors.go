package reconcile

import "fmt"

// Failure operations
const (
	OpUpload = "upload"
	OpDelete = "delete"
	OpList   = "list"
)

// PersistenceError means the entry itself could not be saved. No file
// operation ran.
type PersistenceError struct {
	PageKey string
	Year    int
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting entry %s/%d: %v", e.PageKey, e.Year, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Failure is one file operation that did not complete. Failures are
// returned as data; the entry stays persisted.
type Failure struct {
	Op     string
	Target string // record key, spec id or file id
	File   string // file name for uploads
	Err    error
}

func (f Failure) Error() string {
	if f.File != "" {
		return fmt.Sprintf("%s %s (%s): %v", f.Op, f.File, f.Target, f.Err)
	}
	return fmt.Sprintf("%s %s: %v", f.Op, f.Target, f.Err)
}
