package storage

import (
	"context"
	"errors"
	"io"
	"path"
)

// ErrNotFound is returned when a blob does not exist
var ErrNotFound = errors.New("blob not found")

// BlobStore holds evidence file contents
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// ObjectKey is the blob key of an uploaded file
func ObjectKey(entryID, fileID, name string) string {
	return path.Join("entries", entryID, fileID, path.Base(name))
}
