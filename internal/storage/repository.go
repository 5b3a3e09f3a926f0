package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jgoulah/usageledger/internal/reconcile"
	"github.com/jgoulah/usageledger/pkg/models"
)

// Metadata stores evidence file rows
type Metadata interface {
	InsertFile(ctx context.Context, f models.EvidenceFile) error
	GetFile(ctx context.Context, id string) (*models.EvidenceFile, error)
	DeleteFile(ctx context.Context, id string) error
	ListFiles(ctx context.Context, entryID string) ([]models.EvidenceFile, error)
}

// FileStore pairs file metadata with blob contents
type FileStore struct {
	meta   Metadata
	blobs  BlobStore
	logger *zap.Logger
	newID  func() string
	now    func() time.Time
}

var _ reconcile.FileRepository = (*FileStore)(nil)

// NewFileStore creates a FileStore
func NewFileStore(meta Metadata, blobs BlobStore, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		meta:   meta,
		blobs:  blobs,
		logger: logger.Named("storage"),
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Upload stores the file contents, then its metadata. The blob is removed
// again when the metadata insert fails.
func (s *FileStore) Upload(ctx context.Context, file models.PendingFile, meta reconcile.UploadMeta) (models.EvidenceFile, error) {
	if meta.EntryID == "" {
		return models.EvidenceFile{}, models.Invalid("entry_id", "upload without entry")
	}
	data, err := contents(file)
	if err != nil {
		return models.EvidenceFile{}, err
	}

	name := file.Name
	if name == "" {
		name = filepath.Base(file.Path)
	}
	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = detectMime(name, data)
	}

	id := s.newID()
	key := ObjectKey(meta.EntryID, id, name)
	if err := s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mimeType); err != nil {
		return models.EvidenceFile{}, fmt.Errorf("storing %s: %w", name, err)
	}

	ev := models.EvidenceFile{
		ID:          id,
		EntryID:     meta.EntryID,
		Path:        key,
		FileName:    name,
		FileType:    meta.FileType,
		RecordID:    meta.RecordKey,
		Month:       meta.Month,
		RecordIndex: meta.RecordIndex,
		MimeType:    mimeType,
		FileSize:    int64(len(data)),
		CreatedAt:   s.now(),
	}
	if err := s.meta.InsertFile(ctx, ev); err != nil {
		if rmErr := s.blobs.Remove(ctx, key); rmErr != nil {
			s.logger.Warn("removing orphaned blob failed", zap.String("key", key), zap.Error(rmErr))
		}
		return models.EvidenceFile{}, fmt.Errorf("recording %s: %w", name, err)
	}

	s.logger.Debug("stored evidence file",
		zap.String("file_id", id), zap.String("key", key), zap.Int64("size", ev.FileSize))
	return ev, nil
}

// Delete removes the metadata, then the blob. Deleting an unknown file is
// a no-op.
func (s *FileStore) Delete(ctx context.Context, fileID string) error {
	f, err := s.meta.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	if f == nil {
		return nil
	}
	if err := s.meta.DeleteFile(ctx, fileID); err != nil {
		return err
	}
	if err := s.blobs.Remove(ctx, f.Path); err != nil {
		s.logger.Warn("removing blob failed", zap.String("file_id", fileID), zap.String("key", f.Path), zap.Error(err))
	}
	return nil
}

// List returns every file of an entry
func (s *FileStore) List(ctx context.Context, entryID string) ([]models.EvidenceFile, error) {
	return s.meta.ListFiles(ctx, entryID)
}

// Open returns a file's metadata and contents
func (s *FileStore) Open(ctx context.Context, fileID string) (*models.EvidenceFile, io.ReadCloser, error) {
	f, err := s.meta.GetFile(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if f == nil {
		return nil, nil, fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	rc, err := s.blobs.Get(ctx, f.Path)
	if err != nil {
		return nil, nil, err
	}
	return f, rc, nil
}

func contents(file models.PendingFile) ([]byte, error) {
	if file.Data != nil {
		return file.Data, nil
	}
	if file.Path == "" {
		return nil, models.Invalid("file", "pending file %q has no content", file.Name)
	}
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file.Path, err)
	}
	return data, nil
}

func detectMime(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}
