package service

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/aguayolabs/aguayo-api/internal/identity"
	"github.com/aguayolabs/aguayo-api/internal/storage"
)

const maxUploadBatch = 5

// uploadStore is the storage interface consumed by UploadService. Satisfied
// by *storage.ObjectStore.
type uploadStore interface {
	Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error)
	PublicURL(objectName string) string
}

// UploadedFile is one stored upload.
type UploadedFile struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// UploadService handles standalone image uploads, used for publication
// images. Objects land under the caller's namespace with random names; the
// caller references the returned URLs from publications.
type UploadService struct {
	store  uploadStore
	logger *zap.Logger
}

// NewUploadService creates an UploadService.
func NewUploadService(store uploadStore, logger *zap.Logger) *UploadService {
	return &UploadService{store: store, logger: logger}
}

// Upload validates and stores a batch of images for the calling user.
// All files are validated before any of them is stored.
func (s *UploadService) Upload(ctx context.Context, sess *identity.Session, files []*FileUpload) ([]UploadedFile, error) {
	if len(files) == 0 {
		return nil, validationf("files", "at least one file is required")
	}
	if len(files) > maxUploadBatch {
		return nil, validationf("files", "at most %d files per request", maxUploadBatch)
	}
	for _, f := range files {
		if err := validateImage("files", f); err != nil {
			return nil, err
		}
	}

	out := make([]UploadedFile, 0, len(files))
	for _, f := range files {
		r, err := f.Open()
		if err != nil {
			return nil, err
		}
		key, err := s.store.Put(ctx, storage.UploadPath(sess.UserID, f.Name), r, f.Size, f.ContentType)
		r.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, UploadedFile{Key: key, URL: s.store.PublicURL(key)})
	}

	s.logger.Info("files uploaded",
		zap.String("auth_user_id", sess.UserID.String()),
		zap.Int("count", len(out)),
	)
	return out, nil
}
