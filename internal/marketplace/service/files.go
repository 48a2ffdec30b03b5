package service

import (
	"io"
	"mime/multipart"
)

// maxUploadBytes is the per-file size cap for all image uploads.
const maxUploadBytes = 5 << 20 // 5 MB

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// FileUpload is a pending image upload decoupled from the HTTP layer, so
// services can validate and store files without touching multipart plumbing.
type FileUpload struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// NewFileUpload adapts a parsed multipart file header.
func NewFileUpload(fh *multipart.FileHeader) *FileUpload {
	if fh == nil {
		return nil
	}
	return &FileUpload{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// validateImage rejects files with a disallowed type or size. field names the
// form field for the error message.
func validateImage(field string, f *FileUpload) error {
	if f.Size > maxUploadBytes {
		return validationf(field, "file %q exceeds the %d MB limit", f.Name, maxUploadBytes>>20)
	}
	if !allowedImageTypes[f.ContentType] {
		return validationf(field, "file %q has unsupported type %q; only JPG, PNG and WEBP are accepted", f.Name, f.ContentType)
	}
	return nil
}
