package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aguayolabs/aguayo-api/internal/identity"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/service"
)

// uploadSvc is the interface expected by UploadHandler, satisfied by
// *service.UploadService.
type uploadSvc interface {
	Upload(ctx context.Context, sess *identity.Session, files []*service.FileUpload) ([]service.UploadedFile, error)
}

// UploadHandler accepts standalone image uploads for publications.
type UploadHandler struct {
	uploads uploadSvc
	logger  *zap.Logger
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(uploads uploadSvc, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, logger: logger}
}

// Register mounts the upload route on the provided router group. The group
// must already enforce a session.
func (h *UploadHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/uploads", h.Upload)
}

// Upload handles POST /uploads — a multipart batch under the "files" field.
func (h *UploadHandler) Upload(c *gin.Context) {
	sess := identity.SessionFromCtx(c)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required: " + err.Error()})
		return
	}

	var files []*service.FileUpload
	for _, fh := range form.File["files"] {
		files = append(files, service.NewFileUpload(fh))
	}

	uploaded, err := h.uploads.Upload(c.Request.Context(), sess, files)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	for range uploaded {
		RecordUpload()
	}
	c.JSON(http.StatusCreated, gin.H{"files": uploaded})
}
