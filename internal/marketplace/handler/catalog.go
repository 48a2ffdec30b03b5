package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aguayolabs/aguayo-api/internal/marketplace/model"
)

// catalogSvc is the interface expected by CatalogHandler, satisfied by
// *repository.ServiceRepository.
type catalogSvc interface {
	List(ctx context.Context) ([]model.Service, error)
}

// CatalogHandler serves the public service catalog.
type CatalogHandler struct {
	catalog catalogSvc
	logger  *zap.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(catalog catalogSvc, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// Register mounts the catalog route on the provided router group.
func (h *CatalogHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/services", h.List)
}

// List handles GET /services.
func (h *CatalogHandler) List(c *gin.Context) {
	services, err := h.catalog.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}
