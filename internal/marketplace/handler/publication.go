package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aguayolabs/aguayo-api/internal/identity"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/model"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/repository"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/service"
)

// publicationSvc is the interface expected by PublicationHandler, satisfied
// by *service.PublicationService.
type publicationSvc interface {
	Create(ctx context.Context, sess *identity.Session, in service.PublicationInput) (*model.Publication, error)
	List(ctx context.Context, f repository.PublicationFilter) ([]*model.Publication, error)
	Delete(ctx context.Context, sess *identity.Session, id uuid.UUID) error
}

// PublicationHandler exposes provider listings. Browsing is public; creating
// and deleting require a provider session.
type PublicationHandler struct {
	pubs   publicationSvc
	logger *zap.Logger
}

// NewPublicationHandler creates a PublicationHandler.
func NewPublicationHandler(pubs publicationSvc, logger *zap.Logger) *PublicationHandler {
	return &PublicationHandler{pubs: pubs, logger: logger}
}

// Register mounts the authenticated publication routes.
func (h *PublicationHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/publications", h.Create)
	rg.DELETE("/publications/:id", h.Delete)
}

// RegisterPublic mounts the public browse route.
func (h *PublicationHandler) RegisterPublic(rg *gin.RouterGroup) {
	rg.GET("/publications", h.List)
}

type createPublicationRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ServiceID   string   `json:"service_id"`
	Price       *float64 `json:"price"`
	PriceType   string   `json:"price_type"`
	Images      []string `json:"images"`
}

// Create handles POST /publications.
func (h *PublicationHandler) Create(c *gin.Context) {
	sess := identity.SessionFromCtx(c)

	var req createPublicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.pubs.Create(c.Request.Context(), sess, service.PublicationInput{
		Title:       req.Title,
		Description: req.Description,
		ServiceID:   req.ServiceID,
		Price:       req.Price,
		PriceType:   req.PriceType,
		Images:      req.Images,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"publication": p})
}

// List handles GET /publications with optional filters provider_id,
// include_inactive and include_deleted. Results are newest first.
func (h *PublicationHandler) List(c *gin.Context) {
	var f repository.PublicationFilter

	if raw := c.Query("provider_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid provider_id"})
			return
		}
		f.ProviderID = &id
	}
	f.IncludeInactive, _ = strconv.ParseBool(c.Query("include_inactive"))
	f.IncludeDeleted, _ = strconv.ParseBool(c.Query("include_deleted"))

	pubs, err := h.pubs.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if pubs == nil {
		pubs = []*model.Publication{}
	}
	c.JSON(http.StatusOK, gin.H{"publications": pubs})
}

// Delete handles DELETE /publications/:id — owner-only soft delete.
func (h *PublicationHandler) Delete(c *gin.Context) {
	sess := identity.SessionFromCtx(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid publication ID"})
		return
	}

	if err := h.pubs.Delete(c.Request.Context(), sess, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "publication deleted"})
}
