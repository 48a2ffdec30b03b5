package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aguayolabs/aguayo-api/internal/identity"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/model"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/service"
)

// profileSvc is the interface expected by ProfileHandler, satisfied by
// *service.ProfileService.
type profileSvc interface {
	Get(ctx context.Context, authUserID uuid.UUID) (*model.Profile, error)
	Update(ctx context.Context, sess *identity.Session, in service.ProfileUpdateInput) (*model.Profile, error)
}

// ProfileHandler exposes profile reads and edits. Both are owner-only:
// profiles are addressed by the owning auth user ID and a caller may only
// touch their own.
type ProfileHandler struct {
	profiles profileSvc
	logger   *zap.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(profiles profileSvc, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// Register mounts the profile routes on the provided router group. The group
// must already enforce a session.
func (h *ProfileHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/profiles/:authUserID", h.Get)
	rg.PUT("/profiles/:authUserID", h.Update)
}

// Get handles GET /profiles/:authUserID.
func (h *ProfileHandler) Get(c *gin.Context) {
	sess := identity.SessionFromCtx(c)

	authUserID, err := uuid.Parse(c.Param("authUserID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}
	if authUserID != sess.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	p, err := h.profiles.Get(c.Request.Context(), authUserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

// Update handles PUT /profiles/:authUserID — a multipart partial update.
// Text fields replace only when present, new files replace their singleton
// references, gallery files append, and service_ids (when present) replaces
// the offered service set.
func (h *ProfileHandler) Update(c *gin.Context) {
	sess := identity.SessionFromCtx(c)

	authUserID, err := uuid.Parse(c.Param("authUserID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}
	if authUserID != sess.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required: " + err.Error()})
		return
	}

	in := service.ProfileUpdateInput{
		FullName:    c.PostForm("full_name"),
		BirthDate:   c.PostForm("birth_date"),
		PhoneNumber: c.PostForm("phone_number"),
		Location:    c.PostForm("location"),
	}
	// Bio is a pointer so an explicit empty value clears it while an absent
	// field leaves it alone. Same for service_ids and the full service set.
	if bio, ok := c.GetPostForm("bio"); ok {
		in.Bio = &bio
	}
	if ids, ok := form.Value["service_ids"]; ok {
		in.ServiceIDs = ids
	}

	if fh := firstFile(form, "profile_image"); fh != nil {
		in.ProfileImage = service.NewFileUpload(fh)
	}
	if fh := firstFile(form, "id_front"); fh != nil {
		in.IDFront = service.NewFileUpload(fh)
	}
	if fh := firstFile(form, "id_back"); fh != nil {
		in.IDBack = service.NewFileUpload(fh)
	}
	for _, fh := range form.File["gallery"] {
		in.Gallery = append(in.Gallery, service.NewFileUpload(fh))
	}

	p, err := h.profiles.Update(c.Request.Context(), sess, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}
