package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aguayolabs/aguayo-api/internal/identity"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/model"
	"github.com/aguayolabs/aguayo-api/internal/marketplace/service"
)

// onboardingSvc is the interface expected by OnboardingHandler, satisfied by
// *service.OnboardingService.
type onboardingSvc interface {
	SelectRole(ctx context.Context, sess *identity.Session, role string) (string, error)
	SubmitPersonal(ctx context.Context, sess *identity.Session, draft string, in service.PersonalInput) (string, error)
	Complete(ctx context.Context, sess *identity.Session, draft string, files service.CompletionFiles) (*model.Profile, error)
	State(ctx context.Context, sess *identity.Session, draft string) (service.Step, error)
}

// OnboardingHandler exposes the signup wizard. Every request carries the
// caller's accumulated draft token; the server holds nothing between steps.
type OnboardingHandler struct {
	onboarding onboardingSvc
	logger     *zap.Logger
}

// NewOnboardingHandler creates an OnboardingHandler.
func NewOnboardingHandler(onboarding onboardingSvc, logger *zap.Logger) *OnboardingHandler {
	return &OnboardingHandler{onboarding: onboarding, logger: logger}
}

// Register mounts the signup routes on the provided router group. The group
// must already enforce a session.
func (h *OnboardingHandler) Register(rg *gin.RouterGroup) {
	signup := rg.Group("/signup")
	{
		signup.POST("/role", h.SelectRole)
		signup.POST("/personal", h.SubmitPersonal)
		signup.POST("/complete", h.Complete)
		signup.GET("/state", h.State)
	}
}

type selectRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type submitPersonalRequest struct {
	Draft       string   `json:"draft" binding:"required"`
	FullName    string   `json:"full_name"`
	BirthDate   string   `json:"birth_date"`
	PhoneNumber string   `json:"phone_number"`
	Location    string   `json:"location"`
	Bio         string   `json:"bio"`
	ServiceIDs  []string `json:"service_ids"`
}

// SelectRole handles POST /signup/role — the first wizard step. Re-posting
// restarts the wizard: the returned draft carries only the new role.
func (h *OnboardingHandler) SelectRole(c *gin.Context) {
	sess := identity.SessionFromCtx(c)

	var req selectRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft, err := h.onboarding.SelectRole(c.Request.Context(), sess, req.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"draft": draft, "step": string(service.StepPersonal)})
}

// SubmitPersonal handles POST /signup/personal — the second wizard step.
func (h *OnboardingHandler) SubmitPersonal(c *gin.Context) {
	sess := identity.SessionFromCtx(c)

	var req submitPersonalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft, err := h.onboarding.SubmitPersonal(c.Request.Context(), sess, req.Draft, service.PersonalInput{
		FullName:    req.FullName,
		BirthDate:   req.BirthDate,
		PhoneNumber: req.PhoneNumber,
		Location:    req.Location,
		Bio:         req.Bio,
		ServiceIDs:  req.ServiceIDs,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"draft": draft, "step": string(service.StepDocuments)})
}

// Complete handles POST /signup/complete — the terminal multipart submission
// carrying the draft plus the captured files.
func (h *OnboardingHandler) Complete(c *gin.Context) {
	sess := identity.SessionFromCtx(c)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required: " + err.Error()})
		return
	}

	draft := c.PostForm("draft")
	files := service.CompletionFiles{}
	if fh := firstFile(form, "profile_image"); fh != nil {
		files.ProfileImage = service.NewFileUpload(fh)
	}
	if fh := firstFile(form, "id_front"); fh != nil {
		files.IDFront = service.NewFileUpload(fh)
	}
	if fh := firstFile(form, "id_back"); fh != nil {
		files.IDBack = service.NewFileUpload(fh)
	}
	for _, fh := range form.File["gallery"] {
		files.Gallery = append(files.Gallery, service.NewFileUpload(fh))
	}

	p, err := h.onboarding.Complete(c.Request.Context(), sess, draft, files)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	RecordProfileCreated(string(p.Role))
	c.JSON(http.StatusCreated, gin.H{"profile": p})
}

// State handles GET /signup/state?draft= — tells the wizard entry point
// which step the caller should resume on.
func (h *OnboardingHandler) State(c *gin.Context) {
	sess := identity.SessionFromCtx(c)

	step, err := h.onboarding.State(c.Request.Context(), sess, c.Query("draft"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"step":        string(step),
		"has_profile": sess.HasProfile,
	})
}
