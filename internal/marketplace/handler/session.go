package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aguayolabs/aguayo-api/internal/identity"
)

// SessionHandler exposes the augmented session view: the verified identity
// plus the caller's marketplace profile state. Frontends poll this after
// login and after onboarding to decide where to route the user.
type SessionHandler struct{}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Register mounts the session route on the provided router group. The group
// must already enforce a session.
func (h *SessionHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/session", h.Get)
}

// Get handles GET /session.
func (h *SessionHandler) Get(c *gin.Context) {
	sess := identity.SessionFromCtx(c)

	resp := gin.H{
		"user_id":      sess.UserID,
		"email":        sess.Email,
		"display_name": sess.DisplayName,
		"has_profile":  sess.HasProfile,
	}
	if sess.HasProfile {
		resp["role"] = sess.Role
		resp["profile_id"] = sess.ProfileID
	}
	c.JSON(http.StatusOK, resp)
}
