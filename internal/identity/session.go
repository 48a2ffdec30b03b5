package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ctxSession = "aguayo_session"

// ProfileRef is the slice of a marketplace profile the session layer needs.
type ProfileRef struct {
	ID   uuid.UUID
	Role string
}

// ProfileLookup resolves the profile attached to an authenticated user.
// Implementations return (nil, nil) when the user has no profile yet.
type ProfileLookup interface {
	LookupProfile(ctx context.Context, authUserID uuid.UUID) (*ProfileRef, error)
}

// Session is the augmented per-request identity: the verified token claims
// enriched with the caller's marketplace profile state. It is built once per
// request by RequireSession and passed to handlers through the gin context.
type Session struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
	HasProfile  bool
	Role        string    // empty until a profile exists
	ProfileID   uuid.UUID // zero until a profile exists
}

// RequireSession returns a gin middleware that enforces a valid session
// Bearer token and augments it with profile state from the given lookup.
//
// The augmentation is read-only: every request re-reads the profile, so a
// session issued before onboarding observes HasProfile flip to true on the
// first request after the profile is created.
func RequireSession(tokens *TokenIssuer, profiles ProfileLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer session token required",
			})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid session token: " + err.Error(),
			})
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid user ID in session token",
			})
			return
		}

		sess := &Session{
			UserID:      userID,
			Email:       claims.Email,
			DisplayName: claims.DisplayName,
		}

		ref, err := profiles.LookupProfile(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "session lookup failed: " + err.Error(),
			})
			return
		}
		if ref != nil {
			sess.HasProfile = true
			sess.Role = ref.Role
			sess.ProfileID = ref.ID
		}

		c.Set(ctxSession, sess)
		c.Next()
	}
}

// SessionFromCtx retrieves the session injected by RequireSession.
// Returns nil if the request carries no session.
func SessionFromCtx(c *gin.Context) *Session {
	v, _ := c.Get(ctxSession)
	sess, _ := v.(*Session)
	return sess
}
