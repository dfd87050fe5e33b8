package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pulseboard/internal/authorization"
	obscontext "github.com/smallbiznis/pulseboard/internal/observability/context"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderAdminKey = "X-Admin-Key"

	contextUserIDKey = "user_id"
	contextActorKey  = "actor"

	// maxUserIDLength matches the user_id column width.
	maxUserIDLength = 128
)

// UserContext resolves the calling user from X-User-ID. Login is handled
// upstream; this service trusts the gateway-provided header.
func (s *Server) UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" || len(userID) > maxUserIDLength {
			AbortWithError(c, newFieldError("userId", "invalid_user_id"))
			return
		}

		ctx := obscontext.WithUserID(c.Request.Context(), userID)
		ctx = obscontext.WithActor(ctx, "user", userID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserIDKey, userID)
		c.Set(contextActorKey, authorization.UserActor(userID))
		c.Next()
	}
}

// AdminRequired accepts requests carrying the configured admin key.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := s.cfg.AdminAPIKey
		provided := strings.TrimSpace(c.GetHeader(HeaderAdminKey))
		if expected == "" || provided == "" ||
			subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), "admin", "api_key")
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextActorKey, authorization.AdminActor("api_key"))
		c.Next()
	}
}

func userIDFromContext(c *gin.Context) string {
	return c.GetString(contextUserIDKey)
}
