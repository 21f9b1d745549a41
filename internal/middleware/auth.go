package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/utils"
	"github.com/lucasfalb/aijarvis-system/pkg/logger"
	"github.com/lucasfalb/aijarvis-system/pkg/response"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

// UserSyncer mirrors the verified identity into the local users table.
type UserSyncer interface {
	SyncUser(ctx context.Context, claims *utils.Claims) error
}

// AuthRequired verifies the bearer token issued by the auth service and
// stores the caller's identity in the context. When sync is non-nil the
// user row is upserted before the handler runs.
func AuthRequired(sync UserSyncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		if sync != nil {
			if err := sync.SyncUser(c.Request.Context(), claims); err != nil {
				logger.Error().Err(err).Str("user_id", claims.UserID()).Msg("failed to sync user")
				response.ServerError(c, "Internal Server Error")
				c.Abort()
				return
			}
		}

		c.Set(ContextUserID, claims.UserID())
		c.Set(ContextEmail, claims.Email)

		c.Next()
	}
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// GetEmail gets the current user email from context
func GetEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}
