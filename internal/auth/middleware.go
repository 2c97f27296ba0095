package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rohanai/guardian/internal/users"
)

// ContextKeyUser is the key for storing the authenticated user in gin context
const ContextKeyUser = "authUser"

const bearerPrefix = "Bearer "

// RequireAuth rejects requests without a valid bearer token and loads the
// token's subject into the request context.
func RequireAuth(s *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Bearer token required. Include 'Authorization: Bearer <token>' header.",
			})
			return
		}

		subject, err := s.VerifyToken(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
		if err != nil {
			// Expired and malformed tokens get the same response body
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid or expired token",
			})
			return
		}

		u, err := s.lookupUser(c.Request.Context(), subject)
		if err != nil {
			// Token subject no longer resolves to an account
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid or expired token",
			})
			return
		}

		c.Set(ContextKeyUser, u)
		c.Next()
	}
}

// CurrentUser returns the authenticated user from context
func CurrentUser(c *gin.Context) (*users.User, bool) {
	v, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil, false
	}
	u, ok := v.(*users.User)
	return u, ok
}
