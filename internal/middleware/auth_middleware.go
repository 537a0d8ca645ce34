package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"buggydispatch/internal/models"
	"buggydispatch/internal/services"
	"buggydispatch/internal/utils"
)

// AuthRequired validates the bearer token and sets user context. For drivers
// it additionally checks the token's session ID against the session store, so
// a logout (or an eviction by a concurrent login) kills the old token even
// before it expires.
func AuthRequired(secret string, sessions services.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, secret)
		if err != nil {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		if claims.Role == string(models.UserRoleDriver) {
			current, err := sessions.Get(c.Request.Context(), claims.UserID)
			if err != nil || current != claims.SessionID {
				utils.UnauthorizedResponse(c)
				c.Abort()
				return
			}
		}

		c.Set("user_id", claims.UserID)
		c.Set("hotel_id", claims.HotelID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// AdminRequired ensures the authenticated user is a hotel admin.
func AdminRequired() gin.HandlerFunc {
	return requireRole(models.UserRoleAdmin)
}

// DriverRequired ensures the authenticated user is a driver.
func DriverRequired() gin.HandlerFunc {
	return requireRole(models.UserRoleDriver)
}

func requireRole(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("role")
		if !exists {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		roleStr, ok := value.(string)
		if !ok || roleStr != string(role) {
			utils.ForbiddenResponse(c)
			c.Abort()
			return
		}

		c.Next()
	}
}
