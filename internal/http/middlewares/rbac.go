package middlewares

import (
	"net/http"

	"github.com/TharinduDesh/incidenthub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole gates a route on the session role. The switch is
// exhaustive over the role enum; anything unknown is denied.
func (m *SessionMiddleware) RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok || role == "" {
			abortUnauthorized(c, "Missing identity context")
			return
		}

		switch role {
		case user.RoleAdmin:
			// admins pass every gate
		case user.RoleUser:
			if required != user.RoleUser {
				forbid(c)
				return
			}
		default:
			forbid(c)
			return
		}

		c.Next()
	}
}

func forbid(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "forbidden",
			"message": "Insufficient role",
		},
	})
}
