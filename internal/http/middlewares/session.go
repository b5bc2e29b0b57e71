package middlewares

import (
	"net/http"

	"github.com/TharinduDesh/incidenthub/internal/auth"
	"github.com/TharinduDesh/incidenthub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifySessionToken(token string) (*auth.Claims, error)
}

// SessionMiddleware is the guard in front of protected routes. It
// reads the session cookie, verifies it, and attaches identity to the
// request context. Missing, invalid and expired tokens are all a 401:
// a verification failure is the client's problem, never a server
// error.
type SessionMiddleware struct {
	jwt        TokenVerifier
	cookieName string
}

func NewSessionMiddleware(jwt TokenVerifier, cookieName string) *SessionMiddleware {
	return &SessionMiddleware{jwt: jwt, cookieName: cookieName}
}

func (m *SessionMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(m.cookieName)
		if err != nil || raw == "" {
			abortUnauthorized(c, "Missing session token")
			return
		}

		claims, err := m.jwt.VerifySessionToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired session token")
			return
		}

		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxEmailKey, claims.Email)
		c.Set(ctxRoleKey, claims.Role)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

// Helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func EmailFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxEmailKey)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}

func RoleFromContext(c *gin.Context) (user.Role, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return "", false
	}
	raw, ok := v.(string)
	if !ok {
		return "", false
	}
	return user.Role(raw), true
}
