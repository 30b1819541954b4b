package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware checks for the admin session cookie set by LoginHandler and
// aborts unauthorized requests.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(sessionCookieName)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Missing session token"})
			c.Abort()
			return
		}

		if cookie == s.token {
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid session token"})
		c.Abort()
	}
}
