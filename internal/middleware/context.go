package middleware

import (
	"github.com/go-authgate/identity/internal/util"

	"github.com/gin-gonic/gin"
)

// IPMiddleware copies the client IP into the request context so services
// below the HTTP layer can record it without depending on gin.
func IPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Gin's ClientIP() handles X-Forwarded-For and other headers
		ip := c.ClientIP()
		c.Request = c.Request.WithContext(util.SetIPContext(c.Request.Context(), ip))
		c.Next()
	}
}
