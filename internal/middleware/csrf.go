package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-authgate/identity/internal/templates"
	"github.com/go-authgate/identity/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	csrfTokenKey    = "csrf_token"
	csrfFormField   = "csrf_token"
	csrfHeaderField = "X-CSRF-Token"
)

// CSRFMiddleware protects the login form. The token lives in the session
// and must be echoed back on every state-changing request.
func CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		token, _ := session.Get(csrfTokenKey).(string)
		if token == "" {
			var err error
			if token, err = util.RandomURLString(32); err != nil {
				templates.RenderError(c, http.StatusInternalServerError,
					"Internal error", "Failed to generate CSRF token")
				c.Abort()
				return
			}
			session.Set(csrfTokenKey, token)
			if err := session.Save(); err != nil {
				templates.RenderError(c, http.StatusInternalServerError,
					"Internal error", "Failed to save session")
				c.Abort()
				return
			}
		}

		// Make token available to templates
		c.Set(csrfTokenKey, token)

		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
			submitted := c.PostForm(csrfFormField)
			if submitted == "" {
				submitted = c.GetHeader(csrfHeaderField)
			}
			if subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
				templates.RenderError(c, http.StatusForbidden, "Request rejected",
					"CSRF token validation failed. Please refresh the page and try again.")
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

// GetCSRFToken retrieves the CSRF token from the context
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(csrfTokenKey)
}
