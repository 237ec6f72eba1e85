package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-authgate/identity/internal/services"
	"github.com/go-authgate/identity/internal/token"
	"github.com/go-authgate/identity/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys of the IdP login cookie
const (
	SessionUserID   = "user_id"
	SessionUsername = "username"
	SessionAuthTime = "auth_time"
)

const contextAccessClaims = "access_claims"

// SessionUser exposes the signed-in username to audit logging.
func SessionUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if username, ok := sessions.Default(c).Get(SessionUsername).(string); ok && username != "" {
			c.Set(util.GinUsernameKey, username)
			c.Request = c.Request.WithContext(
				util.SetUsernameContext(c.Request.Context(), username),
			)
		}
		c.Next()
	}
}

// CurrentSession reads the login session. A missing or malformed cookie
// yields the zero Session.
func CurrentSession(c *gin.Context) services.Session {
	session := sessions.Default(c)
	userID, _ := session.Get(SessionUserID).(string)
	if userID == "" {
		return services.Session{}
	}

	var authTime time.Time
	if unix, ok := session.Get(SessionAuthTime).(int64); ok {
		authTime = time.Unix(unix, 0)
	}
	return services.Session{UserID: userID, AuthTime: authTime}
}

// BearerToken returns the token of an "Authorization: Bearer" header. The
// scheme is matched case-insensitively.
func BearerToken(c *gin.Context) (string, bool) {
	scheme, raw, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// RequireBearer rejects requests without a valid access token and stores the
// validated claims for the handler.
func RequireBearer(ts *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c)
		if !ok {
			c.Header("WWW-Authenticate", `Bearer realm="identity"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "invalid_request",
				"error_description": "Bearer token required",
			})
			return
		}

		claims, err := ts.ValidateAccessToken(c.Request.Context(), raw)
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer realm="identity", error="invalid_token"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "invalid_token",
				"error_description": "The access token is invalid or expired",
			})
			return
		}

		c.Set(contextAccessClaims, claims)
		c.Next()
	}
}

// GetAccessClaims returns the claims stored by RequireBearer.
func GetAccessClaims(c *gin.Context) (*token.AccessClaims, bool) {
	v, ok := c.Get(contextAccessClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*token.AccessClaims)
	return claims, ok
}
