package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-authgate/identity/internal/middleware"
	"github.com/go-authgate/identity/internal/services"
	"github.com/go-authgate/identity/internal/templates"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OAuthHandler serves the authorize, token and revocation endpoints.
type OAuthHandler struct {
	authorize *services.AuthorizeService
	tokens    *services.TokenService
	log       *zap.SugaredLogger
}

func NewOAuthHandler(
	as *services.AuthorizeService,
	ts *services.TokenService,
	log *zap.SugaredLogger,
) *OAuthHandler {
	return &OAuthHandler{authorize: as, tokens: ts, log: log}
}

// Authorize godoc
//
//	@Summary		Authorization endpoint
//	@Description	Authorization code request with PKCE (RFC 6749 4.1, RFC 7636). Browsers without a login session go to the login page first.
//	@Tags			OAuth
//	@Produce		html
//	@Param			client_id				query		string	true	"OAuth client ID"
//	@Param			redirect_uri			query		string	true	"Registered redirect URI"
//	@Param			response_type			query		string	true	"Must be 'code'"
//	@Param			scope					query		string	true	"Space separated scopes"
//	@Param			state					query		string	false	"Opaque value echoed back to the client"
//	@Param			nonce					query		string	false	"Copied into the ID token"
//	@Param			code_challenge			query		string	true	"PKCE code challenge"
//	@Param			code_challenge_method	query		string	true	"Must be 'S256'"
//	@Success		302						{string}	string	"Redirect to the client with code and state, or to the login page"
//	@Failure		400						{string}	string	"Error page for a rejected request"
//	@Router			/connect/authorize [get]
//
// Browsers without a login session go to the login page first. Every
// rejected request ends on an error page so nothing is ever sent to a
// redirect URI that has not been checked.
func (h *OAuthHandler) Authorize(c *gin.Context) {
	req := services.AuthorizeRequest{
		ClientID:            c.Query("client_id"),
		RedirectURI:         c.Query("redirect_uri"),
		ResponseType:        c.Query("response_type"),
		Scope:               c.Query("scope"),
		State:               c.Query("state"),
		Nonce:               c.Query("nonce"),
		CodeChallenge:       c.Query("code_challenge"),
		CodeChallengeMethod: c.Query("code_challenge_method"),
		RequestURI:          c.Request.URL.RequestURI(),
	}

	out, err := h.authorize.Authorize(c.Request.Context(), req, middleware.CurrentSession(c))
	if err != nil {
		status, title, message := authorizeError(err)
		if status == http.StatusInternalServerError {
			h.log.Errorw("authorize failed", "client_id", req.ClientID, "error", err)
		}
		templates.RenderError(c, status, title, message)
		return
	}

	if out.EndSession {
		clearSession(c, h.log)
	}
	if out.LoginRedirect != "" {
		c.Redirect(http.StatusFound, out.LoginRedirect)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, out.RedirectURI)
}

func authorizeError(err error) (int, string, string) {
	switch {
	case errors.Is(err, services.ErrInvalidClient):
		return http.StatusBadRequest, "Unknown client", "The application is not registered."
	case errors.Is(err, services.ErrInvalidRedirectURI):
		return http.StatusBadRequest, "Invalid redirect URI",
			"The redirect URI is not registered for this application."
	case errors.Is(err, services.ErrUnsupportedResponseType):
		return http.StatusBadRequest, "unsupported_response_type",
			"Only the authorization code flow is supported."
	case errors.Is(err, services.ErrInvalidScope):
		return http.StatusBadRequest, "invalid_scope",
			"The application is not allowed to request this scope."
	case errors.Is(err, services.ErrUnauthorizedClient):
		return http.StatusBadRequest, "unauthorized_client",
			"The application may not use the authorization code flow."
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request",
			"The request is missing a required parameter or uses an unsupported PKCE method."
	default:
		return http.StatusInternalServerError, "server_error", "The request could not be processed."
	}
}

// Token godoc
//
//	@Summary		Request tokens
//	@Description	Exchange an authorization code or a refresh token for tokens (RFC 6749). Clients authenticate with client_secret_basic or client_secret_post.
//	@Tags			OAuth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string					true	"'authorization_code' or 'refresh_token'"
//	@Param			client_id		formData	string					false	"OAuth client ID (when not using HTTP Basic)"
//	@Param			client_secret	formData	string					false	"Client secret (confidential clients without HTTP Basic)"
//	@Param			code			formData	string					false	"Authorization code (grant_type=authorization_code)"
//	@Param			redirect_uri	formData	string					false	"Redirect URI used at /connect/authorize"
//	@Param			code_verifier	formData	string					false	"PKCE code verifier"
//	@Param			refresh_token	formData	string					false	"Refresh token (grant_type=refresh_token)"
//	@Param			scope			formData	string					false	"Narrower scope for the new access token"
//	@Success		200				{object}	services.TokenResponse	"Tokens issued"
//	@Failure		400				{object}	oauthError				"invalid_request, invalid_grant, invalid_scope, unsupported_grant_type"
//	@Failure		401				{object}	oauthError				"invalid_client"
//	@Failure		429				{object}	oauthError				"Rate limit exceeded"
//	@Router			/connect/token [post]
func (h *OAuthHandler) Token(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")

	clientID, clientSecret, basic := clientCredentials(c)
	req := &services.GrantRequest{
		GrantType:    c.PostForm("grant_type"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Code:         c.PostForm("code"),
		RedirectURI:  c.PostForm("redirect_uri"),
		CodeVerifier: c.PostForm("code_verifier"),
		RefreshToken: c.PostForm("refresh_token"),
		Scope:        c.PostForm("scope"),
	}

	resp, err := h.tokens.Exchange(c.Request.Context(), req)
	if err != nil {
		h.writeTokenError(c, err, basic)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Revoke godoc
//
//	@Summary		Revoke token
//	@Description	Revoke a refresh token and the authorization behind it (RFC 7009). The response is 200 for any token, known or not, once the client itself checks out.
//	@Tags			OAuth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string		true	"Token to revoke"
//	@Param			client_id		formData	string		false	"OAuth client ID (when not using HTTP Basic)"
//	@Param			client_secret	formData	string		false	"Client secret"
//	@Success		200				{string}	string		"Token revoked (or unknown)"
//	@Failure		400				{object}	oauthError	"invalid_request, unauthorized_client"
//	@Failure		401				{object}	oauthError	"invalid_client"
//	@Router			/connect/revoke [post]
func (h *OAuthHandler) Revoke(c *gin.Context) {
	clientID, clientSecret, basic := clientCredentials(c)

	err := h.tokens.Revoke(c.Request.Context(), c.PostForm("token"), clientID, clientSecret)
	if err != nil {
		h.writeTokenError(c, err, basic)
		return
	}
	c.Status(http.StatusOK)
}

// clientCredentials reads client_secret_basic first and falls back to the
// form. The boolean reports whether the Authorization header was used.
func clientCredentials(c *gin.Context) (string, string, bool) {
	if id, secret, ok := c.Request.BasicAuth(); ok {
		// RFC 6749 2.3.1: both parts are form-urlencoded
		if decoded, err := url.QueryUnescape(id); err == nil {
			id = decoded
		}
		if decoded, err := url.QueryUnescape(secret); err == nil {
			secret = decoded
		}
		return id, secret, true
	}
	return c.PostForm("client_id"), c.PostForm("client_secret"), false
}

type oauthError struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (h *OAuthHandler) writeTokenError(c *gin.Context, err error, basic bool) {
	status, body := tokenError(err)
	switch {
	case status == http.StatusInternalServerError:
		h.log.Errorw("token endpoint failed", "error", err)
	case body.Error == "invalid_client" && basic:
		status = http.StatusUnauthorized
		c.Header("WWW-Authenticate", `Basic realm="identity"`)
	}
	c.JSON(status, body)
}

// tokenError maps service errors onto RFC 6749 5.2 responses. Every failed
// security check collapses into one invalid_grant answer.
func tokenError(err error) (int, oauthError) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, oauthError{
			Error:       "invalid_grant",
			Description: "The grant is invalid, expired or revoked",
		}
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest, oauthError{
			Error:       "invalid_request",
			Description: "The request is missing a required parameter",
		}
	case errors.Is(err, services.ErrUnsupportedGrantType):
		return http.StatusBadRequest, oauthError{Error: "unsupported_grant_type"}
	case errors.Is(err, services.ErrInvalidClient):
		return http.StatusBadRequest, oauthError{
			Error:       "invalid_client",
			Description: "Client authentication failed",
		}
	case errors.Is(err, services.ErrUnauthorizedClient):
		return http.StatusBadRequest, oauthError{Error: "unauthorized_client"}
	case errors.Is(err, services.ErrInvalidScope):
		return http.StatusBadRequest, oauthError{Error: "invalid_scope"}
	default:
		return http.StatusInternalServerError, oauthError{Error: "server_error"}
	}
}
