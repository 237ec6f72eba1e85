package handlers

import (
	"net/http"
	"strings"

	"github.com/go-authgate/identity/internal/middleware"
	"github.com/go-authgate/identity/internal/services"
	"github.com/go-authgate/identity/internal/token"

	"github.com/gin-gonic/gin"
)

// OIDCHandler handles OIDC Discovery and UserInfo endpoints.
type OIDCHandler struct {
	tokenService *services.TokenService
	baseURL      string
	scopes       []string
}

// NewOIDCHandler creates a new OIDCHandler. scopes is the list advertised
// in the discovery document.
func NewOIDCHandler(ts *services.TokenService, baseURL string, scopes []string) *OIDCHandler {
	return &OIDCHandler{
		tokenService: ts,
		baseURL:      strings.TrimRight(baseURL, "/"),
		scopes:       scopes,
	}
}

// discoveryMetadata holds the OIDC Provider Metadata returned by the discovery endpoint.
type discoveryMetadata struct {
	Issuer                           string   `json:"issuer"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	UserinfoEndpoint                 string   `json:"userinfo_endpoint"`
	RevocationEndpoint               string   `json:"revocation_endpoint"`
	EndSessionEndpoint               string   `json:"end_session_endpoint"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported                  []string `json:"scopes_supported"`
	TokenEndpointAuthMethods         []string `json:"token_endpoint_auth_methods_supported"`
	GrantTypesSupported              []string `json:"grant_types_supported"`
	ClaimsSupported                  []string `json:"claims_supported"`
	CodeChallengeMethodsSupported    []string `json:"code_challenge_methods_supported"`
}

// Discovery godoc
//
//	@Summary		OIDC Discovery
//	@Description	OpenID Connect Provider Metadata (OIDC Discovery 1.0)
//	@Tags			OIDC
//	@Produce		json
//	@Success		200	{object}	discoveryMetadata	"Provider metadata"
//	@Router			/.well-known/openid-configuration [get]
func (h *OIDCHandler) Discovery(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, discoveryMetadata{
		Issuer:                           h.baseURL,
		AuthorizationEndpoint:            h.baseURL + "/connect/authorize",
		TokenEndpoint:                    h.baseURL + "/connect/token",
		UserinfoEndpoint:                 h.baseURL + "/connect/userinfo",
		RevocationEndpoint:               h.baseURL + "/connect/revoke",
		EndSessionEndpoint:               h.baseURL + "/logout",
		ResponseTypesSupported:           []string{services.ResponseTypeCode},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{"HS256"},
		ScopesSupported:                  h.scopes,
		TokenEndpointAuthMethods:         []string{"none", "client_secret_basic", "client_secret_post"},
		GrantTypesSupported: []string{
			services.GrantTypeAuthorizationCode,
			services.GrantTypeRefreshToken,
		},
		ClaimsSupported: []string{
			"sub", "iss", "aud", "exp", "iat", "auth_time", "nonce",
			"name", "email", "role",
		},
		CodeChallengeMethodsSupported: []string{token.PKCEMethodS256},
	})
}

// UserInfo godoc
//
//	@Summary		UserInfo Endpoint
//	@Description	Returns claims about the authenticated end-user (OIDC Core 1.0 5.3). Supports both GET and POST.
//	@Tags			OIDC
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Authorization	header		string				true	"Bearer token"
//	@Success		200				{object}	services.UserInfo	"User claims"
//	@Failure		401				{object}	oauthError			"invalid_token"
//	@Router			/connect/userinfo [get]
//	@Router			/connect/userinfo [post]
func (h *OIDCHandler) UserInfo(c *gin.Context) {
	claims, ok := middleware.GetAccessClaims(c)
	if !ok {
		c.Header("WWW-Authenticate", `Bearer realm="identity", error="invalid_token"`)
		c.JSON(http.StatusUnauthorized, oauthError{Error: "invalid_token"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, h.tokenService.UserInfo(claims))
}
