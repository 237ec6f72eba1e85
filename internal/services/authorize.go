package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/principal"
	"github.com/go-authgate/identity/internal/store"
	"github.com/go-authgate/identity/internal/token"
	"github.com/go-authgate/identity/internal/util"

	"go.uber.org/zap"
)

// ResponseTypeCode is the only supported response_type.
const ResponseTypeCode = "code"

// LoginPath is where requests without a session are sent.
const LoginPath = "/login"

// AuthorizeRequest holds the query parameters of an authorize request.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string

	// RequestURI is the original request path and query, used as the
	// return URL when the caller has to log in first.
	RequestURI string
}

// Session is the caller's IdP login session. A zero value means no session.
type Session struct {
	UserID   string
	AuthTime time.Time
}

// AuthorizeOutcome tells the HTTP layer where to send the browser.
type AuthorizeOutcome struct {
	// LoginRedirect is set when the caller must log in first.
	LoginRedirect string
	// EndSession is set when the session names a user that was deleted or
	// disabled. The HTTP layer must drop it before redirecting to login.
	EndSession bool
	// RedirectURI is the client callback carrying code and state.
	RedirectURI string
	Code        string
}

// AuthorizeService validates authorize requests and issues codes.
type AuthorizeService struct {
	apps    core.ApplicationStore
	scopes  core.ScopeStore
	users   core.UserStore
	builder *principal.Builder
	issuer  *Issuer
	audit   *AuditService
	metrics core.Recorder
	log     *zap.SugaredLogger
}

func NewAuthorizeService(
	apps core.ApplicationStore,
	scopes core.ScopeStore,
	users core.UserStore,
	builder *principal.Builder,
	issuer *Issuer,
	audit *AuditService,
	m core.Recorder,
	log *zap.SugaredLogger,
) *AuthorizeService {
	return &AuthorizeService{
		apps:    apps,
		scopes:  scopes,
		users:   users,
		builder: builder,
		issuer:  issuer,
		audit:   audit,
		metrics: m,
		log:     log,
	}
}

// Authorize runs the checks in order and stops at the first failure. No
// principal is built and no code is issued unless the client, redirect URI
// and scopes all check out.
func (s *AuthorizeService) Authorize(
	ctx context.Context,
	req AuthorizeRequest,
	session Session,
) (*AuthorizeOutcome, error) {
	out, err := s.authorize(ctx, req, session)
	switch {
	case err != nil:
		s.metrics.RecordAuthorizeRequest("rejected")
		s.audit.Log(ctx, AuditEntry{
			EventType:    models.EventAuthorizeRejected,
			Severity:     models.SeverityWarning,
			ActorUserID:  session.UserID,
			ResourceType: models.ResourceApplication,
			ResourceName: req.ClientID,
			Action:       "Authorize request rejected",
			Details: models.AuditDetails{
				"redirect_uri": req.RedirectURI,
				"scope":        req.Scope,
			},
			Success:      false,
			ErrorMessage: err.Error(),
		})
	case out.LoginRedirect != "":
		s.metrics.RecordAuthorizeRequest("login_required")
	default:
		s.metrics.RecordAuthorizeRequest("success")
	}
	return out, err
}

func (s *AuthorizeService) authorize(
	ctx context.Context,
	req AuthorizeRequest,
	session Session,
) (*AuthorizeOutcome, error) {
	// (a) the request must be OIDC-shaped
	if req.ClientID == "" || req.RedirectURI == "" || req.ResponseType == "" ||
		strings.TrimSpace(req.Scope) == "" {
		return nil, ErrInvalidRequest
	}
	if req.ResponseType != ResponseTypeCode {
		return nil, ErrUnsupportedResponseType
	}

	// (b) login happens elsewhere; come back here afterwards
	if session.UserID == "" {
		return &AuthorizeOutcome{
			LoginRedirect: LoginPath + "?returnUrl=" + url.QueryEscape(req.RequestURI),
		}, nil
	}

	// (c) client and exact redirect URI match
	app, err := s.apps.FindApplicationByClientID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, fmt.Errorf("load client: %w", err)
	}
	if !app.HasRedirectURI(req.RedirectURI) {
		return nil, ErrInvalidRedirectURI
	}
	if !app.HasPermission(models.PermissionEndpointAuthorization) ||
		!app.HasPermission(models.PermissionResponseTypeCode) ||
		!app.HasPermission(models.PermissionGrantAuthorizationCode) {
		return nil, ErrUnauthorizedClient
	}
	if err := checkCodeChallenge(app, req); err != nil {
		return nil, err
	}

	// (d) every requested scope must be registered
	requested := strings.Fields(req.Scope)
	if err := s.checkScopes(ctx, app, requested); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err != nil || !user.IsActive {
		// the session outlived the account; log in again
		return &AuthorizeOutcome{
			LoginRedirect: LoginPath + "?returnUrl=" + url.QueryEscape(req.RequestURI),
			EndSession:    true,
		}, nil
	}

	authTime := session.AuthTime
	if authTime.IsZero() {
		authTime = time.Now()
	}
	p, err := s.builder.Build(principal.IdentityFromUser(user), principal.Request{
		ClientID: app.ClientID,
		Scopes:   requested,
		AuthTime: authTime,
	})
	if err != nil {
		return nil, fmt.Errorf("build principal: %w", err)
	}

	code, err := s.issuer.IssueCode(ctx, p, app, CodeRequest{
		RedirectURI:         req.RedirectURI,
		State:               req.State,
		Nonce:               req.Nonce,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
	})
	if err != nil {
		return nil, err
	}

	// state is not carried by the code; it has to be put back explicitly
	redirect, err := util.AppendQuery(req.RedirectURI, map[string]string{
		"code":  code,
		"state": req.State,
	})
	if err != nil {
		return nil, fmt.Errorf("build redirect: %w", err)
	}

	s.audit.Log(ctx, AuditEntry{
		EventType:    models.EventAuthorizationCodeIssued,
		Severity:     models.SeverityInfo,
		ActorUserID:  user.ID,
		ResourceType: models.ResourceApplication,
		ResourceID:   app.ID,
		ResourceName: app.ClientID,
		Action:       "Authorization code issued",
		Details: models.AuditDetails{
			"scope":        strings.Join(p.Scopes, " "),
			"redirect_uri": req.RedirectURI,
		},
		Success: true,
	})

	return &AuthorizeOutcome{RedirectURI: redirect, Code: code}, nil
}

func checkCodeChallenge(app *models.Application, req AuthorizeRequest) error {
	if req.CodeChallenge == "" {
		if app.RequiresPKCE() {
			return ErrInvalidRequest
		}
		return nil
	}
	if req.CodeChallengeMethod != token.PKCEMethodS256 {
		return ErrInvalidRequest
	}
	return nil
}

// checkScopes accepts the built-in OIDC scopes and any scope that exists in
// the store and the client is permitted to request.
func (s *AuthorizeService) checkScopes(ctx context.Context, app *models.Application, requested []string) error {
	var custom []string
	for _, name := range requested {
		if models.IsStandardScope(name) {
			continue
		}
		if !app.HasScopePermission(name) {
			return ErrInvalidScope
		}
		custom = append(custom, name)
	}
	if len(custom) == 0 {
		return nil
	}

	found, err := s.scopes.FindScopesByNames(ctx, custom)
	if err != nil {
		return fmt.Errorf("load scopes: %w", err)
	}
	known := make(map[string]bool, len(found))
	for _, sc := range found {
		known[sc.Name] = true
	}
	for _, name := range custom {
		if !known[name] {
			return ErrInvalidScope
		}
	}
	return nil
}
