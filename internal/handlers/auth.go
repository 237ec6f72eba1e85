package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/middleware"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/services"
	"github.com/go-authgate/identity/internal/templates"
	"github.com/go-authgate/identity/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultLandingPath = "/"

// AuthHandler owns the IdP login session: the login form, logout and the
// signed-in landing page.
type AuthHandler struct {
	userService *services.UserService
	apps        core.ApplicationStore
	baseURL     string
	appName     string
	log         *zap.SugaredLogger
}

func NewAuthHandler(
	us *services.UserService,
	apps core.ApplicationStore,
	baseURL, appName string,
	log *zap.SugaredLogger,
) *AuthHandler {
	return &AuthHandler{
		userService: us,
		apps:        apps,
		baseURL:     baseURL,
		appName:     appName,
		log:         log,
	}
}

// safeReturnURL drops anything that would leave this host.
func (h *AuthHandler) safeReturnURL(raw string) string {
	if raw == "" || !util.IsRedirectSafe(raw, h.baseURL) {
		return ""
	}
	return raw
}

// activeSession returns the signed-in user, or nil when there is no session.
// A session whose user was deleted or disabled is signed out here; the CSRF
// token stays so the form rendered by this request still posts.
func (h *AuthHandler) activeSession(c *gin.Context) *models.User {
	userID := middleware.CurrentSession(c).UserID
	if userID == "" {
		return nil
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, services.ErrUserNotFound) {
		h.log.Errorw("load session user", "user_id", userID, "error", err)
		return nil
	}
	if err != nil || !user.IsActive {
		h.log.Infow("dropping session of unavailable user", "user_id", userID)
		endLogin(c, h.log)
		return nil
	}
	return user
}

// LoginPage renders the login form. A caller that is already signed in is
// sent straight on to the return URL.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	returnURL := h.safeReturnURL(c.Query("returnUrl"))

	if returnURL != "" && h.activeSession(c) != nil {
		c.Redirect(http.StatusFound, returnURL)
		return
	}

	templates.RenderTempl(c, http.StatusOK, templates.LoginPage(templates.LoginPageProps{
		BaseProps: h.baseProps(c),
		ReturnURL: returnURL,
	}))
}

// Login checks the submitted credentials and starts a new session.
func (h *AuthHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	returnURL := h.safeReturnURL(c.PostForm("returnUrl"))

	user, err := h.userService.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		status, message := http.StatusUnauthorized, "Invalid username or password"
		if !errors.Is(err, services.ErrInvalidCredentials) {
			status, message = http.StatusInternalServerError, "Sign in is unavailable, please try again later"
		}
		templates.RenderTempl(c, status, templates.LoginPage(templates.LoginPageProps{
			BaseProps: h.baseProps(c),
			Error:     message,
			Username:  username,
			ReturnURL: returnURL,
		}))
		return
	}

	// a fresh session on every login
	session := sessions.Default(c)
	session.Clear()
	session.Set(middleware.SessionUserID, user.ID)
	session.Set(middleware.SessionUsername, user.Username)
	session.Set(middleware.SessionAuthTime, time.Now().Unix())
	if err := session.Save(); err != nil {
		h.log.Errorw("save session", "user_id", user.ID, "error", err)
		templates.RenderError(c, http.StatusInternalServerError,
			"Internal error", "Failed to save session")
		return
	}

	if returnURL == "" {
		returnURL = defaultLandingPath
	}
	c.Redirect(http.StatusFound, returnURL)
}

// LogoutPage handles GET /logout. Signing out changes state, so a signed-in
// browser gets a confirmation form; without a session there is nothing to
// end and the post-logout redirect happens straight away.
func (h *AuthHandler) LogoutPage(c *gin.Context) {
	params := logoutParams{
		clientID:    c.Query("client_id"),
		redirectURI: c.Query("post_logout_redirect_uri"),
		state:       c.Query("state"),
	}

	user := h.activeSession(c)
	if user == nil {
		h.finishLogout(c, params)
		return
	}

	templates.RenderTempl(c, http.StatusOK, templates.LogoutPage(templates.LogoutPageProps{
		BaseProps:             h.baseProps(c),
		Username:              user.Username,
		ClientID:              params.clientID,
		PostLogoutRedirectURI: params.redirectURI,
		State:                 params.state,
	}))
}

// Logout handles the confirmed POST /logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if userID := middleware.CurrentSession(c).UserID; userID != "" {
		h.userService.Logout(c.Request.Context(), userID)
	}
	clearSession(c, h.log)

	h.finishLogout(c, logoutParams{
		clientID:    c.PostForm("client_id"),
		redirectURI: c.PostForm("post_logout_redirect_uri"),
		state:       c.PostForm("state"),
	})
}

type logoutParams struct {
	clientID    string
	redirectURI string
	state       string
}

// finishLogout redirects to the post-logout URI when client_id names an
// application that registered it, and renders the signed-out page otherwise.
func (h *AuthHandler) finishLogout(c *gin.Context, params logoutParams) {
	if target := h.postLogoutRedirect(c, params); target != "" {
		c.Redirect(http.StatusFound, target)
		return
	}
	templates.RenderTempl(c, http.StatusOK, templates.LoggedOutPage(templates.LoggedOutPageProps{
		BaseProps: templates.BaseProps{AppName: h.appName},
	}))
}

func (h *AuthHandler) postLogoutRedirect(c *gin.Context, params logoutParams) string {
	if params.redirectURI == "" || params.clientID == "" {
		return ""
	}

	app, err := h.apps.FindApplicationByClientID(c.Request.Context(), params.clientID)
	if err != nil || !app.HasPostLogoutRedirectURI(params.redirectURI) {
		return ""
	}

	target, err := util.AppendQuery(params.redirectURI, map[string]string{"state": params.state})
	if err != nil {
		return ""
	}
	return target
}

// Home is the landing page after a login without a return URL.
func (h *AuthHandler) Home(c *gin.Context) {
	user := h.activeSession(c)
	if user == nil {
		c.Redirect(http.StatusFound, services.LoginPath)
		return
	}
	templates.RenderTempl(c, http.StatusOK, templates.HomePage(templates.HomePageProps{
		BaseProps: h.baseProps(c),
		Username:  user.Username,
	}))
}

func (h *AuthHandler) baseProps(c *gin.Context) templates.BaseProps {
	return templates.BaseProps{
		CSRFToken: middleware.GetCSRFToken(c),
		AppName:   h.appName,
	}
}

// endLogin removes the signed-in user from the session.
func endLogin(c *gin.Context, log *zap.SugaredLogger) {
	session := sessions.Default(c)
	session.Delete(middleware.SessionUserID)
	session.Delete(middleware.SessionUsername)
	session.Delete(middleware.SessionAuthTime)
	if err := session.Save(); err != nil {
		log.Warnw("end login", "error", err)
	}
}

// clearSession drops the login session and expires its cookie.
func clearSession(c *gin.Context, log *zap.SugaredLogger) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		log.Warnw("clear session", "error", err)
	}
}
