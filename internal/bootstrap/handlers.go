package bootstrap

import (
	"github.com/go-authgate/identity/internal/handlers"
	"github.com/go-authgate/identity/internal/version"
)

// handlerSet holds all HTTP handlers
type handlerSet struct {
	auth  *handlers.AuthHandler
	oauth *handlers.OAuthHandler
	oidc  *handlers.OIDCHandler
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(app *Application) handlerSet {
	log := app.Log.Named("http")
	return handlerSet{
		auth: handlers.NewAuthHandler(
			app.UserService,
			app.References,
			app.Config.BaseURL,
			version.App,
			log,
		),
		oauth: handlers.NewOAuthHandler(app.AuthorizeService, app.TokenService, log),
		oidc: handlers.NewOIDCHandler(
			app.TokenService,
			app.Config.BaseURL,
			app.Builder.AllowedScopes(),
		),
	}
}
