package bootstrap

import (
	"github.com/go-authgate/identity/internal/auth"
	"github.com/go-authgate/identity/internal/principal"
	"github.com/go-authgate/identity/internal/services"
	"github.com/go-authgate/identity/internal/token"
)

// initializeServices creates all business logic services. Application and
// scope reads go through the reference cache; grants, tokens and users are
// always read from the database.
func initializeServices(app *Application) {
	cfg := app.Config
	db := app.DB
	refs := app.References
	m := app.MetricsRecorder
	log := app.Log

	app.TokenProvider = token.NewProvider(cfg.BaseURL, cfg.JWTSecret)
	app.Builder = principal.NewBuilder(cfg.APIScopeName, cfg.APIResources)
	app.Issuer = services.NewIssuer(db, app.TokenProvider, cfg, m, log.Named("issuer"))

	app.Grants = services.NewGrantRegistry(services.GrantDeps{
		Applications:   refs,
		Authorizations: db,
		Tokens:         db,
		Users:          db,
		Builder:        app.Builder,
		Issuer:         app.Issuer,
		Audit:          app.AuditService,
		Metrics:        m,
		Log:            log.Named("grant"),
	}, app.AuditService)

	app.UserService = services.NewUserService(
		db,
		auth.NewLocalAuthProvider(db),
		app.AuditService,
		m,
		log.Named("user"),
	)
	app.AuthorizeService = services.NewAuthorizeService(
		refs,
		refs,
		db,
		app.Builder,
		app.Issuer,
		app.AuditService,
		m,
		log.Named("authorize"),
	)
	app.TokenService = services.NewTokenService(
		app.Grants,
		refs,
		db,
		db,
		app.TokenProvider,
		app.AuditService,
		m,
		log.Named("token"),
	)
	app.MaintenanceService = services.NewMaintenanceService(
		refs,
		db,
		db,
		app.AuditService,
		m,
		log.Named("maintenance"),
		cfg.TokenPruneRetention,
	)
	app.SeedService = services.NewSeedService(
		refs,
		refs,
		db,
		cfg,
		app.AuditService,
		log.Named("seed"),
	)
}
