package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-authgate/identity/internal/auth"
	"github.com/go-authgate/identity/internal/config"
	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/store"
	"github.com/go-authgate/identity/internal/util"

	"go.uber.org/zap"
)

// ErrSeedConfig is returned when the configuration cannot produce a usable
// scope or client. The server must not start in that case.
var ErrSeedConfig = errors.New("seed: incomplete identity configuration")

const defaultAdminUsername = "admin"

// SeedService upserts the API scope, the SPA client and the first admin.
type SeedService struct {
	apps   core.ApplicationStore
	scopes core.ScopeStore
	users  core.UserStore
	config *config.Config
	audit  *AuditService
	log    *zap.SugaredLogger
}

func NewSeedService(
	apps core.ApplicationStore,
	scopes core.ScopeStore,
	users core.UserStore,
	cfg *config.Config,
	audit *AuditService,
	log *zap.SugaredLogger,
) *SeedService {
	return &SeedService{
		apps:   apps,
		scopes: scopes,
		users:  users,
		config: cfg,
		audit:  audit,
		log:    log,
	}
}

// Seed is idempotent. It must complete before authorize requests are served.
func (s *SeedService) Seed(ctx context.Context) error {
	if strings.TrimSpace(s.config.APIScopeName) == "" || strings.TrimSpace(s.config.SPAClientID) == "" {
		return ErrSeedConfig
	}
	if err := s.seedScope(ctx); err != nil {
		return err
	}
	if err := s.seedSPAClient(ctx); err != nil {
		return err
	}
	return s.seedAdmin(ctx)
}

func (s *SeedService) seedScope(ctx context.Context) error {
	_, err := s.scopes.FindScopeByName(ctx, s.config.APIScopeName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("seed scope: %w", err)
	}

	scope := &models.Scope{
		Name:        s.config.APIScopeName,
		DisplayName: s.config.APIScopeDisplayName,
		Resources:   models.StringArray(s.config.APIResources),
	}
	if err := s.scopes.CreateScope(ctx, scope); err != nil {
		return fmt.Errorf("seed scope: %w", err)
	}

	s.log.Infow("seeded API scope", "scope", scope.Name, "resources", scope.Resources)
	s.audit.Log(ctx, AuditEntry{
		EventType:    models.EventScopeSeeded,
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceScope,
		ResourceID:   scope.ID,
		ResourceName: scope.Name,
		Action:       "API scope created",
		Success:      true,
	})
	return nil
}

// spaPermissions is everything a browser client running the code flow needs.
func (s *SeedService) spaPermissions() models.StringArray {
	return models.StringArray{
		models.PermissionEndpointAuthorization,
		models.PermissionEndpointToken,
		models.PermissionEndpointRevocation,
		models.PermissionEndpointLogout,
		models.PermissionGrantAuthorizationCode,
		models.PermissionGrantRefreshToken,
		models.PermissionResponseTypeCode,
		models.PermissionScopePrefix + models.ScopeOpenID,
		models.PermissionScopePrefix + models.ScopeProfile,
		models.PermissionScopePrefix + models.ScopeOfflineAccess,
		models.PermissionScopePrefix + s.config.APIScopeName,
	}
}

// seedSPAClient creates the client once. Later runs only replace its
// redirect URI sets, so an environment can be promoted without
// re-registering.
func (s *SeedService) seedSPAClient(ctx context.Context) error {
	app, err := s.apps.FindApplicationByClientID(ctx, s.config.SPAClientID)
	if err == nil {
		app.RedirectURIs = models.StringArray(s.config.SPARedirectURIs)
		app.PostLogoutRedirectURIs = models.StringArray(s.config.SPAPostLogoutRedirectURIs)
		if err := s.apps.UpdateApplication(ctx, app); err != nil {
			return fmt.Errorf("update SPA client: %w", err)
		}
		return nil
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("seed SPA client: %w", err)
	}

	app = &models.Application{
		ClientID:               s.config.SPAClientID,
		DisplayName:            s.config.SPAClientName,
		ClientType:             models.ClientTypePublic,
		ConsentType:            models.ConsentTypeImplicit,
		RedirectURIs:           models.StringArray(s.config.SPARedirectURIs),
		PostLogoutRedirectURIs: models.StringArray(s.config.SPAPostLogoutRedirectURIs),
		Permissions:            s.spaPermissions(),
		Requirements:           models.StringArray{models.RequirementPKCE},
	}
	if err := s.apps.CreateApplication(ctx, app); err != nil {
		return fmt.Errorf("seed SPA client: %w", err)
	}

	s.log.Infow("seeded SPA client", "client_id", app.ClientID, "redirect_uris", app.RedirectURIs)
	s.audit.Log(ctx, AuditEntry{
		EventType:    models.EventApplicationSeeded,
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceApplication,
		ResourceID:   app.ID,
		ResourceName: app.ClientID,
		Action:       "SPA client created",
		Success:      true,
	})
	return nil
}

// seedAdmin creates the admin account when the user table is empty. Without
// a configured password a random one is generated and logged once.
func (s *SeedService) seedAdmin(ctx context.Context) error {
	count, err := s.users.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	password := s.config.DefaultAdminPassword
	generated := password == ""
	if generated {
		if password, err = util.CryptoRandomString(16); err != nil {
			return fmt.Errorf("generate admin password: %w", err)
		}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := &models.User{
		Username:     defaultAdminUsername,
		Email:        "admin@localhost",
		PasswordHash: hash,
		FullName:     "Administrator",
		Roles:        models.StringArray{models.RoleAdmin},
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	if generated {
		s.log.Warnw("created default admin user with a generated password",
			"username", admin.Username,
			"password", password,
		)
	} else {
		s.log.Infow("created default admin user", "username", admin.Username)
	}
	return nil
}
