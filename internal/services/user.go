package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-authgate/identity/internal/auth"
	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/store"

	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
)

// UserService backs the login form that establishes the IdP session.
type UserService struct {
	users    core.UserStore
	provider *auth.LocalAuthProvider
	audit    *AuditService
	metrics  core.Recorder
	log      *zap.SugaredLogger
}

func NewUserService(
	users core.UserStore,
	provider *auth.LocalAuthProvider,
	audit *AuditService,
	m core.Recorder,
	log *zap.SugaredLogger,
) *UserService {
	return &UserService{
		users:    users,
		provider: provider,
		audit:    audit,
		metrics:  m,
		log:      log,
	}
}

// Authenticate checks the credentials. Inactive accounts are reported as
// invalid credentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.provider.Authenticate(ctx, username, password)
	if err != nil {
		s.metrics.RecordLogin(false)
		s.audit.Log(ctx, AuditEntry{
			EventType:     models.EventAuthenticationFailure,
			Severity:      models.SeverityWarning,
			ActorUsername: username,
			ResourceType:  models.ResourceUser,
			Action:        "Login failed",
			Success:       false,
			ErrorMessage:  err.Error(),
		})
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrUserInactive) {
			return nil, ErrInvalidCredentials
		}
		s.log.Errorw("login failed", "provider", s.provider.Name(), "error", err)
		return nil, err
	}

	s.metrics.RecordLogin(true)
	s.audit.Log(ctx, AuditEntry{
		EventType:     models.EventAuthenticationSuccess,
		Severity:      models.SeverityInfo,
		ActorUserID:   user.ID,
		ActorUsername: user.Username,
		ResourceType:  models.ResourceUser,
		ResourceID:    user.ID,
		Action:        "Login succeeded",
		Success:       true,
	})
	return user, nil
}

// Logout records the end of a session.
func (s *UserService) Logout(ctx context.Context, userID string) {
	s.metrics.RecordLogout()
	s.audit.Log(ctx, AuditEntry{
		EventType:    models.EventLogout,
		Severity:     models.SeverityInfo,
		ActorUserID:  userID,
		ResourceType: models.ResourceUser,
		ResourceID:   userID,
		Action:       "Logout",
		Success:      true,
	})
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
