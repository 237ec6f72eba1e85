package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-authgate/identity/internal/config"
	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/principal"
	"github.com/go-authgate/identity/internal/store"
	"github.com/go-authgate/identity/internal/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Grant types accepted at the token endpoint
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
)

// TokenResponse is the JSON body returned by the token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// CodeRequest carries the authorize-time values bound to a new code.
type CodeRequest struct {
	RedirectURI         string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// SignIn describes the tokens a validated grant should produce.
type SignIn struct {
	Principal     *principal.Principal
	Application   *models.Application
	Authorization *models.Authorization
	// Redeem is the code or refresh token this exchange retires.
	Redeem    *models.Token
	GrantType string
	Nonce     string
	// RefreshScopes is set when rotating a refresh token. The replacement is
	// always issued and keeps these scopes, whatever the principal was
	// narrowed to.
	RefreshScopes []string
}

var errAuthorizationNotValid = errors.New("authorization is no longer valid")

// Issuer mints tokens and persists them together with the state change that
// justified them.
type Issuer struct {
	tx       core.Transactor
	provider *token.Provider
	config   *config.Config
	metrics  core.Recorder
	log      *zap.SugaredLogger
	now      core.Clock
}

func NewIssuer(
	tx core.Transactor,
	provider *token.Provider,
	cfg *config.Config,
	m core.Recorder,
	log *zap.SugaredLogger,
) *Issuer {
	return &Issuer{
		tx:       tx,
		provider: provider,
		config:   cfg,
		metrics:  m,
		log:      log,
		now:      core.SystemClock,
	}
}

// IssueCode creates an ad-hoc authorization and the authorization code bound
// to it. The raw code is returned; only its hash is stored.
func (i *Issuer) IssueCode(
	ctx context.Context,
	p *principal.Principal,
	app *models.Application,
	req CodeRequest,
) (string, error) {
	raw, err := token.GenerateOpaque()
	if err != nil {
		return "", err
	}
	now := i.now()

	auth := &models.Authorization{
		ApplicationID: app.ID,
		Subject:       p.Subject,
		Status:        models.AuthorizationStatusValid,
		Type:          models.AuthorizationTypeAdHoc,
		Scopes:        models.StringArray(p.Scopes),
		Properties: datatypes.JSONMap{
			"redirect_uri": req.RedirectURI,
			"state":        req.State,
		},
		CreationDate: now,
	}

	err = i.tx.RunInTx(ctx, func(tx core.GrantStore) error {
		if err := tx.CreateAuthorization(ctx, auth); err != nil {
			return err
		}
		return tx.CreateToken(ctx, &models.Token{
			ApplicationID:   app.ID,
			AuthorizationID: &auth.ID,
			Type:            models.TokenTypeAuthorizationCode,
			Status:          models.TokenStatusValid,
			Subject:         p.Subject,
			ReferenceID:     token.ReferenceID(raw),
			Payload: datatypes.NewJSONType(models.TokenPayload{
				RedirectURI:         req.RedirectURI,
				CodeChallenge:       req.CodeChallenge,
				CodeChallengeMethod: req.CodeChallengeMethod,
				Nonce:               req.Nonce,
				Scopes:              p.Scopes,
				Audiences:           p.Audiences,
				Presenter:           p.Presenter,
				AuthTime:            p.AuthTime,
			}),
			CreationDate:   now,
			ExpirationDate: now.Add(i.config.AuthCodeExpiration),
		})
	})
	if err != nil {
		return "", fmt.Errorf("issue authorization code: %w", err)
	}

	i.metrics.RecordTokenIssued(string(models.TokenTypeAuthorizationCode), GrantTypeAuthorizationCode)
	return raw, nil
}

// SignIn mints the access token, the optional identity and refresh tokens,
// and persists them in one transaction with the redemption of in.Redeem. A
// concurrent redemption of the same token surfaces as ErrForbidden.
func (i *Issuer) SignIn(ctx context.Context, in *SignIn) (*TokenResponse, error) {
	p := in.Principal
	now := i.now()

	accessID := uuid.New().String()
	accessExp := now.Add(i.config.AccessTokenExpiration)
	accessToken, err := i.provider.IssueAccessToken(p, accessID, now, accessExp)
	if err != nil {
		return nil, err
	}

	resp := &TokenResponse{
		AccessToken: accessToken,
		TokenType:   token.TokenTypeBearer,
		ExpiresIn:   int64(i.config.AccessTokenExpiration / time.Second),
		Scope:       strings.Join(p.Scopes, " "),
	}

	if p.HasScope(models.ScopeOpenID) {
		resp.IDToken, err = i.provider.IssueIdentityToken(p, token.IdentityParams{
			Nonce:       in.Nonce,
			AccessToken: accessToken,
			IssuedAt:    now,
			ExpiresAt:   accessExp,
		})
		if err != nil {
			return nil, err
		}
	}

	refreshScopes := p.Scopes
	issueRefresh := p.HasScope(models.ScopeOfflineAccess) &&
		in.Application.HasPermission(models.PermissionGrantRefreshToken)
	if in.RefreshScopes != nil {
		refreshScopes = in.RefreshScopes
		issueRefresh = true
	}
	if issueRefresh {
		if resp.RefreshToken, err = token.GenerateOpaque(); err != nil {
			return nil, err
		}
	}

	err = i.tx.RunInTx(ctx, func(tx core.GrantStore) error {
		if in.Redeem != nil {
			if err := tx.RedeemToken(ctx, in.Redeem.ID, now); err != nil {
				return err
			}
		}

		// re-read inside the transaction so a revocation that raced the
		// grant validation still wins
		auth, err := tx.FindAuthorizationByID(ctx, in.Authorization.ID)
		if err != nil {
			return err
		}
		if !auth.IsValid() {
			return errAuthorizationNotValid
		}

		if err := tx.CreateToken(ctx, &models.Token{
			ID:              accessID,
			ApplicationID:   in.Application.ID,
			AuthorizationID: &auth.ID,
			Type:            models.TokenTypeAccessToken,
			Status:          models.TokenStatusValid,
			Subject:         p.Subject,
			ReferenceID:     token.ReferenceID(accessToken),
			Payload: datatypes.NewJSONType(models.TokenPayload{
				Scopes:    p.Scopes,
				Audiences: p.Audiences,
				Presenter: p.Presenter,
				AuthTime:  p.AuthTime,
			}),
			CreationDate:   now,
			ExpirationDate: accessExp,
		}); err != nil {
			return err
		}

		if resp.RefreshToken == "" {
			return nil
		}
		if err := tx.CreateToken(ctx, &models.Token{
			ApplicationID:   in.Application.ID,
			AuthorizationID: &auth.ID,
			Type:            models.TokenTypeRefreshToken,
			Status:          models.TokenStatusValid,
			Subject:         p.Subject,
			ReferenceID:     token.ReferenceID(resp.RefreshToken),
			Payload: datatypes.NewJSONType(models.TokenPayload{
				Scopes:    refreshScopes,
				Audiences: p.Audiences,
				Presenter: p.Presenter,
				AuthTime:  p.AuthTime,
			}),
			CreationDate:   now,
			ExpirationDate: now.Add(i.config.RefreshTokenExpiration),
		}); err != nil {
			return err
		}

		if auth.Type == models.AuthorizationTypeAdHoc {
			auth.Type = models.AuthorizationTypePermanent
			return tx.UpdateAuthorization(ctx, auth)
		}
		return nil
	})
	if err != nil {
		return nil, i.signInFailure(in, err)
	}

	i.metrics.RecordTokenIssued(string(models.TokenTypeAccessToken), in.GrantType)
	if resp.IDToken != "" {
		i.metrics.RecordTokenIssued("id_token", in.GrantType)
	}
	if resp.RefreshToken != "" {
		i.metrics.RecordTokenIssued(string(models.TokenTypeRefreshToken), in.GrantType)
	}
	return resp, nil
}

func (i *Issuer) signInFailure(in *SignIn, err error) error {
	switch {
	case errors.Is(err, store.ErrTokenAlreadyRedeemed):
		i.metrics.RecordRedemptionConflict(string(in.Redeem.Type))
		return forbidden("token already redeemed")
	case errors.Is(err, errAuthorizationNotValid):
		return forbidden("authorization revoked during exchange")
	case errors.Is(err, store.ErrRecordNotFound):
		return forbidden("token or authorization no longer exists")
	case errors.Is(err, models.ErrIllegalTransition):
		return forbidden("token state changed during exchange")
	}
	i.log.Errorw("failed to persist issued tokens",
		"grant_type", in.GrantType,
		"client_id", in.Application.ClientID,
		"authorization_id", in.Authorization.ID,
		"error", err,
	)
	return fmt.Errorf("persist issued tokens: %w", err)
}
