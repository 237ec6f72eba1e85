package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-authgate/identity/internal/models"

	"gorm.io/gorm"
)

// Authorization operations. Reads always hit the database.

func (s *Store) CreateAuthorization(ctx context.Context, a *models.Authorization) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		s.log.Errorw("failed to create authorization",
			"application_id", a.ApplicationID, "subject", a.Subject, "error", err)
		return fmt.Errorf("failed to create authorization: %w", err)
	}
	return nil
}

func (s *Store) FindAuthorizationByID(ctx context.Context, id string) (*models.Authorization, error) {
	var a models.Authorization
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// FindAuthorizations lists the grants a subject holds for one application,
// newest first. An empty slice means none.
func (s *Store) FindAuthorizations(
	ctx context.Context,
	subject, applicationID string,
) ([]models.Authorization, error) {
	auths := []models.Authorization{}
	err := s.db.WithContext(ctx).
		Where("subject = ? AND application_id = ?", subject, applicationID).
		Order("creation_date DESC").
		Find(&auths).Error
	if err != nil {
		return nil, err
	}
	return auths, nil
}

// UpdateAuthorization saves a, refusing status changes the state machine forbids.
func (s *Store) UpdateAuthorization(ctx context.Context, a *models.Authorization) error {
	current, err := s.FindAuthorizationByID(ctx, a.ID)
	if err != nil {
		return err
	}
	if current.Status != a.Status && !current.Status.CanTransitionTo(a.Status) {
		return fmt.Errorf("%w: authorization %s %s -> %s",
			models.ErrIllegalTransition, a.ID, current.Status, a.Status)
	}

	res := s.db.WithContext(ctx).Model(&models.Authorization{}).
		Where("id = ? AND status = ?", a.ID, current.Status).
		Select("status", "type", "scopes", "properties").
		Updates(a)
	if res.Error != nil {
		s.log.Errorw("failed to update authorization",
			"authorization_id", a.ID, "status", a.Status, "error", res.Error)
		return fmt.Errorf("failed to update authorization %s: %w", a.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: authorization %s changed concurrently",
			models.ErrIllegalTransition, a.ID)
	}
	return nil
}

// RevokeAuthorization flips the authorization to revoked and revokes every
// bound token that is still valid or inactive. Redeemed tokens keep their
// status. Revoking an already revoked authorization is a no-op.
func (s *Store) RevokeAuthorization(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Authorization
		if err := tx.Where("id = ?", id).First(&a).Error; err != nil {
			return translate(err)
		}
		if err := a.TransitionTo(models.AuthorizationStatusRevoked); err != nil {
			return err
		}

		if err := tx.Model(&models.Authorization{}).
			Where("id = ? AND status = ?", id, models.AuthorizationStatusValid).
			Update("status", models.AuthorizationStatusRevoked).Error; err != nil {
			return fmt.Errorf("failed to revoke authorization %s: %w", id, err)
		}

		res := tx.Model(&models.Token{}).
			Where("authorization_id = ? AND status IN ?", id, []models.TokenStatus{
				models.TokenStatusValid,
				models.TokenStatusInactive,
			}).
			Updates(map[string]any{
				"status":          models.TokenStatusRevoked,
				"redemption_date": at,
			})
		if res.Error != nil {
			s.log.Errorw("failed to revoke tokens of authorization",
				"authorization_id", id, "error", res.Error)
			return fmt.Errorf("failed to revoke tokens of authorization %s: %w", id, res.Error)
		}
		s.log.Debugw("authorization revoked", "authorization_id", id, "tokens_revoked", res.RowsAffected)
		return nil
	})
}

// PruneAuthorizations hard-deletes authorizations created before threshold
// that no longer have any token rows.
func (s *Store) PruneAuthorizations(ctx context.Context, threshold time.Time) (int64, error) {
	orphaned := s.db.Model(&models.Token{}).
		Select("1").
		Where("tokens.authorization_id = authorizations.id")

	res := s.db.WithContext(ctx).
		Where("creation_date < ?", threshold).
		Where("NOT EXISTS (?)", orphaned).
		Delete(&models.Authorization{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune authorizations: %w", res.Error)
	}
	return res.RowsAffected, nil
}
