package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-authgate/identity/internal/models"
)

// Token operations. Reads always hit the database.

// tokenFailure logs a storage error with the token's identity and wraps it.
func (s *Store) tokenFailure(op string, t *models.Token, err error) error {
	s.log.Errorw("token storage failure",
		"op", op,
		"token_id", t.ID,
		"token_type", t.Type,
		"token_status", t.Status,
		"error", err,
	)
	return fmt.Errorf("%s token %s: %w", op, t.ID, err)
}

func (s *Store) CreateToken(ctx context.Context, t *models.Token) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return s.tokenFailure("create", t, err)
	}
	return nil
}

func (s *Store) FindTokenByID(ctx context.Context, id string) (*models.Token, error) {
	var t models.Token
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// FindTokenByReferenceID looks a token up by the hash of its opaque value.
func (s *Store) FindTokenByReferenceID(ctx context.Context, referenceID string) (*models.Token, error) {
	var t models.Token
	if err := s.db.WithContext(ctx).Where("reference_id = ?", referenceID).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// FindTokensByAuthorizationID returns an empty slice when nothing is bound.
func (s *Store) FindTokensByAuthorizationID(
	ctx context.Context,
	authorizationID string,
) ([]models.Token, error) {
	tokens := []models.Token{}
	err := s.db.WithContext(ctx).
		Where("authorization_id = ?", authorizationID).
		Order("creation_date").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// UpdateToken saves the mutable columns of t, refusing illegal status moves.
func (s *Store) UpdateToken(ctx context.Context, t *models.Token) error {
	current, err := s.FindTokenByID(ctx, t.ID)
	if err != nil {
		return err
	}
	if current.Status != t.Status && !current.Status.CanTransitionTo(t.Status) {
		return fmt.Errorf("%w: token %s (%s) %s -> %s",
			models.ErrIllegalTransition, t.ID, t.Type, current.Status, t.Status)
	}

	res := s.db.WithContext(ctx).Model(&models.Token{}).
		Where("id = ? AND status = ?", t.ID, current.Status).
		Select("status", "payload", "expiration_date", "redemption_date").
		Updates(t)
	if res.Error != nil {
		return s.tokenFailure("update", t, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: token %s changed concurrently", models.ErrIllegalTransition, t.ID)
	}
	return nil
}

// RedeemToken flips a valid token to redeemed with a single conditional
// UPDATE. When several callers race, exactly one sees a row affected; the
// rest get ErrTokenAlreadyRedeemed.
func (s *Store) RedeemToken(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Token{}).
		Where("id = ? AND status = ?", id, models.TokenStatusValid).
		Updates(map[string]any{
			"status":          models.TokenStatusRedeemed,
			"redemption_date": at,
		})
	if res.Error != nil {
		return s.tokenFailure("redeem", &models.Token{ID: id, Status: models.TokenStatusValid}, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	if _, err := s.FindTokenByID(ctx, id); err != nil {
		return err
	}
	return ErrTokenAlreadyRedeemed
}

// RevokeToken soft-revokes a token and stamps the redemption date.
// Revoking a revoked token is a no-op.
func (s *Store) RevokeToken(ctx context.Context, id string, at time.Time) error {
	t, err := s.FindTokenByID(ctx, id)
	if err != nil {
		return err
	}
	previous := t.Status
	if previous == models.TokenStatusRevoked {
		return nil
	}
	if err := t.TransitionTo(models.TokenStatusRevoked, at); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Model(&models.Token{}).
		Where("id = ? AND status = ?", id, previous).
		Updates(map[string]any{
			"status":          models.TokenStatusRevoked,
			"redemption_date": at,
		})
	if res.Error != nil {
		return s.tokenFailure("revoke", t, res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost a race with another status change.
		latest, err := s.FindTokenByID(ctx, id)
		if err != nil {
			return err
		}
		if latest.Status != models.TokenStatusRevoked {
			return fmt.Errorf("%w: token %s changed concurrently", models.ErrIllegalTransition, id)
		}
	}
	return nil
}

// PruneTokens hard-deletes tokens that expired before threshold, and tokens
// created before threshold that can no longer be used.
func (s *Store) PruneTokens(ctx context.Context, threshold time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expiration_date < ? OR (creation_date < ? AND status IN ?)", threshold, threshold, []models.TokenStatus{
			models.TokenStatusRevoked,
			models.TokenStatusRedeemed,
			models.TokenStatusRejected,
		}).
		Delete(&models.Token{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) CountTokens(
	ctx context.Context,
	tokenType models.TokenType,
	status models.TokenStatus,
) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Token{}).
		Where("type = ? AND status = ?", tokenType, status).
		Count(&count).Error
	return count, err
}

// CountActiveTokens counts valid tokens of a type that have not expired.
func (s *Store) CountActiveTokens(ctx context.Context, tokenType models.TokenType) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Token{}).
		Where("type = ? AND status = ? AND expiration_date > ?",
			tokenType, models.TokenStatusValid, time.Now()).
		Count(&count).Error
	return count, err
}
