package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-authgate/identity/internal/models"

	"gorm.io/gorm"
)

// Scope operations

func (s *Store) CreateScope(ctx context.Context, scope *models.Scope) error {
	if err := s.db.WithContext(ctx).Create(scope).Error; err != nil {
		return fmt.Errorf("failed to create scope %s: %w", scope.Name, err)
	}
	return nil
}

func (s *Store) FindScopeByName(ctx context.Context, name string) (*models.Scope, error) {
	var scope models.Scope
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&scope).Error; err != nil {
		return nil, translate(err)
	}
	return &scope, nil
}

func (s *Store) FindScopesByNames(ctx context.Context, names []string) ([]models.Scope, error) {
	scopes := []models.Scope{}
	if len(names) == 0 {
		return scopes, nil
	}
	if err := s.db.WithContext(ctx).Where("name IN ?", names).Order("name").Find(&scopes).Error; err != nil {
		return nil, err
	}
	return scopes, nil
}

func (s *Store) FindScopesByResource(ctx context.Context, resource string) ([]models.Scope, error) {
	scopes := []models.Scope{}
	if resource == "" {
		return scopes, nil
	}
	encoded, err := json.Marshal(resource)
	if err != nil {
		return nil, err
	}

	var candidates []models.Scope
	if err := s.db.WithContext(ctx).
		Where("resources LIKE ?", "%"+string(encoded)+"%").
		Order("name").
		Find(&candidates).Error; err != nil {
		return nil, err
	}
	for _, scope := range candidates {
		if scope.Resources.Contains(resource) {
			scopes = append(scopes, scope)
		}
	}
	return scopes, nil
}

func (s *Store) UpdateScope(ctx context.Context, scope *models.Scope) error {
	res := s.db.WithContext(ctx).Model(&models.Scope{}).
		Where("id = ?", scope.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(scope)
	if res.Error != nil {
		return fmt.Errorf("failed to update scope %s: %w", scope.Name, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListScopes returns one page of scopes ordered by name.
func (s *Store) ListScopes(
	ctx context.Context,
	params PaginationParams,
) ([]models.Scope, PaginationResult, error) {
	query := s.db.WithContext(ctx).Model(&models.Scope{})
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("name LIKE ? OR display_name LIKE ?", like, like)
	}

	// Safe to reuse for the count and the page query.
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	scopes := []models.Scope{}
	if err := query.Order("name").
		Offset(params.Offset()).
		Limit(params.PageSize).
		Find(&scopes).Error; err != nil {
		return nil, PaginationResult{}, err
	}
	return scopes, CalculatePagination(total, params.Page, params.PageSize), nil
}
