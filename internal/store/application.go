package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-authgate/identity/internal/models"

	"gorm.io/gorm"
)

// Application operations

func (s *Store) CreateApplication(ctx context.Context, app *models.Application) error {
	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		return fmt.Errorf("failed to create application %s: %w", app.ClientID, err)
	}
	return nil
}

func (s *Store) FindApplicationByClientID(
	ctx context.Context,
	clientID string,
) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).Where("client_id = ?", clientID).First(&app).Error; err != nil {
		return nil, translate(err)
	}
	return &app, nil
}

func (s *Store) FindApplicationByID(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&app).Error; err != nil {
		return nil, translate(err)
	}
	return &app, nil
}

// FindApplicationsByRedirectURI narrows candidates with a LIKE on the JSON
// column and then keeps only exact members.
func (s *Store) FindApplicationsByRedirectURI(
	ctx context.Context,
	uri string,
) ([]models.Application, error) {
	apps := []models.Application{}
	if uri == "" {
		return apps, nil
	}
	encoded, err := json.Marshal(uri)
	if err != nil {
		return nil, err
	}

	var candidates []models.Application
	if err := s.db.WithContext(ctx).
		Where("redirect_uris LIKE ?", "%"+string(encoded)+"%").
		Order("client_id").
		Find(&candidates).Error; err != nil {
		return nil, err
	}
	for _, app := range candidates {
		if app.HasRedirectURI(uri) {
			apps = append(apps, app)
		}
	}
	return apps, nil
}

// UpdateApplication persists every column. ClientID is immutable once created.
func (s *Store) UpdateApplication(ctx context.Context, app *models.Application) error {
	res := s.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ? AND client_id = ?", app.ID, app.ClientID).
		Select("*").
		Omit("id", "client_id", "created_at").
		Updates(app)
	if res.Error != nil {
		return fmt.Errorf("failed to update application %s: %w", app.ClientID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListApplications returns one page of applications ordered by client id.
func (s *Store) ListApplications(
	ctx context.Context,
	params PaginationParams,
) ([]models.Application, PaginationResult, error) {
	query := s.db.WithContext(ctx).Model(&models.Application{})
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("client_id LIKE ? OR display_name LIKE ?", like, like)
	}

	// Safe to reuse for the count and the page query.
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	apps := []models.Application{}
	if err := query.Order("client_id").
		Offset(params.Offset()).
		Limit(params.PageSize).
		Find(&apps).Error; err != nil {
		return nil, PaginationResult{}, err
	}
	return apps, CalculatePagination(total, params.Page, params.PageSize), nil
}
