package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/models"
)

// ReferenceStore is the part of the Store that serves static reference data.
type ReferenceStore interface {
	core.ApplicationStore
	core.ScopeStore
}

// CachedReferenceStore fronts application and scope lookups with a short-TTL
// cache. Writes go straight to the inner store and invalidate the cached keys.
type CachedReferenceStore struct {
	inner  ReferenceStore
	apps   core.Cache[models.Application]
	scopes core.Cache[models.Scope]
	ttl    time.Duration
}

var _ ReferenceStore = (*CachedReferenceStore)(nil)

func NewCachedReferenceStore(
	inner ReferenceStore,
	apps core.Cache[models.Application],
	scopes core.Cache[models.Scope],
	ttl time.Duration,
) *CachedReferenceStore {
	return &CachedReferenceStore{inner: inner, apps: apps, scopes: scopes, ttl: ttl}
}

func appClientKey(clientID string) string { return "app:client:" + clientID }
func appIDKey(id string) string           { return "app:id:" + id }
func scopeKey(name string) string         { return "scope:" + name }

func (c *CachedReferenceStore) CreateApplication(ctx context.Context, app *models.Application) error {
	return c.inner.CreateApplication(ctx, app)
}

func (c *CachedReferenceStore) FindApplicationByClientID(
	ctx context.Context,
	clientID string,
) (*models.Application, error) {
	app, err := c.apps.GetWithFetch(ctx, appClientKey(clientID), c.ttl,
		func(ctx context.Context, _ string) (models.Application, error) {
			found, err := c.inner.FindApplicationByClientID(ctx, clientID)
			if err != nil {
				return models.Application{}, err
			}
			return *found, nil
		})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (c *CachedReferenceStore) FindApplicationByID(ctx context.Context, id string) (*models.Application, error) {
	app, err := c.apps.GetWithFetch(ctx, appIDKey(id), c.ttl,
		func(ctx context.Context, _ string) (models.Application, error) {
			found, err := c.inner.FindApplicationByID(ctx, id)
			if err != nil {
				return models.Application{}, err
			}
			return *found, nil
		})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (c *CachedReferenceStore) FindApplicationsByRedirectURI(
	ctx context.Context,
	uri string,
) ([]models.Application, error) {
	return c.inner.FindApplicationsByRedirectURI(ctx, uri)
}

func (c *CachedReferenceStore) UpdateApplication(ctx context.Context, app *models.Application) error {
	if err := c.inner.UpdateApplication(ctx, app); err != nil {
		return err
	}
	_ = c.apps.Delete(ctx, appClientKey(app.ClientID))
	_ = c.apps.Delete(ctx, appIDKey(app.ID))
	return nil
}

func (c *CachedReferenceStore) CreateScope(ctx context.Context, scope *models.Scope) error {
	return c.inner.CreateScope(ctx, scope)
}

func (c *CachedReferenceStore) FindScopeByName(ctx context.Context, name string) (*models.Scope, error) {
	scope, err := c.scopes.GetWithFetch(ctx, scopeKey(name), c.ttl,
		func(ctx context.Context, _ string) (models.Scope, error) {
			found, err := c.inner.FindScopeByName(ctx, name)
			if err != nil {
				return models.Scope{}, err
			}
			return *found, nil
		})
	if err != nil {
		return nil, err
	}
	return &scope, nil
}

// FindScopesByNames resolves each name through the cache and skips names
// that do not exist.
func (c *CachedReferenceStore) FindScopesByNames(ctx context.Context, names []string) ([]models.Scope, error) {
	scopes := []models.Scope{}
	for _, name := range names {
		scope, err := c.FindScopeByName(ctx, name)
		if errors.Is(err, ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, *scope)
	}
	return scopes, nil
}

func (c *CachedReferenceStore) FindScopesByResource(ctx context.Context, resource string) ([]models.Scope, error) {
	return c.inner.FindScopesByResource(ctx, resource)
}

func (c *CachedReferenceStore) UpdateScope(ctx context.Context, scope *models.Scope) error {
	if err := c.inner.UpdateScope(ctx, scope); err != nil {
		return err
	}
	_ = c.scopes.Delete(ctx, scopeKey(scope.Name))
	return nil
}
