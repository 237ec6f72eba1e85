package store

import (
	"context"
	"fmt"

	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is the gorm-backed implementation of every persistence contract in
// core. A Store returned by RunInTx is bound to the open transaction.
type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

var (
	_ core.ApplicationStore   = (*Store)(nil)
	_ core.ScopeStore         = (*Store)(nil)
	_ core.AuthorizationStore = (*Store)(nil)
	_ core.TokenStore         = (*Store)(nil)
	_ core.UserStore          = (*Store)(nil)
	_ core.Transactor         = (*Store)(nil)
	_ core.TokenCounter       = (*Store)(nil)
	_ core.AuditStore         = (*Store)(nil)
)

// New opens the database, migrates the schema and returns a ready Store.
func New(ctx context.Context, driver, dsn string, log *zap.SugaredLogger) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite" {
		// SQLite allows a single writer; :memory: databases are also per-connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&models.Application{},
		&models.Scope{},
		&models.Authorization{},
		&models.Token{},
		&models.User{},
		&models.AuditLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// RunInTx runs fn in a transaction. fn must only use the Store it is given;
// with SQLite the outer Store would block on the single connection.
func (s *Store) RunInTx(ctx context.Context, fn func(tx core.GrantStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, log: s.log})
	})
}

// Health checks the database connection
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
