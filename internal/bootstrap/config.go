package bootstrap

import (
	"errors"
	"fmt"

	"github.com/go-authgate/identity/internal/config"
)

// validateConfiguration validates all configuration settings
func validateConfiguration(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateDatabaseConfig(cfg); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}
	return nil
}

// validateDatabaseConfig checks that the selected driver has what it needs
func validateDatabaseConfig(cfg *config.Config) error {
	switch cfg.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if cfg.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN is required when DATABASE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be: sqlite, postgres)", cfg.DatabaseDriver)
	}
	return nil
}
