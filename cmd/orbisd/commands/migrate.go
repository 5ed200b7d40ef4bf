package commands

import (
	"context"
	"fmt"

	"github.com/vanin2004/orbis-file-storage/internal/config"
	"github.com/vanin2004/orbis-file-storage/internal/metastore/postgres"
)

// Migrate applies pending database migrations and exits without
// starting the HTTP server.
func Migrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := initLogger(cfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := postgres.Migrate(context.Background(), cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}
