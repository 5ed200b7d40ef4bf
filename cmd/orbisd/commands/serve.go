// Package commands implements the orbisd subcommands.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanin2004/orbis-file-storage/internal/blobstore"
	"github.com/vanin2004/orbis-file-storage/internal/config"
	"github.com/vanin2004/orbis-file-storage/internal/fileholder"
	"github.com/vanin2004/orbis-file-storage/internal/httpapi"
	"github.com/vanin2004/orbis-file-storage/internal/httpapi/handlers"
	"github.com/vanin2004/orbis-file-storage/internal/logger"
	"github.com/vanin2004/orbis-file-storage/internal/metastore/postgres"
)

// Serve loads configuration, wires the BlobStore, MetaStore, and
// FileHolderService, and blocks serving HTTP until an interrupt signal
// triggers graceful shutdown.
func Serve() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := initLogger(cfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting orbisd", "host", cfg.Host, "port", cfg.Port, "storage_path", cfg.StoragePath)

	metaStore, err := connectWithRetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer metaStore.Close()

	blobStore, err := blobstore.New(blobstore.Config{
		Root:          cfg.StoragePath,
		PendingPrefix: cfg.PendingPrefix,
		LockTimeout:   cfg.LockTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize blob store: %w", err)
	}
	if err := blobStore.Recover(); err != nil {
		return fmt.Errorf("failed to recover blob store: %w", err)
	}
	logger.Info("blob store recovered", "root", cfg.StoragePath)

	deps := handlers.Deps{
		BlobStore: blobStore,
		MetaStore: metaStore,
		Service:   fileholder.New(),
	}

	server := httpapi.NewServer(cfg.Host, cfg.Port, deps)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("orbisd is running")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received")
		cancel()
		return <-serverDone
	case err := <-serverDone:
		signal.Stop(sigChan)
		return err
	}
}

// connectWithRetry opens the PostgreSQL metadata store, retrying up to
// cfg.DBRetries times with cfg.DBRetryDelay between attempts.
func connectWithRetry(ctx context.Context, cfg *config.Config) (*postgres.Store, error) {
	pgCfg := postgres.Config{ConnString: cfg.DatabaseURL}
	pgCfg.ApplyDefaults()

	var lastErr error
	for attempt := 0; attempt <= cfg.DBRetries; attempt++ {
		store, err := postgres.Open(ctx, pgCfg)
		if err == nil {
			return store, nil
		}
		lastErr = err
		logger.Warn("database connection attempt failed", "attempt", attempt+1, "error", err)
		if attempt < cfg.DBRetries {
			select {
			case <-time.After(cfg.DBRetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func initLogger(cfg *config.Config) error {
	level := "INFO"
	if cfg.Debug {
		level = "DEBUG"
	}
	return logger.Init(logger.Config{Level: level, Format: "text", Output: "stdout"})
}
