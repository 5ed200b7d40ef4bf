// Package postgres implements internal/metastore.Session against
// PostgreSQL via pgx/v5, with golang-migrate-managed schema migrations.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vanin2004/orbis-file-storage/internal/logger"
	"github.com/vanin2004/orbis-file-storage/internal/metastore"
)

// Store is the long-lived connection pool shared across requests. Each
// request opens its own Session (one pgx.Tx) from NewSession.
type Store struct {
	pool *pgxpool.Pool
}

// Open builds a Store, applying pending migrations first.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := Migrate(ctx, cfg.ConnString); err != nil {
		return nil, err
	}

	pool, err := createConnectionPool(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	if s.pool == nil {
		return
	}
	logger.Info("closing postgres connection pool")
	s.pool.Close()
}

// NewSession opens a fresh transaction-scoped Session.
func (s *Store) NewSession(ctx context.Context) (metastore.Session, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, mapPgError(err, "", "")
	}
	return &session{tx: tx}, nil
}
