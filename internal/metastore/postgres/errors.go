package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vanin2004/orbis-file-storage/internal/kerrors"
)

// uniqueViolationCode is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolationCode = "23505"

// mapPgError translates a raw pgx/postgres error into the kerrors
// taxonomy. entity and id are used only to build a NotFound message.
func mapPgError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return kerrors.NewNotFoundError(entity, id)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return kerrors.Wrap(kerrors.AlreadyExists, "unique constraint violated", err)
	}

	return kerrors.NewMetaStoreError(err)
}

// isRetryable reports whether a pgx/postgres error is a deadlock or
// serialization failure that is safe to retry.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40P01", "40001":
			return true
		}
	}
	return false
}
