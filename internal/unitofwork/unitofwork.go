// Package unitofwork binds one blobstore.Session and one metastore.Session
// to a single request and enforces the commit/rollback protocol across
// both stores.
package unitofwork

import (
	"context"

	"github.com/vanin2004/orbis-file-storage/internal/blobstore"
	"github.com/vanin2004/orbis-file-storage/internal/logger"
	"github.com/vanin2004/orbis-file-storage/internal/metastore"
)

// MetaOpener opens a fresh metastore.Session scoped to ctx.
type MetaOpener interface {
	NewSession(ctx context.Context) (metastore.Session, error)
}

// UnitOfWork owns exactly one BlobStore session and one MetaStore
// session for the lifetime of a single request. It is the sole entity
// permitted to commit or roll either session back.
type UnitOfWork struct {
	Blob *blobstore.Session
	Meta metastore.Session
}

// Run opens a new UnitOfWork, executes fn against it, and commits or
// rolls back according to fn's outcome. If fn panics, both sessions are
// rolled back before the panic propagates.
//
// Commit order is MetaStore first, then BlobStore: the metadata row is
// the source of truth. If the MetaStore commit fails, BlobStore is
// rolled back and the error surfaces. If MetaStore commits but
// BlobStore's commit then fails, the database is already durable; the
// error still surfaces to the caller, and a later reconciliation pass
// repairs the resulting drift.
func Run(ctx context.Context, blobStore *blobstore.Store, metaStore MetaOpener, fn func(ctx context.Context, uow *UnitOfWork) error) error {
	metaSession, err := metaStore.NewSession(ctx)
	if err != nil {
		return err
	}

	uow := &UnitOfWork{
		Blob: blobStore.NewSession(),
		Meta: metaSession,
	}

	defer func() {
		if p := recover(); p != nil {
			uow.rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(ctx, uow); err != nil {
		uow.rollback(ctx)
		return err
	}

	if err := uow.Meta.Commit(ctx); err != nil {
		uow.Blob.Rollback()
		return err
	}

	if err := uow.Blob.Commit(); err != nil {
		// The database has already committed; the metadata row is the
		// source of truth. Surface the error and rely on the
		// reconciliation pass to repair the drift later.
		logger.ErrorCtx(ctx, "blob commit failed after metastore commit succeeded", logger.KeyError, err.Error())
		return err
	}

	return nil
}

func (u *UnitOfWork) rollback(ctx context.Context) {
	u.Blob.Rollback()
	u.Meta.Rollback(ctx)
}
