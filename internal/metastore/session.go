package metastore

import "context"

// Session is a typed CRUD handle scoped to one database transaction.
// All operations participate in that transaction; none auto-commit.
// A Session is opened and closed exclusively by an UnitOfWork.
type Session interface {
	// Save inserts a new row. Fails with kerrors.AlreadyExists on a
	// unique-constraint violation of (path, filename, extension) or id.
	Save(ctx context.Context, meta *FileMeta) error

	// GetByID performs a primary-key lookup, failing with
	// kerrors.NotFound if no row matches.
	GetByID(ctx context.Context, id string) (*FileMeta, error)

	// GetByTriple performs a uniqueness-index lookup, failing with
	// kerrors.NotFound if no row matches.
	GetByTriple(ctx context.Context, path, filename, extension string) (*FileMeta, error)

	// GetByPathPrefix returns every row whose path starts with prefix,
	// ordered by (created_at, id) for stable pagination.
	GetByPathPrefix(ctx context.Context, prefix string) ([]*FileMeta, error)

	// List returns rows ordered by (created_at, id), paginated by
	// limit/offset. A limit of 0 means unbounded.
	List(ctx context.Context, limit, offset int) ([]*FileMeta, error)

	// Update applies changes to the row identified by meta.ID, setting
	// updated_at to the current UTC time. Fields absent from changes
	// are left untouched.
	Update(ctx context.Context, meta *FileMeta, changes Changes) error

	// Delete marks the given row for deletion within the current
	// transaction.
	Delete(ctx context.Context, meta *FileMeta) error

	// Commit finalizes the transaction. Owned exclusively by the
	// UnitOfWork that opened this Session.
	Commit(ctx context.Context) error

	// Rollback discards the transaction. Must not panic if the
	// transaction was already committed or rolled back.
	Rollback(ctx context.Context)
}
