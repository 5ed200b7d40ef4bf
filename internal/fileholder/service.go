// Package fileholder implements the business-level orchestration above
// an UnitOfWork: uniqueness checks, id allocation, path normalization,
// and cross-store reconciliation.
package fileholder

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vanin2004/orbis-file-storage/internal/kerrors"
	"github.com/vanin2004/orbis-file-storage/internal/metastore"
	"github.com/vanin2004/orbis-file-storage/internal/unitofwork"
)

// Service is the stateless FileHolderService. Every operation takes
// the active UnitOfWork explicitly; Service itself holds no
// per-request state.
type Service struct {
	validate *validator.Validate
}

// New builds a Service.
func New() *Service {
	return &Service{validate: newValidator()}
}

// CreateInput carries the fields needed to create a new file.
type CreateInput struct {
	Bytes     []byte
	Filename  string
	Extension string
	Path      string
	Comment   *string
}

// CreateFile validates the input, checks the uniqueness invariant,
// allocates a fresh id, stages the blob write and inserts the metadata
// row. The UnitOfWork owns commit.
func (s *Service) CreateFile(ctx context.Context, uow *unitofwork.UnitOfWork, in CreateInput) (*metastore.FileMeta, error) {
	meta := &metastore.FileMeta{
		ID:        uuid.NewString(),
		Filename:  in.Filename,
		Extension: in.Extension,
		Path:      in.Path,
		Size:      int64(len(in.Bytes)),
		Comment:   in.Comment,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.validate.Struct(meta); err != nil {
		return nil, kerrors.NewValidationError(err.Error())
	}

	if _, err := uow.Meta.GetByTriple(ctx, in.Path, in.Filename, in.Extension); err == nil {
		return nil, kerrors.NewAlreadyExistsError(in.Path, in.Filename, in.Extension)
	} else if !kerrors.Is(err, kerrors.NotFound) {
		return nil, err
	}

	if err := uow.Meta.Save(ctx, meta); err != nil {
		return nil, err
	}
	if err := uow.Blob.Add(meta.ID, in.Bytes); err != nil {
		return nil, err
	}

	return meta, nil
}

// GetFileMeta resolves metadata by id, failing with kerrors.NotFound
// if the row does not exist.
func (s *Service) GetFileMeta(ctx context.Context, uow *unitofwork.UnitOfWork, id string) (*metastore.FileMeta, error) {
	return uow.Meta.GetByID(ctx, id)
}

// GetFileBytes resolves metadata then reads the blob, failing with
// kerrors.NotFound if either step misses.
func (s *Service) GetFileBytes(ctx context.Context, uow *unitofwork.UnitOfWork, id string) ([]byte, error) {
	if _, err := uow.Meta.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return uow.Blob.Get(id)
}

// GetFileBytesByTriple resolves metadata by the uniqueness triple then
// reads the corresponding blob.
func (s *Service) GetFileBytesByTriple(ctx context.Context, uow *unitofwork.UnitOfWork, path, filename, extension string) ([]byte, error) {
	meta, err := uow.Meta.GetByTriple(ctx, path, filename, extension)
	if err != nil {
		return nil, err
	}
	return uow.Blob.Get(meta.ID)
}

// GetFileMetaByTriple resolves metadata by the uniqueness triple
// (path, filename, extension) without touching the blob store.
func (s *Service) GetFileMetaByTriple(ctx context.Context, uow *unitofwork.UnitOfWork, path, filename, extension string) (*metastore.FileMeta, error) {
	return uow.Meta.GetByTriple(ctx, path, filename, extension)
}

// DeleteFile resolves metadata (error if missing), then stages the
// blob delete and deletes the metadata row. Returns true on success.
func (s *Service) DeleteFile(ctx context.Context, uow *unitofwork.UnitOfWork, id string) (bool, error) {
	meta, err := uow.Meta.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if _, err := uow.Blob.Delete(id); err != nil {
		return false, err
	}
	if err := uow.Meta.Delete(ctx, meta); err != nil {
		return false, err
	}
	return true, nil
}

// ListFiles returns a page of metadata rows.
func (s *Service) ListFiles(ctx context.Context, uow *unitofwork.UnitOfWork, limit, offset int) ([]*metastore.FileMeta, error) {
	return uow.Meta.List(ctx, limit, offset)
}

// SearchByPathPrefix normalizes prefix to end with '/' and returns
// every row whose path starts with it. An empty prefix returns an
// empty sequence.
func (s *Service) SearchByPathPrefix(ctx context.Context, uow *unitofwork.UnitOfWork, prefix string) ([]*metastore.FileMeta, error) {
	if prefix == "" {
		return []*metastore.FileMeta{}, nil
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return uow.Meta.GetByPathPrefix(ctx, prefix)
}

// UpdateFileMeta resolves metadata (error if missing), applies changes,
// and fails with kerrors.AlreadyExists if the result would collide with
// another row on the uniqueness invariant. An empty change set returns
// the row unchanged.
func (s *Service) UpdateFileMeta(ctx context.Context, uow *unitofwork.UnitOfWork, id string, changes metastore.Changes) (*metastore.FileMeta, error) {
	meta, err := uow.Meta.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if changes.IsEmpty() {
		return meta, nil
	}

	if err := s.validateChanges(changes); err != nil {
		return nil, err
	}

	path, filename, extension := meta.Path, meta.Filename, meta.Extension
	if changes.Path != nil {
		path = *changes.Path
	}
	if changes.Filename != nil {
		filename = *changes.Filename
	}
	if changes.Extension != nil {
		extension = *changes.Extension
	}

	if path != meta.Path || filename != meta.Filename || extension != meta.Extension {
		if existing, err := uow.Meta.GetByTriple(ctx, path, filename, extension); err == nil && existing.ID != meta.ID {
			return nil, kerrors.NewAlreadyExistsError(path, filename, extension)
		} else if err != nil && !kerrors.Is(err, kerrors.NotFound) {
			return nil, err
		}
	}

	if err := uow.Meta.Update(ctx, meta, changes); err != nil {
		return nil, err
	}

	return meta, nil
}

func (s *Service) validateChanges(changes metastore.Changes) error {
	if changes.Filename != nil && !ValidFilename(*changes.Filename) {
		return kerrors.NewValidationError("filename must be 1-255 characters matching [A-Za-z0-9._-]+")
	}
	if changes.Extension != nil && !ValidExtension(*changes.Extension) {
		return kerrors.NewValidationError("extension must be 0-10 characters matching [A-Za-z0-9]*")
	}
	if changes.Path != nil && !ValidPath(*changes.Path) {
		return kerrors.NewValidationError("path must start and end with '/' and match [A-Za-z0-9._/-]*")
	}
	return nil
}

// SyncStorageWithDB reconciles the blob directory against the metadata
// table: blobs with no metadata row are deleted, metadata rows with no
// backing blob are deleted. Intended to run inside a single UnitOfWork
// so both sides of the repair commit together.
func (s *Service) SyncStorageWithDB(ctx context.Context, uow *unitofwork.UnitOfWork) error {
	metaRows, err := uow.Meta.List(ctx, 0, 0)
	if err != nil {
		return err
	}
	metaIDs := make(map[string]*metastore.FileMeta, len(metaRows))
	for _, m := range metaRows {
		metaIDs[m.ID] = m
	}

	blobIDs, err := uow.Blob.List()
	if err != nil {
		return err
	}
	blobSet := make(map[string]bool, len(blobIDs))
	for _, id := range blobIDs {
		blobSet[id] = true
	}

	for _, id := range blobIDs {
		if _, ok := metaIDs[id]; !ok {
			if _, err := uow.Blob.Delete(id); err != nil {
				return err
			}
		}
	}

	for id, meta := range metaIDs {
		if !blobSet[id] {
			if err := uow.Meta.Delete(ctx, meta); err != nil {
				return err
			}
		}
	}

	return nil
}
