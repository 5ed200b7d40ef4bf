package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vanin2004/orbis-file-storage/internal/logger"
	"github.com/vanin2004/orbis-file-storage/internal/metastore"
)

// likeEscaper escapes LIKE metacharacters (and the escape character
// itself) so a path prefix is matched literally, not as a wildcard
// pattern. '_' is a legal path character (see fileholder.pathRegex)
// but also LIKE's single-character wildcard.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// session is a single pgx.Tx-backed metastore.Session, live for one
// request and owned exclusively by that request's UnitOfWork.
type session struct {
	tx pgx.Tx
}

func (s *session) Save(ctx context.Context, meta *metastore.FileMeta) error {
	const query = `
		INSERT INTO file_meta (id, filename, extension, path, size, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.tx.Exec(ctx, query,
		meta.ID, meta.Filename, meta.Extension, meta.Path, meta.Size,
		meta.Comment, meta.CreatedAt, meta.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err, "file", meta.ID)
	}
	return nil
}

const selectColumns = `id, filename, extension, path, size, comment, created_at, updated_at`

func scanFileMeta(row pgx.Row) (*metastore.FileMeta, error) {
	var m metastore.FileMeta
	err := row.Scan(&m.ID, &m.Filename, &m.Extension, &m.Path, &m.Size, &m.Comment, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *session) GetByID(ctx context.Context, id string) (*metastore.FileMeta, error) {
	query := `SELECT ` + selectColumns + ` FROM file_meta WHERE id = $1`
	m, err := scanFileMeta(s.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err, "file", id)
	}
	return m, nil
}

func (s *session) GetByTriple(ctx context.Context, path, filename, extension string) (*metastore.FileMeta, error) {
	query := `SELECT ` + selectColumns + ` FROM file_meta WHERE path = $1 AND filename = $2 AND extension = $3`
	m, err := scanFileMeta(s.tx.QueryRow(ctx, query, path, filename, extension))
	if err != nil {
		return nil, mapPgError(err, "file", "")
	}
	return m, nil
}

func (s *session) GetByPathPrefix(ctx context.Context, prefix string) ([]*metastore.FileMeta, error) {
	query := `SELECT ` + selectColumns + ` FROM file_meta WHERE path LIKE $1 ESCAPE '\' ORDER BY created_at ASC, id ASC`
	rows, err := s.tx.Query(ctx, query, likeEscaper.Replace(prefix)+"%")
	if err != nil {
		return nil, mapPgError(err, "file", "")
	}
	defer rows.Close()
	return collectFileMeta(rows)
}

func (s *session) List(ctx context.Context, limit, offset int) ([]*metastore.FileMeta, error) {
	query := `SELECT ` + selectColumns + ` FROM file_meta ORDER BY created_at ASC, id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += ` OFFSET $1`
		args = append(args, offset)
	}

	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err, "file", "")
	}
	defer rows.Close()
	return collectFileMeta(rows)
}

func collectFileMeta(rows pgx.Rows) ([]*metastore.FileMeta, error) {
	result := []*metastore.FileMeta{}
	for rows.Next() {
		m, err := scanFileMeta(rows)
		if err != nil {
			return nil, mapPgError(err, "file", "")
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "file", "")
	}
	return result, nil
}

func (s *session) Update(ctx context.Context, meta *metastore.FileMeta, changes metastore.Changes) error {
	if changes.IsEmpty() {
		return nil
	}

	filename := meta.Filename
	if changes.Filename != nil {
		filename = *changes.Filename
	}
	extension := meta.Extension
	if changes.Extension != nil {
		extension = *changes.Extension
	}
	path := meta.Path
	if changes.Path != nil {
		path = *changes.Path
	}
	comment := meta.Comment
	if changes.Comment != nil {
		comment = changes.Comment
	}

	now := time.Now().UTC()
	const query = `
		UPDATE file_meta
		SET filename = $1, extension = $2, path = $3, comment = $4, updated_at = $5
		WHERE id = $6
	`
	_, err := s.tx.Exec(ctx, query, filename, extension, path, comment, now, meta.ID)
	if err != nil {
		return mapPgError(err, "file", meta.ID)
	}

	meta.Filename, meta.Extension, meta.Path, meta.Comment, meta.UpdatedAt = filename, extension, path, comment, &now
	return nil
}

func (s *session) Delete(ctx context.Context, meta *metastore.FileMeta) error {
	const query = `DELETE FROM file_meta WHERE id = $1`
	_, err := s.tx.Exec(ctx, query, meta.ID)
	if err != nil {
		return mapPgError(err, "file", meta.ID)
	}
	return nil
}

func (s *session) Commit(ctx context.Context) error {
	err := s.tx.Commit(ctx)
	if err != nil && isRetryable(err) {
		logger.WarnCtx(ctx, "metastore commit hit a retryable error", logger.KeyError, err.Error())
	}
	return mapPgError(err, "", "")
}

func (s *session) Rollback(ctx context.Context) {
	if err := s.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		logger.WarnCtx(ctx, "metastore rollback failed", logger.KeyError, err.Error())
	}
}
