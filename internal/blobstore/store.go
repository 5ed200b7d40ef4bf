// Package blobstore implements the content-addressed blob directory:
// a single-writer per-request Session that stages writes and deletes
// in memory, commits them with a staging-file-then-rename protocol,
// and coordinates access across processes with per-blob flock locks.
package blobstore

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanin2004/orbis-file-storage/internal/blobstore/filelock"
	"github.com/vanin2004/orbis-file-storage/internal/kerrors"
	"github.com/vanin2004/orbis-file-storage/internal/logger"
	"github.com/vanin2004/orbis-file-storage/internal/metrics"
)

// observeBlobOp records a blob store operation outcome for Prometheus.
func observeBlobOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.BlobOperationsTotal.WithLabelValues(op, outcome).Inc()
}

const lockFileSuffix = ".lock"

// Config configures a Store and every Session it opens.
type Config struct {
	// Root is the directory holding committed and staging blobs.
	Root string
	// PendingPrefix names staging files: <Root>/<PendingPrefix><id>.
	PendingPrefix string
	// LockTimeout bounds how long Session calls wait to acquire a
	// per-blob lock before failing with kerrors.LockTimeout.
	LockTimeout time.Duration
}

// Store is the shared, long-lived collaborator that opens per-request
// Sessions against a single storage root. It holds no per-request state.
type Store struct {
	cfg Config
}

// New validates cfg and returns a Store. The root directory is created
// if it does not already exist.
func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, kerrors.NewValidationError("blob store root is required")
	}
	if cfg.PendingPrefix == "" {
		cfg.PendingPrefix = "pending_"
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 10 * time.Second
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, kerrors.NewBlobStoreUnavailableError(err)
	}
	return &Store{cfg: cfg}, nil
}

// NewSession opens a fresh per-request Session bound to this Store's
// configuration. Sessions are not safe for concurrent use.
func (s *Store) NewSession() *Session {
	return &Session{
		root:          s.cfg.Root,
		pendingPrefix: s.cfg.PendingPrefix,
		lockTimeout:   s.cfg.LockTimeout,
		pending:       make(map[string]pendingEntry),
		locks:         make(map[string]*filelock.Lock),
	}
}

// Recover scans the storage root for orphaned staging files left by a
// crash between flush and commit and removes them. It is a process-wide
// startup step, run once before any request is served.
func (s *Store) Recover() error {
	entries, err := os.ReadDir(s.cfg.Root)
	if err != nil {
		return kerrors.NewBlobStoreUnavailableError(err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, s.cfg.PendingPrefix) {
			continue
		}

		id := strings.TrimPrefix(name, s.cfg.PendingPrefix)
		lockPath := filepath.Join(s.cfg.Root, id+lockFileSuffix)

		lock, err := filelock.TryAcquire(lockPath, filelock.Exclusive)
		if err != nil || lock == nil {
			// Held by another live process, or otherwise unavailable:
			// skip and continue, per recover()'s best-effort contract.
			logger.Warn("skipping orphan staging file, could not lock", logger.KeyBlobID, id)
			continue
		}

		stagingPath := filepath.Join(s.cfg.Root, name)
		if err := os.Remove(stagingPath); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove orphan staging file", logger.KeyBlobID, id, logger.KeyError, err.Error())
		}
		_ = lock.Close()
	}

	return nil
}

// pendingEntry tracks the state machine of one staged blob id.
type pendingEntry struct {
	bytes   []byte
	flushed bool
}

// Session is a single-writer, single-request view of the blob
// directory: deferred writes staged in memory, promoted atomically on
// Commit.
type Session struct {
	root          string
	pendingPrefix string
	lockTimeout   time.Duration

	pending map[string]pendingEntry
	locks   map[string]*filelock.Lock
}

func (s *Session) finalPath(id string) string {
	return filepath.Join(s.root, id)
}

func (s *Session) stagingPath(id string) string {
	return filepath.Join(s.root, s.pendingPrefix+id)
}

func (s *Session) lockPath(id string) string {
	return filepath.Join(s.root, id+lockFileSuffix)
}

// acquire obtains a lock of the given mode on id, reusing or upgrading
// any lock already held by this session.
func (s *Session) acquire(id string, mode filelock.Mode) error {
	if existing, ok := s.locks[id]; ok {
		if existing.Mode() == mode || mode == filelock.Shared {
			return nil
		}
		// Upgrade shared -> exclusive by releasing and re-acquiring.
		_ = existing.Close()
		delete(s.locks, id)
	}

	lock, err := filelock.Acquire(s.lockPath(id), mode, s.lockTimeout)
	if err != nil {
		return err
	}
	s.locks[id] = lock
	return nil
}

func (s *Session) releaseAll() {
	for id, lock := range s.locks {
		_ = lock.Close()
		delete(s.locks, id)
	}
}

// Add stages a write under key id. Idempotent within a session: a
// later Add overwrites earlier pending bytes for the same id.
func (s *Session) Add(id string, data []byte) (err error) {
	defer func() { observeBlobOp("add", err) }()

	if err = s.acquire(id, filelock.Exclusive); err != nil {
		return err
	}
	s.pending[id] = pendingEntry{bytes: data}
	return nil
}

// Get reads committed bytes for id, failing with kerrors.NotFound if
// the blob does not exist on disk.
func (s *Session) Get(id string) ([]byte, error) {
	lock, err := filelock.Acquire(s.lockPath(id), filelock.Shared, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Close() }()

	data, err := os.ReadFile(s.finalPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kerrors.NewNotFoundError("blob", id)
		}
		return nil, kerrors.NewBlobStoreUnavailableError(err)
	}
	return data, nil
}

// Delete removes the committed file for id under an exclusive lock,
// returning whether a file was present to remove. Any pending (not yet
// committed) write for id is discarded. A lock taken by Delete itself is
// released before Delete returns, regardless of outcome; if this session
// already holds the lock on id (from Add), that lock is used and stays
// held until Commit or Rollback.
func (s *Session) Delete(id string) (ok bool, err error) {
	defer func() { observeBlobOp("delete", err) }()

	if _, held := s.locks[id]; !held {
		lock, err := filelock.Acquire(s.lockPath(id), filelock.Exclusive, s.lockTimeout)
		if err != nil {
			return false, err
		}
		defer func() { _ = lock.Close() }()
	}

	delete(s.pending, id)

	path := s.finalPath(id)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, kerrors.NewBlobStoreUnavailableError(err)
	}

	if err := os.Remove(path); err != nil {
		return false, kerrors.NewBlobStoreUnavailableError(err)
	}
	return true, nil
}

// Exists reports whether a committed blob for id is present, without
// acquiring a lock.
func (s *Session) Exists(id string) bool {
	_, err := os.Stat(s.finalPath(id))
	return err == nil
}

// List enumerates committed blob ids, excluding staging and lock
// side files.
func (s *Session) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, kerrors.NewBlobStoreUnavailableError(err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, s.pendingPrefix) || strings.HasSuffix(name, lockFileSuffix) {
			continue
		}
		ids = append(ids, name)
	}
	return ids, nil
}

// Flush writes every pending entry to its staging path. Idempotent:
// an entry already flushed is not rewritten.
func (s *Session) Flush() error {
	for id, entry := range s.pending {
		if entry.flushed {
			continue
		}
		if err := os.WriteFile(s.stagingPath(id), entry.bytes, 0o644); err != nil {
			return kerrors.NewBlobWriteFailedError(id, err)
		}
		entry.flushed = true
		s.pending[id] = entry
	}
	return nil
}

// Commit flushes any unflushed pending entries, then atomically
// renames each staging file onto its final path, and releases every
// lock held by this session.
func (s *Session) Commit() (err error) {
	defer s.releaseAll()
	defer func() { observeBlobOp("commit", err) }()

	if err = s.Flush(); err != nil {
		return err
	}

	for id := range s.pending {
		final := s.finalPath(id)
		if _, err := os.Stat(final); err == nil {
			if err := os.Remove(final); err != nil {
				return kerrors.NewBlobWriteFailedError(id, err)
			}
		}
		if err := os.Rename(s.stagingPath(id), final); err != nil {
			return kerrors.NewBlobWriteFailedError(id, err)
		}
	}

	s.pending = make(map[string]pendingEntry)
	return nil
}

// Rollback removes any flushed staging files and releases every lock
// held by this session. Never returns an error for a clean (nothing
// flushed) session.
func (s *Session) Rollback() {
	for id, entry := range s.pending {
		if !entry.flushed {
			continue
		}
		if err := os.Remove(s.stagingPath(id)); err != nil && !os.IsNotExist(err) {
			logger.Warn("rollback failed to remove staging file", logger.KeyBlobID, id, logger.KeyError, err.Error())
		}
	}
	s.pending = make(map[string]pendingEntry)
	s.releaseAll()
}
