// Package filelock provides OS-level advisory file locking (flock(2))
// keyed by blob id, visible across processes sharing a blob store
// directory.
//
// A mutex map is deliberately not used here: recover() must interact
// correctly with other processes (and a future multi-worker deployment)
// touching the same directory, which an in-process lock cannot do.
package filelock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/vanin2004/orbis-file-storage/internal/kerrors"
)

// Mode is the locking discipline requested for a blob id.
type Mode int

const (
	// Shared allows many concurrent holders, compatible with other Shared locks.
	Shared Mode = iota
	// Exclusive is a unique holder, incompatible with any other lock.
	Exclusive
)

// pollInterval is how often a blocked acquisition retries the
// non-blocking flock call.
const pollInterval = 100 * time.Millisecond

// Lock is a held advisory lock on a single side file. Close releases it.
type Lock struct {
	file *os.File
	mode Mode
}

// Mode reports which mode this lock was acquired with.
func (l *Lock) Mode() Mode {
	return l.mode
}

// Close releases the lock and closes the underlying side file handle.
// Safe to call on a nil Lock.
func (l *Lock) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// Acquire blocks (cooperatively, via polling) until a lock of the given
// mode is obtained on path, or timeout elapses. On timeout it returns a
// kerrors.LockTimeout error.
func Acquire(path string, mode Mode, timeout time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, kerrors.NewBlobStoreUnavailableError(err)
	}

	how := unix.LOCK_EX | unix.LOCK_NB
	if mode == Shared {
		how = unix.LOCK_SH | unix.LOCK_NB
	}

	deadline := time.Now().Add(timeout)
	for {
		err := unix.Flock(int(f.Fd()), how)
		if err == nil {
			return &Lock{file: f, mode: mode}, nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EAGAIN {
			_ = f.Close()
			return nil, kerrors.NewBlobStoreUnavailableError(err)
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, kerrors.NewLockTimeoutError(strings.TrimSuffix(filepath.Base(path), ".lock"))
		}
		time.Sleep(pollInterval)
	}
}

// TryAcquire attempts a single non-blocking acquisition, returning
// (nil, nil) if it would block rather than waiting.
func TryAcquire(path string, mode Mode) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, kerrors.NewBlobStoreUnavailableError(err)
	}

	how := unix.LOCK_EX | unix.LOCK_NB
	if mode == Shared {
		how = unix.LOCK_SH | unix.LOCK_NB
	}

	if err := unix.Flock(int(f.Fd()), how); err != nil {
		_ = f.Close()
		if err == unix.EWOULDBLOCK || err == unix.EAGAIN {
			return nil, nil
		}
		return nil, kerrors.NewBlobStoreUnavailableError(err)
	}

	return &Lock{file: f, mode: mode}, nil
}

// PathFor returns the lock side-file path for a blob id under root.
func PathFor(root, id string) string {
	return fmt.Sprintf("%s/%s.lock", root, id)
}
