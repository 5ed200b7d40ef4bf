package blobstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanin2004/orbis-file-storage/internal/blobstore/filelock"
	"github.com/vanin2004/orbis-file-storage/internal/kerrors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	root := t.TempDir()

	s, err := New(Config{
		Root:          root,
		PendingPrefix: "pending_",
		LockTimeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestSession_AddCommitGet(t *testing.T) {
	s := newTestStore(t)
	session := s.NewSession()

	if err := session.Add("blob-1", []byte("hello")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := session.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	read := s.NewSession()
	data, err := read.Get("blob-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Get returned %q, want %q", data, "hello")
	}
}

func TestSession_GetMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	session := s.NewSession()

	_, err := session.Get("does-not-exist")
	if !kerrors.Is(err, kerrors.NotFound) {
		t.Errorf("Get returned %v, want NotFound", err)
	}
}

func TestSession_CommitWritesStagingThenRenames(t *testing.T) {
	s := newTestStore(t)
	session := s.NewSession()

	if err := session.Add("blob-2", []byte("payload")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := session.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	stagingPath := filepath.Join(s.cfg.Root, "pending_blob-2")
	if _, err := os.Stat(stagingPath); err != nil {
		t.Fatalf("expected staging file to exist after Flush: %v", err)
	}

	if err := session.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if _, err := os.Stat(stagingPath); !os.IsNotExist(err) {
		t.Errorf("expected staging file to be gone after Commit")
	}

	finalPath := filepath.Join(s.cfg.Root, "blob-2")
	if _, err := os.Stat(finalPath); err != nil {
		t.Errorf("expected final file to exist after Commit: %v", err)
	}
}

func TestSession_RollbackRemovesStagingAndLeavesNoTrace(t *testing.T) {
	s := newTestStore(t)
	session := s.NewSession()

	if err := session.Add("blob-3", []byte("x")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := session.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	session.Rollback()

	stagingPath := filepath.Join(s.cfg.Root, "pending_blob-3")
	if _, err := os.Stat(stagingPath); !os.IsNotExist(err) {
		t.Errorf("expected staging file to be removed by Rollback")
	}

	exists := s.NewSession().Exists("blob-3")
	if exists {
		t.Errorf("expected blob-3 to not exist after rollback")
	}
}

func TestSession_DeleteReturnsFalseWhenAbsent(t *testing.T) {
	s := newTestStore(t)
	session := s.NewSession()

	removed, err := session.Delete("never-existed")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if removed {
		t.Errorf("Delete returned true, want false for absent blob")
	}
}

func TestSession_DeleteRemovesCommittedBlob(t *testing.T) {
	s := newTestStore(t)

	create := s.NewSession()
	if err := create.Add("blob-4", []byte("data")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := create.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	del := s.NewSession()
	removed, err := del.Delete("blob-4")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !removed {
		t.Errorf("Delete returned false, want true for present blob")
	}

	if s.NewSession().Exists("blob-4") {
		t.Errorf("expected blob-4 to be gone after Delete")
	}
}

func TestSession_CommitReleasesLocksEvenOnRenameFailure(t *testing.T) {
	s := newTestStore(t)
	session := s.NewSession()

	if err := session.Add("blob-8", []byte("x")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := session.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	stagingPath := filepath.Join(s.cfg.Root, "pending_blob-8")
	if err := os.Remove(stagingPath); err != nil {
		t.Fatalf("failed to remove staging file: %v", err)
	}

	if err := session.Commit(); err == nil {
		t.Fatalf("expected Commit to fail once the staging file has vanished")
	}

	lock, err := filelock.TryAcquire(filepath.Join(s.cfg.Root, "blob-8.lock"), filelock.Exclusive)
	if err != nil {
		t.Fatalf("TryAcquire failed: %v", err)
	}
	if lock == nil {
		t.Fatalf("expected lock on blob-8 to be released after a failed Commit, but it is still held")
	}
	_ = lock.Close()
}

func TestSession_DeleteReleasesLockImmediately(t *testing.T) {
	s := newTestStore(t)

	create := s.NewSession()
	if err := create.Add("blob-9", []byte("data")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := create.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	del := s.NewSession()
	if _, err := del.Delete("blob-9"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	lock, err := filelock.TryAcquire(filepath.Join(s.cfg.Root, "blob-9.lock"), filelock.Exclusive)
	if err != nil {
		t.Fatalf("TryAcquire failed: %v", err)
	}
	if lock == nil {
		t.Fatalf("expected lock on blob-9 to be released immediately after Delete, not held for the life of the session")
	}
	_ = lock.Close()
}

func TestSession_ListExcludesStagingAndLockFiles(t *testing.T) {
	s := newTestStore(t)

	session := s.NewSession()
	if err := session.Add("blob-5", []byte("a")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := session.Add("blob-6", []byte("b")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := session.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// Leave a stray staging file and touch a lock file, neither should
	// appear in List.
	if err := os.WriteFile(filepath.Join(s.cfg.Root, "pending_orphan"), []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write orphan staging file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(s.cfg.Root, "blob-5.lock"), []byte{}, 0o644); err != nil {
		t.Fatalf("failed to write lock file: %v", err)
	}

	ids, err := s.NewSession().List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	want := map[string]bool{"blob-5": true, "blob-6": true}
	got := map[string]bool{}
	for _, id := range ids {
		got[id] = true
	}
	for id := range want {
		if !got[id] {
			t.Errorf("List missing expected id %q, got %v", id, ids)
		}
	}
	if got["pending_orphan"] || got["blob-5.lock"] {
		t.Errorf("List leaked staging or lock file name: %v", ids)
	}
}

func TestStore_RecoverRemovesOrphanStagingFiles(t *testing.T) {
	root := t.TempDir()

	if err := os.WriteFile(filepath.Join(root, "pending_orphan-id"), []byte("stale"), 0o644); err != nil {
		t.Fatalf("failed to seed orphan staging file: %v", err)
	}

	s, err := New(Config{Root: root, PendingPrefix: "pending_", LockTimeout: time.Second})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.Recover(); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "pending_orphan-id")); !os.IsNotExist(err) {
		t.Errorf("expected orphan staging file to be removed by Recover")
	}
}

func TestSession_AddIsIdempotentWithinSession(t *testing.T) {
	s := newTestStore(t)
	session := s.NewSession()

	if err := session.Add("blob-7", []byte("first")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := session.Add("blob-7", []byte("second")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := session.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	data, err := s.NewSession().Get("blob-7")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("Get returned %q, want %q", data, "second")
	}
}
