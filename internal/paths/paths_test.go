package paths

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAtomicWriteCreatesFileAndParent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "config.json")

	if err := AtomicWrite(target, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("got %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(target))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".temp" || len(e.Name()) > 5 && e.Name()[:6] == ".temp-" {
			t.Errorf("temp file %q was not cleaned up", e.Name())
		}
	}
}

func TestWithInstallLockLeavesLockOnFailure(t *testing.T) {
	dir := t.TempDir()

	err := WithInstallLock(dir, "", func() error {
		return os.ErrInvalid
	})
	if err == nil {
		t.Fatalf("expected body error to propagate")
	}
	if !HasInstallLock(dir) {
		t.Errorf("lock file should remain after a failed install")
	}
}

func TestWithInstallLockRemovesLockOnSuccess(t *testing.T) {
	dir := t.TempDir()

	if err := WithInstallLock(dir, "", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if HasInstallLock(dir) {
		t.Errorf("lock file should be removed after a successful install")
	}
}

func TestCleanupScratchReclaimsOldestFirst(t *testing.T) {
	dir := t.TempDir()
	for i, name := range []string{"a", "b", "c"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, make([]byte, 10), 0o644); err != nil {
			t.Fatal(err)
		}
		mtime := time.Now().Add(-time.Duration(3-i) * time.Hour)
		os.Chtimes(path, mtime, mtime)
	}

	reclaimed := CleanupScratch(dir, 15)
	if reclaimed <= 0 {
		t.Errorf("expected some bytes reclaimed, got %d", reclaimed)
	}

	if _, err := os.Stat(filepath.Join(dir, "a")); err == nil {
		t.Errorf("oldest file should have been removed first")
	}
}

func TestClasspathSeparatorMatchesOS(t *testing.T) {
	sep := ClasspathSeparator()
	if CurrentOS() == OSWindows && sep != ";" {
		t.Errorf("expected ; on windows, got %q", sep)
	}
	if CurrentOS() != OSWindows && sep != ":" {
		t.Errorf("expected : off windows, got %q", sep)
	}
}
