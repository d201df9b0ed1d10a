package storage

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

func TestDirectoryManager_Path(t *testing.T) {
	m := NewDirectoryManager(afero.NewMemMapFs(), "/cache")

	if got := m.Path(7); got != filepath.Join("/cache", "7") {
		t.Errorf("Path(7) = %q", got)
	}
}

func TestDirectoryManager_EnsureDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := NewDirectoryManager(fs, "/cache")

	dir, err := m.EnsureDirectory(3)
	if err != nil {
		t.Fatalf("EnsureDirectory() error = %v", err)
	}

	ok, err := afero.DirExists(fs, dir)
	if err != nil || !ok {
		t.Fatalf("directory %s missing (err=%v)", dir, err)
	}

	// Second call is a no-op.
	again, err := m.EnsureDirectory(3)
	if err != nil {
		t.Fatalf("second EnsureDirectory() error = %v", err)
	}
	if again != dir {
		t.Errorf("EnsureDirectory returned %q then %q", dir, again)
	}
}

func TestDirectoryManager_EnsureDirectoryConcurrent(t *testing.T) {
	root := t.TempDir()
	m := NewDirectoryManager(afero.NewOsFs(), root)

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.EnsureDirectory(1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("EnsureDirectory() error = %v", err)
	}

	entries, err := afero.ReadDir(afero.NewOsFs(), root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "1" || !entries[0].IsDir() {
		t.Errorf("cache root entries = %v, want exactly one directory named 1", entries)
	}
}

func TestDirectoryManager_EnsureDirectoryOverFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/cache/2", []byte("not a dir"), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewDirectoryManager(fs, "/cache")
	if _, err := m.EnsureDirectory(2); err == nil {
		t.Fatal("expected error when a file occupies the album path")
	}
}

func TestDirectoryManager_ReadOnlyFs(t *testing.T) {
	m := NewDirectoryManager(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/cache")

	if _, err := m.EnsureDirectory(1); err == nil {
		t.Fatal("expected error on a read-only filesystem")
	}
}
