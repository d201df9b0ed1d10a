package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"photocache/downloader/internal/domain"

	"github.com/spf13/afero"
)

// DirectoryManager creates one directory per album under the cache root.
type DirectoryManager interface {
	Path(albumID domain.AlbumID) string
	EnsureDirectory(albumID domain.AlbumID) (string, error)
}

type directoryManager struct {
	fs   afero.Fs
	root string
}

func NewDirectoryManager(fs afero.Fs, root string) DirectoryManager {
	return &directoryManager{
		fs:   fs,
		root: root,
	}
}

// Path returns the directory of albumID without touching the filesystem.
func (m *directoryManager) Path(albumID domain.AlbumID) string {
	return filepath.Join(m.root, strconv.Itoa(int(albumID)))
}

// EnsureDirectory creates the album directory if it does not exist yet.
// Concurrent calls for the same album all succeed.
func (m *directoryManager) EnsureDirectory(albumID domain.AlbumID) (string, error) {
	dir := m.Path(albumID)

	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		return dir, fmt.Errorf("failed to create directory for album %d: %w", albumID, err)
	}

	info, err := m.fs.Stat(dir)
	if err != nil {
		return dir, fmt.Errorf("failed to stat directory for album %d: %w", albumID, err)
	}
	if !info.IsDir() {
		return dir, fmt.Errorf("album %d path %s is not a directory: %w", albumID, dir, os.ErrExist)
	}

	return dir, nil
}
