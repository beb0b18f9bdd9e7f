package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vertextoedge/resumable-http/internal/domain"
	"github.com/vertextoedge/resumable-http/internal/port"
)

// TempSuffix marks files that are still being downloaded
const TempSuffix = ".downloading"

const defaultBufferSize = 1024 * 1024

// Manager writes downloads below an output directory
type Manager struct {
	rootDir    string
	bufferSize int
}

// Ensure Manager implements port.FileSystem
var _ port.FileSystem = (*Manager)(nil)

// NewManager creates a new filesystem manager
func NewManager(rootDir string) (*Manager, error) {
	return NewManagerWithBufferSize(rootDir, defaultBufferSize)
}

// NewManagerWithBufferSize creates a new filesystem manager with custom buffer size
func NewManagerWithBufferSize(rootDir string, bufferSize int) (*Manager, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("%w: output dir is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	return &Manager{
		rootDir:    rootDir,
		bufferSize: bufferSize,
	}, nil
}

// RootDir returns the output root directory
func (m *Manager) RootDir() string {
	return m.rootDir
}

// Path returns the destination for name. Names are cleaned so they can
// never point outside the root directory.
func (m *Manager) Path(name string) string {
	clean := filepath.Clean("/" + filepath.ToSlash(name))
	return filepath.Join(m.rootDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
}

// TempPath returns the in-progress path for name
func (m *Manager) TempPath(name string) string {
	return m.Path(name) + TempSuffix
}

// WriteStream copies reader into the temp file for name, syncs it and
// renames it into place. The temp file is removed when the copy fails.
func (m *Manager) WriteStream(name string, reader io.Reader) (string, int64, error) {
	finalPath := m.Path(name)
	if finalPath == m.rootDir {
		return "", 0, fmt.Errorf("%w: empty file name", domain.ErrInvalidInput)
	}
	tempPath := finalPath + TempSuffix

	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create parent dir: %w", err)
	}

	f, err := os.Create(tempPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	buf := make([]byte, m.bufferSize)
	written, err := io.CopyBuffer(f, reader, buf)
	if err != nil {
		f.Close()
		os.Remove(tempPath)
		return "", written, fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return "", written, fmt.Errorf("failed to sync file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return "", written, fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		return "", written, fmt.Errorf("failed to rename temp file: %w", err)
	}

	return finalPath, written, nil
}

// DeleteFile removes a downloaded file
func (m *Manager) DeleteFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// FileExists checks if a file exists
func (m *Manager) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CleanOldTempFiles removes temp files older than the specified duration
func (m *Manager) CleanOldTempFiles(olderThan time.Duration) (int, error) {
	count := 0
	threshold := time.Now().Add(-olderThan)

	err := filepath.Walk(m.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != TempSuffix {
			return nil
		}
		if info.ModTime().Before(threshold) {
			if removeErr := os.Remove(path); removeErr == nil {
				count++
			}
		}
		return nil
	})
	return count, err
}
