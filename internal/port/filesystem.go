package port

import (
	"io"
	"time"
)

// DiskUsage represents disk usage statistics
type DiskUsage struct {
	Total   uint64  // Total disk space in bytes
	Used    uint64  // Used disk space in bytes
	Free    uint64  // Free disk space in bytes
	UsedPct float64 // Used percentage (0-100)
}

// FileSystem defines the interface for writing downloads to disk
type FileSystem interface {
	// RootDir returns the output root directory
	RootDir() string

	// Path returns the local destination path for a download name
	Path(name string) string

	// TempPath returns the in-progress path for a download name
	TempPath(name string) string

	// WriteStream copies reader into a temp file and renames it into place
	// Returns: final path, bytes written, error
	WriteStream(name string, reader io.Reader) (string, int64, error)

	// DeleteFile removes a downloaded file
	DeleteFile(path string) error

	// FileExists checks if a file exists
	FileExists(path string) bool

	// GetDiskUsage returns disk usage statistics for the root directory
	GetDiskUsage() (*DiskUsage, error)

	// CleanOldTempFiles removes temp files older than the specified duration
	// Returns the number of files deleted
	CleanOldTempFiles(olderThan time.Duration) (int, error)
}
