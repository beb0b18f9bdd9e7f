package repository

import (
	"time"

	"github.com/vertextoedge/resumable-http/internal/domain"
)

// DownloadRepository defines the interface for download history operations
type DownloadRepository interface {
	// CreateDownload inserts a new record
	// Returns domain.ErrAlreadyExists if the ID is taken
	CreateDownload(record *domain.DownloadRecord) error

	// UpdateDownload persists status, progress and error fields
	UpdateDownload(record *domain.DownloadRecord) error

	// GetDownload retrieves a record by ID
	// Returns domain.ErrNotFound if missing
	GetDownload(id string) (*domain.DownloadRecord, error)

	// ListDownloads returns the most recent records, newest first
	ListDownloads(limit int) ([]*domain.DownloadRecord, error)

	// GetHistoryStats returns aggregate counters
	GetHistoryStats() (*domain.HistoryStats, error)

	// PruneDownloads removes finished records older than the specified duration
	PruneDownloads(olderThan time.Duration) (int, error)

	// Ping checks store connectivity
	Ping() error
}
