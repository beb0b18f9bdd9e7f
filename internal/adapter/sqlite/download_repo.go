package sqlite

import (
	"database/sql"
	"strings"
	"time"

	"github.com/vertextoedge/resumable-http/internal/domain"
)

const downloadColumns = `
	id, url, method, destination, status, bytes_downloaded, content_length,
	resumes, accepts_ranges, last_error, started_at, finished_at`

// CreateDownload inserts a new download record
func (s *Store) CreateDownload(record *domain.DownloadRecord) error {
	query := `
		INSERT INTO downloads (` + downloadColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		record.ID, record.URL, record.Method, record.Destination, record.Status,
		record.BytesDownloaded, record.ContentLength, record.Resumes,
		record.AcceptsRanges, nullString(record.LastError),
		record.StartedAt.UTC(), nullTime(record.FinishedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// UpdateDownload persists status, progress and error fields
func (s *Store) UpdateDownload(record *domain.DownloadRecord) error {
	query := `
		UPDATE downloads
		SET destination = ?, status = ?, bytes_downloaded = ?, content_length = ?,
			resumes = ?, accepts_ranges = ?, last_error = ?, finished_at = ?,
			updated_at = datetime('now')
		WHERE id = ?
	`

	result, err := s.db.Exec(query,
		record.Destination, record.Status, record.BytesDownloaded, record.ContentLength,
		record.Resumes, record.AcceptsRanges, nullString(record.LastError),
		nullTime(record.FinishedAt), record.ID)
	if err != nil {
		return err
	}

	count, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetDownload retrieves a record by ID
func (s *Store) GetDownload(id string) (*domain.DownloadRecord, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE id = ?`

	record, err := scanDownload(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return record, err
}

// ListDownloads returns the most recent records, newest first
func (s *Store) ListDownloads(limit int) ([]*domain.DownloadRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + downloadColumns + ` FROM downloads ORDER BY started_at DESC, id LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.DownloadRecord
	for rows.Next() {
		record, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetHistoryStats returns aggregate counters over all records
func (s *Store) GetHistoryStats() (*domain.HistoryStats, error) {
	stats := &domain.HistoryStats{}

	query := `
		SELECT status, COUNT(*), COALESCE(SUM(bytes_downloaded), 0), COALESCE(SUM(resumes), 0)
		FROM downloads
		GROUP BY status
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count, resumes int
		var bytes int64

		if err := rows.Scan(&status, &count, &bytes, &resumes); err != nil {
			return nil, err
		}

		stats.Total += count
		stats.TotalBytes += bytes
		stats.Resumes += resumes
		switch status {
		case domain.RecordStatusDone:
			stats.Done = count
		case domain.RecordStatusFailed:
			stats.Failed = count
		}
	}

	return stats, rows.Err()
}

// PruneDownloads removes finished records older than the specified duration.
// Running records are never removed.
func (s *Store) PruneDownloads(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).UTC()

	result, err := s.db.Exec(
		"DELETE FROM downloads WHERE status != ? AND finished_at IS NOT NULL AND finished_at < ?",
		domain.RecordStatusRunning, cutoff)
	if err != nil {
		return 0, err
	}

	count, err := result.RowsAffected()
	return int(count), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDownload(row rowScanner) (*domain.DownloadRecord, error) {
	record := &domain.DownloadRecord{}
	var lastError sql.NullString
	var finishedAt sql.NullTime

	err := row.Scan(
		&record.ID, &record.URL, &record.Method, &record.Destination, &record.Status,
		&record.BytesDownloaded, &record.ContentLength, &record.Resumes,
		&record.AcceptsRanges, &lastError, &record.StartedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastError.Valid {
		record.LastError = lastError.String
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		record.FinishedAt = &t
	}

	return record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// isUniqueConstraintError checks if the error is a unique constraint violation
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key")
}
