package domain

import "time"

// Download record status constants
const (
	RecordStatusRunning = "running"
	RecordStatusDone    = "done"
	RecordStatusFailed  = "failed"
)

// DownloadRecord is one logical download kept in the history store
type DownloadRecord struct {
	ID          string
	URL         string
	Method      string
	Destination string

	// State
	Status string

	// Transfer
	BytesDownloaded int64
	ContentLength   int64
	Resumes         int
	AcceptsRanges   bool
	LastError       string

	// Timestamps
	StartedAt  time.Time
	FinishedAt *time.Time
}

// NewDownloadRecord creates a running record for endpoint
func NewDownloadRecord(id string, endpoint Endpoint, destination string) *DownloadRecord {
	return &DownloadRecord{
		ID:            id,
		URL:           endpoint.URL,
		Method:        endpoint.Method,
		Destination:   destination,
		Status:        RecordStatusRunning,
		ContentLength: -1,
		StartedAt:     time.Now(),
	}
}

// UpdateProgress records the bytes delivered so far and the resume count
func (r *DownloadRecord) UpdateProgress(bytes int64, resumes int) {
	r.BytesDownloaded = bytes
	r.Resumes = resumes
}

// MarkDone marks the record as finished successfully
func (r *DownloadRecord) MarkDone(bytes int64, resumes int) error {
	if r.Status != RecordStatusRunning {
		return ErrInvalidStateTransition
	}
	r.UpdateProgress(bytes, resumes)
	r.Status = RecordStatusDone
	r.LastError = ""
	now := time.Now()
	r.FinishedAt = &now
	return nil
}

// MarkFailed marks the record as failed with an error message
func (r *DownloadRecord) MarkFailed(bytes int64, resumes int, err string) error {
	if r.Status != RecordStatusRunning {
		return ErrInvalidStateTransition
	}
	r.UpdateProgress(bytes, resumes)
	r.Status = RecordStatusFailed
	r.LastError = err
	now := time.Now()
	r.FinishedAt = &now
	return nil
}

// Duration returns how long the download ran. Running records report the
// time elapsed so far.
func (r *DownloadRecord) Duration() time.Duration {
	if r.FinishedAt == nil {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HistoryStats summarizes the history store
type HistoryStats struct {
	Total      int
	Done       int
	Failed     int
	TotalBytes int64
	Resumes    int
}
