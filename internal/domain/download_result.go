package domain

// DownloadResult represents the result of a file download operation
type DownloadResult struct {
	// ID is the history record ID
	ID string

	// URL is the requested URL
	URL string

	// Path is the local path where the file was saved
	Path string

	// BytesWritten is the total bytes written to disk
	BytesWritten int64

	// Resumes is how many times the stream was resumed mid-transfer
	Resumes int

	// Err is set when the download failed
	Err error
}

// Resumed reports whether at least one resumption happened
func (r *DownloadResult) Resumed() bool {
	return r.Resumes > 0
}
