package domain

// DownloadState is the state of one logical download
type DownloadState int

const (
	StateStreaming DownloadState = iota
	StateResuming
	StateDone
	StateFailed
)

func (s DownloadState) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateResuming:
		return "resuming"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true for Done and Failed
func (s DownloadState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}
