package port

// SpaceCheckResult contains detailed space availability information
type SpaceCheckResult struct {
	HasSpace       bool
	RequiredBytes  int64
	AvailableBytes int64
	ReserveBytes   int64
	DiskUsedPct    float64
}

// SpaceManager checks the destination has room for a download
type SpaceManager interface {
	// CheckSpace checks if there's enough space for a download of the given size.
	// A negative size means unknown and always passes.
	CheckSpace(size int64) (*SpaceCheckResult, error)
}
