package fetcher

import (
	"github.com/vertextoedge/resumable-http/internal/port"
)

// SpaceManager checks the output disk has room for a download
type SpaceManager struct {
	fs              port.FileSystem
	reserveBytes    int64
	maxDiskUsagePct float64
}

// Ensure SpaceManager implements port.SpaceManager
var _ port.SpaceManager = (*SpaceManager)(nil)

// NewSpaceManager creates a new SpaceManager. A maxDiskUsagePct of zero
// disables the percentage check.
func NewSpaceManager(fs port.FileSystem, reserveBytes int64, maxDiskUsagePct float64) *SpaceManager {
	return &SpaceManager{
		fs:              fs,
		reserveBytes:    reserveBytes,
		maxDiskUsagePct: maxDiskUsagePct,
	}
}

// CheckSpace checks if there's enough space for a download of the given size.
// Unknown sizes (negative) always pass.
func (sm *SpaceManager) CheckSpace(size int64) (*port.SpaceCheckResult, error) {
	result := &port.SpaceCheckResult{
		RequiredBytes: size,
		ReserveBytes:  sm.reserveBytes,
	}
	if size < 0 {
		result.HasSpace = true
		return result, nil
	}

	usage, err := sm.fs.GetDiskUsage()
	if err != nil {
		return nil, err
	}
	// platforms without disk stats report zero total
	if usage.Total == 0 {
		result.HasSpace = true
		return result, nil
	}

	result.AvailableBytes = int64(usage.Free) - sm.reserveBytes
	result.DiskUsedPct = usage.UsedPct

	if size > result.AvailableBytes {
		return result, nil
	}

	if sm.maxDiskUsagePct > 0 {
		newUsedPct := float64(usage.Used+uint64(size)) / float64(usage.Total) * 100
		if newUsedPct >= sm.maxDiskUsagePct {
			return result, nil
		}
	}

	result.HasSpace = true
	return result, nil
}
