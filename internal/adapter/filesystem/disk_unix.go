//go:build !windows

package filesystem

import (
	"fmt"
	"syscall"

	"github.com/vertextoedge/resumable-http/internal/port"
)

// GetDiskUsage returns disk usage for the output directory
func (m *Manager) GetDiskUsage() (*port.DiskUsage, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(m.rootDir, &stat); err != nil {
		return nil, fmt.Errorf("failed to get disk stats: %w", err)
	}

	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	used := total - free

	usage := &port.DiskUsage{
		Total: total,
		Used:  used,
		Free:  free,
	}
	if total > 0 {
		usage.UsedPct = float64(used) / float64(total) * 100
	}
	return usage, nil
}
