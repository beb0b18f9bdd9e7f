//go:build windows

package filesystem

import (
	"github.com/vertextoedge/resumable-http/internal/port"
)

// GetDiskUsage is not implemented on windows; it reports an empty disk so
// space checks are skipped.
func (m *Manager) GetDiskUsage() (*port.DiskUsage, error) {
	return &port.DiskUsage{}, nil
}
