package port

import (
	"github.com/vertextoedge/resumable-http/internal/domain/repository"
)

// DownloadRepository is an alias to the domain repository interface
type DownloadRepository = repository.DownloadRepository
