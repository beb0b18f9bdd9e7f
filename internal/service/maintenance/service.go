package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/resumable-http/internal/port"
)

// Config contains maintenance service configuration
type Config struct {
	// CleanupInterval is how often to run cleanup when started as a loop
	CleanupInterval time.Duration

	// HistoryMaxAge is the maximum age of finished history records
	HistoryMaxAge time.Duration

	// TempFileMaxAge is the maximum age of abandoned temp files
	TempFileMaxAge time.Duration
}

// DefaultConfig returns default maintenance configuration
func DefaultConfig() *Config {
	return &Config{
		CleanupInterval: time.Hour,
		HistoryMaxAge:   30 * 24 * time.Hour,
		TempFileMaxAge:  24 * time.Hour,
	}
}

// Report is the outcome of one cleanup run
type Report struct {
	TempFilesRemoved int
	RecordsPruned    int
}

// Service removes abandoned temp files and prunes old history
type Service struct {
	config    *Config
	downloads port.DownloadRepository
	fs        port.FileSystem
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new maintenance Service. downloads may be nil when no
// history store is configured.
func New(cfg *Config, downloads port.DownloadRepository, fs port.FileSystem, logger *zap.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Hour
	}
	if cfg.HistoryMaxAge == 0 {
		cfg.HistoryMaxAge = 30 * 24 * time.Hour
	}
	if cfg.TempFileMaxAge == 0 {
		cfg.TempFileMaxAge = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		config:    cfg,
		downloads: downloads,
		fs:        fs,
		logger:    logger,
	}
}

// RunOnce performs a single cleanup pass. Both steps run even when the
// first fails; the first error is returned.
func (s *Service) RunOnce(ctx context.Context) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{}
	var firstErr error

	if s.fs != nil {
		count, err := s.fs.CleanOldTempFiles(s.config.TempFileMaxAge)
		if err != nil {
			s.logger.Error("failed to cleanup old temp files", zap.Error(err))
			firstErr = fmt.Errorf("failed to cleanup temp files: %w", err)
		} else if count > 0 {
			s.logger.Info("cleaned up old temp files", zap.Int("count", count))
		}
		report.TempFilesRemoved = count
	}

	if s.downloads != nil {
		count, err := s.downloads.PruneDownloads(s.config.HistoryMaxAge)
		if err != nil {
			s.logger.Error("failed to prune download history", zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to prune history: %w", err)
			}
		} else if count > 0 {
			s.logger.Info("pruned download history", zap.Int("count", count))
		}
		report.RecordsPruned = count
	}

	return report, firstErr
}

// Start runs cleanup every CleanupInterval until ctx is done or Stop is
// called
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("maintenance service already running")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("maintenance service started",
		zap.Duration("cleanup_interval", s.config.CleanupInterval))

	s.wg.Add(1)
	go s.maintenanceLoop(ctx)

	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("maintenance service stopped")
	return nil
}

// Stop stops the maintenance service
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
}

func (s *Service) maintenanceLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}
