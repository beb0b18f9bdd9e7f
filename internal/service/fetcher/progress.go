package fetcher

import (
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vertextoedge/resumable-http/internal/domain"
	"github.com/vertextoedge/resumable-http/internal/port"
	"github.com/vertextoedge/resumable-http/internal/resume"
	"github.com/vertextoedge/resumable-http/internal/util/ratelimiter"
)

// progressReader wraps a stream to report download progress
type progressReader struct {
	stream    *resume.Stream
	record    *domain.DownloadRecord
	downloads port.DownloadRepository
	limiter   *ratelimiter.Limiter
	logger    *zap.Logger
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.stream.Read(p)

	if n > 0 {
		if allowed, _ := r.limiter.Allow(); allowed {
			r.report()
		}
	}

	return n, err
}

func (r *progressReader) report() {
	pos := r.stream.Position()
	r.record.UpdateProgress(pos, r.stream.Resumes())

	fields := []zap.Field{
		zap.String("downloaded", humanize.IBytes(uint64(pos))),
		zap.Int("resumes", r.stream.Resumes()),
	}
	if total := r.stream.ContentLength(); total > 0 {
		fields = append(fields, zap.String("percent", humanize.FtoaWithDigits(float64(pos)/float64(total)*100, 1)))
	}
	r.logger.Info("download progress", fields...)

	if r.downloads != nil {
		if err := r.downloads.UpdateDownload(r.record); err != nil {
			r.logger.Warn("failed to update download progress", zap.Error(err))
		}
	}
}
