// Package fetcher downloads URLs to disk through resumable streams and
// records each download in the history store.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vertextoedge/resumable-http/internal/domain"
	"github.com/vertextoedge/resumable-http/internal/port"
	"github.com/vertextoedge/resumable-http/internal/resume"
	"github.com/vertextoedge/resumable-http/internal/util/ratelimiter"
)

// Config contains fetcher configuration
type Config struct {
	Concurrency      int
	ProgressInterval time.Duration
	Overwrite        bool
}

// DefaultConfig returns default fetcher configuration
func DefaultConfig() *Config {
	return &Config{
		Concurrency:      4,
		ProgressInterval: 5 * time.Second,
	}
}

// Job is one URL to download
type Job struct {
	URL string

	// Name is the destination below the output directory. Derived from the
	// URL path when empty.
	Name string

	Header http.Header
}

// Fetcher runs download jobs. Each job owns its own stream; the client and
// its transport are shared.
type Fetcher struct {
	config    *Config
	client    *resume.Client
	fs        port.FileSystem
	downloads port.DownloadRepository
	space     port.SpaceManager
	logger    *zap.Logger
}

// New creates a new Fetcher. downloads and space may be nil.
func New(
	cfg *Config,
	client *resume.Client,
	fs port.FileSystem,
	downloads port.DownloadRepository,
	space port.SpaceManager,
	logger *zap.Logger,
) *Fetcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ProgressInterval == 0 {
		cfg.ProgressInterval = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fetcher{
		config:    cfg,
		client:    client,
		fs:        fs,
		downloads: downloads,
		space:     space,
		logger:    logger,
	}
}

// FetchAll runs jobs with bounded concurrency. A failing job does not stop
// the others; results are returned in job order.
func (f *Fetcher) FetchAll(ctx context.Context, jobs []Job) []*domain.DownloadResult {
	results := make([]*domain.DownloadResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(f.config.Concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			results[i] = f.Fetch(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Fetch downloads one job to disk. The returned result always carries the
// bytes written so far; Err is set on failure.
func (f *Fetcher) Fetch(ctx context.Context, job Job) *domain.DownloadResult {
	result := &domain.DownloadResult{
		ID:  uuid.NewString(),
		URL: job.URL,
	}

	endpoint, err := domain.NewEndpoint(http.MethodGet, job.URL, job.Header)
	if err != nil {
		result.Err = err
		return result
	}

	name := job.Name
	if name == "" {
		name = NameFromURL(endpoint.URL)
	}
	dest := f.fs.Path(name)

	log := f.logger.With(
		zap.String("id", result.ID),
		zap.String("url", endpoint.URL),
		zap.String("dest", dest))

	if !f.config.Overwrite && f.fs.FileExists(dest) {
		result.Err = fmt.Errorf("%w: %s", domain.ErrAlreadyExists, dest)
		return result
	}

	record := domain.NewDownloadRecord(result.ID, endpoint, dest)
	f.createRecord(record, log)

	stream, err := f.open(ctx, job, log)
	if err != nil {
		f.fail(record, result, 0, 0, err, log)
		return result
	}
	defer stream.Close()

	record.ContentLength = stream.ContentLength()
	record.AcceptsRanges = stream.AcceptsRanges()

	if err := f.checkSpace(stream.ContentLength()); err != nil {
		f.fail(record, result, 0, 0, err, log)
		return result
	}

	log.Info("download started",
		zap.Int64("content_length", stream.ContentLength()),
		zap.Bool("accepts_ranges", stream.AcceptsRanges()))

	reader := &progressReader{
		stream:    stream,
		record:    record,
		downloads: f.downloads,
		limiter:   ratelimiter.New(f.config.ProgressInterval),
		logger:    log,
	}
	// skip the report for byte 0
	reader.limiter.Allow()

	finalPath, written, err := f.fs.WriteStream(name, reader)
	if err != nil {
		f.fail(record, result, written, stream.Resumes(), err, log)
		return result
	}

	result.Path = finalPath
	result.BytesWritten = written
	result.Resumes = stream.Resumes()

	if err := record.MarkDone(written, stream.Resumes()); err == nil {
		f.updateRecord(record, log)
	}

	log.Info("download finished",
		zap.String("size", humanize.IBytes(uint64(written))),
		zap.Int("resumes", stream.Resumes()),
		zap.Duration("duration", record.Duration()))

	return result
}

func (f *Fetcher) open(ctx context.Context, job Job, log *zap.Logger) (*resume.Stream, error) {
	req := f.client.NewRequest(http.MethodGet, job.URL)
	for key, values := range job.Header {
		for _, v := range values {
			req.Header(key, v)
		}
	}
	req.With(resume.WithResumeHook(func(ev resume.ResumeEvent) {
		log.Info("stream resumed",
			zap.Int64("offset", ev.Offset),
			zap.Int("attempt", ev.Attempt),
			zap.Int("status", ev.StatusCode),
			zap.NamedError("cause", ev.Cause))
	}))

	stream, err := req.Send(ctx)
	if err != nil {
		return nil, err
	}
	if err := resume.CheckStatus(stream); err != nil {
		return nil, err
	}
	return stream, nil
}

func (f *Fetcher) checkSpace(size int64) error {
	if f.space == nil {
		return nil
	}
	check, err := f.space.CheckSpace(size)
	if err != nil {
		return fmt.Errorf("failed to check disk space: %w", err)
	}
	if !check.HasSpace {
		return fmt.Errorf("%w: need %s, %s available",
			domain.ErrInsufficientSpace,
			humanize.IBytes(uint64(check.RequiredBytes)),
			humanize.IBytes(uint64(max(check.AvailableBytes, 0))))
	}
	return nil
}

func (f *Fetcher) fail(record *domain.DownloadRecord, result *domain.DownloadResult, written int64, resumes int, err error, log *zap.Logger) {
	result.BytesWritten = written
	result.Resumes = resumes
	result.Err = err

	if markErr := record.MarkFailed(written, resumes, err.Error()); markErr == nil {
		f.updateRecord(record, log)
	}

	log.Warn("download failed",
		zap.Int64("bytes", written),
		zap.Int("resumes", resumes),
		zap.Bool("resume_error", domain.IsResumeError(err)),
		zap.Error(err))
}

func (f *Fetcher) createRecord(record *domain.DownloadRecord, log *zap.Logger) {
	if f.downloads == nil {
		return
	}
	if err := f.downloads.CreateDownload(record); err != nil {
		log.Warn("failed to record download", zap.Error(err))
	}
}

func (f *Fetcher) updateRecord(record *domain.DownloadRecord, log *zap.Logger) {
	if f.downloads == nil {
		return
	}
	if err := f.downloads.UpdateDownload(record); err != nil {
		log.Warn("failed to update download record", zap.Error(err))
	}
}

// NameFromURL returns the last path segment of rawURL, or "download" when
// the URL has no usable file name.
func NameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." || strings.TrimSpace(base) == "" {
		return "download"
	}
	return base
}
