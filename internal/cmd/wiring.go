package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vertextoedge/resumable-http/internal/adapter/httptransport"
	"github.com/vertextoedge/resumable-http/internal/adapter/sqlite"
	"github.com/vertextoedge/resumable-http/internal/config"
	"github.com/vertextoedge/resumable-http/internal/resume"
)

func newTransport(cfg *config.Config) *httptransport.Transport {
	return httptransport.New(&httptransport.Config{
		UserAgent:             cfg.Transport.UserAgent,
		SkipTLSVerify:         cfg.Transport.SkipTLSVerify,
		BufferSizeKB:          cfg.Transport.BufferSizeKB,
		MaxIdleConnsPerHost:   cfg.Transport.MaxIdleConnsPerHost,
		DialTimeout:           cfg.Transport.GetDialTimeout(),
		ResponseHeaderTimeout: cfg.Transport.GetResponseHeaderTimeout(),
	})
}

func resumeOptions(cfg *config.ResumeConfig, logger *zap.Logger) []resume.Option {
	return []resume.Option{
		resume.WithMaxResumes(cfg.MaxResumes),
		resume.WithResumeInterval(cfg.GetInterval()),
		resume.WithStrictPartialContent(cfg.StrictPartialContent),
		resume.WithLogger(logger),
	}
}

func newClient(cfg *config.Config, logger *zap.Logger) *resume.Client {
	return resume.NewClient(newTransport(cfg), resumeOptions(&cfg.Resume, logger)...)
}

// openHistory opens the history store when database.path is set. The
// returned store is nil otherwise.
func openHistory(cfg *config.Config) (*sqlite.Store, error) {
	if cfg.Database.Path == "" {
		return nil, nil
	}
	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", cfg.Database.Path, err)
	}
	return store, nil
}

func requireHistory(cfg *config.Config) (*sqlite.Store, error) {
	if cfg.Database.Path == "" {
		return nil, fmt.Errorf("database.path is not configured (set it in the config file or RESUMABLE_DATABASE_PATH)")
	}
	return openHistory(cfg)
}

// parseHeaders turns "Key: Value" flags into a header set
func parseHeaders(values []string) (http.Header, error) {
	header := make(http.Header)
	for _, v := range values {
		key, value, ok := strings.Cut(v, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q, expected \"Key: Value\"", v)
		}
		header.Add(key, strings.TrimSpace(value))
	}
	return header, nil
}
