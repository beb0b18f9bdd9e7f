// Package server runs a range-capable origin that serves files from a
// directory, with optional fault injection for exercising resumption.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/resumable-http/internal/port"
)

// Config contains HTTP server configuration
type Config struct {
	BindAddr string
	RootDir  string

	// FailAfterBytes aborts every file response after this many body
	// bytes by closing the connection. 0 disables the fault.
	FailAfterBytes int64

	// DisableRanges serves full bodies only and omits Accept-Ranges
	DisableRanges bool

	// DebugUsername and DebugPassword protect /debug/ when both are set
	DebugUsername string
	DebugPassword string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		BindAddr:    "127.0.0.1:8080",
		RootDir:     ".",
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}

// Server represents the origin HTTP server
type Server struct {
	config       *Config
	downloads    port.DownloadRepository
	logger       *zap.Logger
	server       *http.Server
	handler      http.Handler
	fileHandler  *FileHandler
	debugHandler *DebugHandler
}

// New creates a new HTTP server. downloads may be nil, in which case the
// debug endpoints are not registered.
func New(cfg *Config, downloads port.DownloadRepository, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:    cfg,
		downloads: downloads,
		logger:    logger,
	}

	s.fileHandler = NewFileHandler(cfg.RootDir, cfg.FailAfterBytes, cfg.DisableRanges, logger)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// File download endpoint
	mux.HandleFunc("/files/", s.fileHandler.HandleDownload)

	// Debug endpoints
	if downloads != nil {
		s.debugHandler = NewDebugHandler(downloads, logger)
		stats := http.HandlerFunc(s.debugHandler.HandleStats)
		list := http.HandlerFunc(s.debugHandler.HandleDownloads)
		if cfg.DebugUsername != "" && cfg.DebugPassword != "" {
			auth := BasicAuthMiddleware(cfg.DebugUsername, cfg.DebugPassword, logger)
			stats = auth(stats)
			list = auth(list)
		}
		mux.HandleFunc("/debug/stats", stats)
		mux.HandleFunc("/debug/downloads", list)
	}

	s.handler = LoggingMiddleware(logger)(mux)
	s.server = &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.String("addr", s.server.Addr),
		zap.String("root", s.config.RootDir),
		zap.Int64("fail_after_bytes", s.config.FailAfterBytes),
		zap.Bool("ranges", !s.config.DisableRanges))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Serve accepts connections on l until Stop is called
func (s *Server) Serve(l net.Listener) error {
	if err := s.server.Serve(l); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.downloads != nil {
		if err := s.downloads.Ping(); err != nil {
			s.logger.Error("health check failed", zap.Error(err))
			http.Error(w, "Database connection failed", http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy","time":"` + time.Now().Format(time.RFC3339) + `"}`))
}
