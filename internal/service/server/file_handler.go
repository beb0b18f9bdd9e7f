package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

var errInjectedFault = errors.New("injected connection fault")

// FileHandler serves files below a root directory
type FileHandler struct {
	rootDir        string
	failAfterBytes int64
	disableRanges  bool
	logger         *zap.Logger
}

// NewFileHandler creates a new FileHandler
func NewFileHandler(rootDir string, failAfterBytes int64, disableRanges bool, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		rootDir:        rootDir,
		failAfterBytes: failAfterBytes,
		disableRanges:  disableRanges,
		logger:         logger,
	}
}

// HandleDownload serves /files/{path}
func (h *FileHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, "/files/")
	if rel == "" {
		http.Error(w, "File path required", http.StatusBadRequest)
		return
	}
	localPath := filepath.Join(h.rootDir, filepath.FromSlash(strings.TrimPrefix(path.Clean("/"+rel), "/")))

	f, err := os.Open(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to open file", zap.String("path", localPath), zap.Error(err))
		http.Error(w, "File not available", http.StatusServiceUnavailable)
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	filename := filepath.Base(localPath)
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", filename))

	if h.failAfterBytes > 0 {
		w = &faultWriter{ResponseWriter: w, remaining: h.failAfterBytes}
	}

	if h.disableRanges {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", stat.Size()))
		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.Copy(w, f); err != nil {
			h.logger.Debug("file response aborted", zap.String("path", localPath), zap.Error(err))
		}
		return
	}

	// ServeContent handles Range, If-Range and sets Accept-Ranges: bytes
	http.ServeContent(w, r, filename, stat.ModTime(), f)
}

// faultWriter passes through up to remaining body bytes, then flushes and
// closes the underlying connection so the client sees a truncated body.
type faultWriter struct {
	http.ResponseWriter
	remaining int64
	tripped   bool
}

func (fw *faultWriter) Write(p []byte) (int, error) {
	if fw.tripped {
		return 0, errInjectedFault
	}
	if int64(len(p)) <= fw.remaining {
		n, err := fw.ResponseWriter.Write(p)
		fw.remaining -= int64(n)
		return n, err
	}

	n, _ := fw.ResponseWriter.Write(p[:fw.remaining])
	fw.remaining = 0
	fw.trip()
	return n, errInjectedFault
}

func (fw *faultWriter) trip() {
	fw.tripped = true
	rc := http.NewResponseController(fw.ResponseWriter)
	_ = rc.Flush()
	if conn, _, err := rc.Hijack(); err == nil {
		conn.Close()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController
func (fw *faultWriter) Unwrap() http.ResponseWriter {
	return fw.ResponseWriter
}
