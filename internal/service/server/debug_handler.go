package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vertextoedge/resumable-http/internal/port"
)

// DebugHandler exposes the download history
type DebugHandler struct {
	downloads port.DownloadRepository
	logger    *zap.Logger
}

// NewDebugHandler creates a new DebugHandler
func NewDebugHandler(downloads port.DownloadRepository, logger *zap.Logger) *DebugHandler {
	return &DebugHandler{
		downloads: downloads,
		logger:    logger,
	}
}

// HandleStats handles history statistics requests
func (h *DebugHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.downloads.GetHistoryStats()
	if err != nil {
		h.logger.Error("failed to get history stats", zap.Error(err))
		http.Error(w, "Failed to get history stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// HandleDownloads lists recent downloads: /debug/downloads?limit=N
func (h *DebugHandler) HandleDownloads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.downloads.ListDownloads(limit)
	if err != nil {
		h.logger.Error("failed to list downloads", zap.Error(err))
		http.Error(w, "Failed to list downloads", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"downloads": records,
		"count":     len(records),
	})
}
