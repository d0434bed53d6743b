package handlers

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ludarr/ludarr/internal/enricher"
)

// CacheHandler exposes cache statistics and eviction endpoints
type CacheHandler struct {
	enricher   *enricher.Enricher
	invalidate func()
	logger     *logrus.Logger
}

// NewCacheHandler creates a cache handler. invalidate is called after any
// eviction so memoized library responses do not serve deleted data.
func NewCacheHandler(e *enricher.Enricher, invalidate func(), logger *logrus.Logger) *CacheHandler {
	return &CacheHandler{
		enricher:   e,
		invalidate: invalidate,
		logger:     logger,
	}
}

// Stats handles GET /api/cache/stats
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.enricher.GetCacheStats()
	if err != nil {
		h.logger.WithError(err).Error("Failed to read cache stats")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, stats)
}

// Clear handles DELETE /api/cache and DELETE /api/cache/{gameID}
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	gameID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/cache"), "/")

	var err error
	if gameID == "" {
		err = h.enricher.ClearAllCache()
	} else {
		err = h.enricher.ClearGameCache(gameID)
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to clear cache")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.invalidate()
	w.WriteHeader(http.StatusNoContent)
}
