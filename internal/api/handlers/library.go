package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/ludarr/ludarr/internal/enricher"
	"github.com/ludarr/ludarr/internal/models"
)

const libraryCacheKey = "library"

// LibraryHandler serves the enriched game library. Responses are memoized
// for a short TTL so list-heavy frontends do not hammer the enrichment
// pipeline; any cache mutation must call Invalidate.
type LibraryHandler struct {
	db       *models.Database
	enricher *enricher.Enricher
	memo     *gocache.Cache
	logger   *logrus.Logger
}

// NewLibraryHandler creates a library handler memoizing responses for ttl
func NewLibraryHandler(db *models.Database, e *enricher.Enricher, ttl time.Duration, logger *logrus.Logger) *LibraryHandler {
	return &LibraryHandler{
		db:       db,
		enricher: e,
		memo:     gocache.New(ttl, 2*ttl),
		logger:   logger,
	}
}

// Invalidate drops the memoized library response
func (h *LibraryHandler) Invalidate() {
	h.memo.Delete(libraryCacheKey)
}

// List handles GET /api/library
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if cached, ok := h.memo.Get(libraryCacheKey); ok {
		writeJSON(w, cached)
		return
	}

	enriched, err := h.enrichAll(r)
	if err != nil {
		h.logger.WithError(err).Error("Failed to build library")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.memo.SetDefault(libraryCacheKey, enriched)
	writeJSON(w, enriched)
}

// Refresh handles POST /api/library/refresh. It bypasses and replaces the
// memoized response; stale games hit their sources again.
func (h *LibraryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.Invalidate()

	enriched, err := h.enrichAll(r)
	if err != nil {
		h.logger.WithError(err).Error("Failed to refresh library")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.memo.SetDefault(libraryCacheKey, enriched)
	h.logger.WithField("count", len(enriched)).Info("Library refreshed")
	writeJSON(w, enriched)
}

func (h *LibraryHandler) enrichAll(r *http.Request) ([]*models.EnrichedGame, error) {
	games, err := h.db.GetAllGames()
	if err != nil {
		return nil, err
	}
	return h.enricher.EnrichGames(r.Context(), games)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
