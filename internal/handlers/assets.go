package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"photo-ingest/internal/database"
	"photo-ingest/internal/keys"
	"photo-ingest/internal/logging"
)

// assetResponse is an Asset decorated with resolved public URLs.
type assetResponse struct {
	*database.Asset
	OriginalURL  string `json:"originalUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

func (h *Handlers) assetResponse(a *database.Asset) assetResponse {
	return assetResponse{
		Asset:        a,
		OriginalURL:  h.resolver.URL(a.OriginalKey, keys.ClassOriginal),
		ThumbnailURL: h.resolver.URL(a.ThumbnailKey, keys.ClassThumbnail),
	}
}

// GetAsset handles GET /api/images/{id}.
func (h *Handlers) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "invalid asset id", http.StatusBadRequest)
		return
	}

	asset, err := h.db.GetAsset(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "asset not found", http.StatusNotFound)
			return
		}
		logging.Error("get asset %d: %v", id, err)
		writeJSONError(w, "database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.assetResponse(asset))
}

// ListAssets handles GET /api/images with optional folder, page and
// pageSize query parameters.
func (h *Handlers) ListAssets(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 50)
	if pageSize > 200 {
		pageSize = 200
	}

	listing, err := h.db.ListAssets(r.Context(), folder, page, pageSize)
	if err != nil {
		logging.Error("list assets: %v", err)
		writeJSONError(w, "database error", http.StatusInternalServerError)
		return
	}

	items := make([]assetResponse, len(listing.Items))
	for i := range listing.Items {
		items[i] = h.assetResponse(&listing.Items[i])
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"items":      items,
		"totalItems": listing.TotalItems,
		"page":       listing.Page,
		"pageSize":   listing.PageSize,
		"totalPages": listing.TotalPages,
	})
}

// DeleteAsset handles DELETE /api/images/{id}. The metadata row is
// removed first so the asset stops resolving immediately; object
// deletion is best effort and failures only leave unreferenced blobs.
func (h *Handlers) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	principal := r.Header.Get(principalHeader)
	if principal == "" {
		writeJSONError(w, "missing "+principalHeader+" header", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "invalid asset id", http.StatusBadRequest)
		return
	}

	originalKey, thumbnailKey, err := h.db.DeleteAsset(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "asset not found", http.StatusNotFound)
			return
		}
		logging.Error("delete asset %d: %v", id, err)
		writeJSONError(w, "database error", http.StatusInternalServerError)
		return
	}

	for _, key := range []string{originalKey, thumbnailKey} {
		if err := h.store.Delete(r.Context(), key); err != nil {
			logging.Warn("delete asset %d: object %s not removed: %v", id, key, err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
