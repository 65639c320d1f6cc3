package handlers

import (
	"net/http"

	"photo-ingest/internal/startup"
)

// Version handles GET /api/version and reports build metadata.
func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, startup.GetBuildInfo())
}
