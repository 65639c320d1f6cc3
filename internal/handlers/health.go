package handlers

import (
	"net/http"

	"photo-ingest/internal/logging"
)

// Health handles liveness probes. It reports ok whenever the process is
// able to serve HTTP at all.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSONStatus(w, "ok")
}

// Ready handles readiness probes. The service is ready only when the
// metadata database answers a ping; object storage is probed lazily on
// first use, so a storage outage degrades ingestion without flipping
// readiness.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		logging.Warn("readiness check failed: %v", err)
		writeJSONError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSONStatus(w, "ready")
}
