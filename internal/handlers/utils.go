package handlers

import (
	"encoding/json"
	"net/http"

	"photo-ingest/internal/ingest"
	"photo-ingest/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Encoding errors are logged since we cannot recover from them once the
// handler has started writing.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": status})
}

// ingestErrorBody is the JSON error shape for failed ingestion runs.
// WrittenKeys names objects that were durably stored before the failure
// so the caller can retry or issue compensating deletes.
type ingestErrorBody struct {
	Error       string   `json:"error"`
	Kind        string   `json:"kind"`
	Retriable   bool     `json:"retriable"`
	WrittenKeys []string `json:"writtenKeys,omitempty"`
}

// writeIngestError maps a pipeline failure to an HTTP response.
func writeIngestError(w http.ResponseWriter, err error) {
	kind, ok := ingest.KindOf(err)
	if !ok {
		writeJSONError(w, "ingestion failed", http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch kind {
	case ingest.KindInvalidInput, ingest.KindDecodeFailure:
		status = http.StatusBadRequest
	case ingest.KindStorageFailure:
		status = http.StatusBadGateway
	case ingest.KindPersistenceFailure:
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, ingestErrorBody{
		Error:       err.Error(),
		Kind:        string(kind),
		Retriable:   kind.Retriable(),
		WrittenKeys: ingest.WrittenKeys(err),
	})
}
