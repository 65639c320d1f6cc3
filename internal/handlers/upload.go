package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"photo-ingest/internal/ingest"
	"photo-ingest/internal/logging"
	"photo-ingest/internal/pipeline"
)

// Upload handles POST /api/images. It reads a single image from the
// "file" multipart part along with its descriptive form fields, runs it
// through the ingestion pipeline, and returns the stored asset's URLs.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	principal := r.Header.Get(principalHeader)
	if principal == "" {
		writeJSONError(w, "missing "+principalHeader+" header", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSONError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer cleanupMultipart(r)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "missing file part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	req, err := buildRequest(file, header, r, principal)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.coord.Ingest(r.Context(), *req)
	if err != nil {
		writeIngestError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, result)
}

// UploadBatch handles POST /api/images/batch. Each "file" part becomes
// its own independent ingestion run; the response carries a per-item
// outcome in submission order, so partial success is expected.
func (h *Handlers) UploadBatch(w http.ResponseWriter, r *http.Request) {
	principal := r.Header.Get(principalHeader)
	if principal == "" {
		writeJSONError(w, "missing "+principalHeader+" header", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSONError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer cleanupMultipart(r)

	if r.MultipartForm == nil || len(r.MultipartForm.File["file"]) == 0 {
		writeJSONError(w, "no file parts in batch", http.StatusBadRequest)
		return
	}
	headers := r.MultipartForm.File["file"]

	reqs := make([]ingest.Request, 0, len(headers))
	for _, fh := range headers {
		file, err := fh.Open()
		if err != nil {
			writeJSONError(w, "unreadable file part "+fh.Filename, http.StatusBadRequest)
			return
		}
		req, err := buildRequest(file, fh, r, principal)
		file.Close()
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		reqs = append(reqs, *req)
	}

	items := h.coord.IngestBatch(r.Context(), reqs, 0)

	type batchEntry struct {
		Index  int            `json:"index"`
		Result *ingest.Result `json:"result,omitempty"`
		Error  string         `json:"error,omitempty"`
		Kind   string         `json:"kind,omitempty"`
	}
	entries := make([]batchEntry, len(items))
	failed := 0
	for i, item := range items {
		entries[i] = batchEntry{Index: item.Index, Result: item.Result}
		if item.Err != nil {
			failed++
			entries[i].Error = item.Err.Error()
			if kind, ok := ingest.KindOf(item.Err); ok {
				entries[i].Kind = string(kind)
			}
		}
	}

	logging.Info("batch ingest: %d submitted, %d failed", len(items), failed)

	w.Header().Set("Content-Type", "application/json")
	if failed == len(items) && len(items) > 0 {
		w.WriteHeader(http.StatusBadGateway)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	writeJSON(w, map[string]interface{}{"items": entries})
}

// buildRequest assembles an ingestion request from one multipart file
// part plus the shared form fields of the enclosing request.
func buildRequest(file multipart.File, header *multipart.FileHeader, r *http.Request, principal string) (*ingest.Request, error) {
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxUploadBytes {
		return nil, errPayloadTooLarge
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = sniffMIME(data, header.Filename)
	}

	req := &ingest.Request{
		Data:          data,
		MIMEType:      mimeType,
		Folder:        r.FormValue("folder"),
		Description:   r.FormValue("description"),
		AltText:       r.FormValue("altText"),
		Tags:          r.Form["tags"],
		DeviceLabel:   r.FormValue("deviceLabel"),
		LocationLabel: r.FormValue("locationLabel"),
		PrincipalID:   principal,
	}

	if raw := r.FormValue("albumId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errBadAlbumID
		}
		req.AlbumID = &id
	}

	return req, nil
}

var (
	errPayloadTooLarge = httpFieldError("file exceeds upload size limit")
	errBadAlbumID      = httpFieldError("albumId must be an integer")
)

type httpFieldError string

func (e httpFieldError) Error() string { return string(e) }

// sniffMIME falls back to content sniffing when the part carried no
// usable content type, then to the filename extension for formats
// http.DetectContentType does not know.
func sniffMIME(data []byte, filename string) string {
	detected := http.DetectContentType(data)
	if pipeline.SupportedMIME(detected) {
		return detected
	}
	switch strings.ToLower(extOf(filename)) {
	case "jpg", "jpeg":
		return pipeline.MIMEJPEG
	case "png":
		return pipeline.MIMEPNG
	case "gif":
		return pipeline.MIMEGIF
	case "webp":
		return pipeline.MIMEWebP
	}
	return detected
}

func extOf(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return filename[i+1:]
	}
	return ""
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Debug("multipart cleanup: %v", err)
		}
	}
}
