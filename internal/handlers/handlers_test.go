package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"photo-ingest/internal/database"
	"photo-ingest/internal/ingest"
	"photo-ingest/internal/keys"
	"photo-ingest/internal/pipeline"
	"photo-ingest/internal/startup"
)

// fakeStore is an in-memory object store for handler tests.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func newTestServer(t *testing.T) (*mux.Router, *fakeStore, *database.Database) {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "assets.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := newFakeStore()
	scheme := keys.Scheme{
		OriginalPrefix:  "originals",
		ThumbnailPrefix: "thumbnails",
		DefaultFolder:   "uploads",
	}
	resolver := keys.Resolver{BaseDomain: "https://img.example.com", Scheme: scheme}
	coord := ingest.NewCoordinator(store, db, pipeline.StdCodec{}, scheme, resolver,
		pipeline.DeriveConfig{MaxOriginalDim: 1440, MaxThumbDim: 960, Quality: 85})

	h := New(db, store, coord, resolver, &startup.Config{})

	r := mux.NewRouter()
	r.HandleFunc("/readyz", h.Ready).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/images", h.Upload).Methods("POST")
	api.HandleFunc("/images/batch", h.UploadBatch).Methods("POST")
	api.HandleFunc("/images", h.ListAssets).Methods("GET")
	api.HandleFunc("/images/{id:[0-9]+}", h.GetAsset).Methods("GET")
	api.HandleFunc("/images/{id:[0-9]+}", h.DeleteAsset).Methods("DELETE")

	return r, store, db
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// multipartUpload builds a multipart request body with the given file
// parts and form fields.
func multipartUpload(t *testing.T, files [][]byte, fields map[string][]string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for i, data := range files {
		part, err := w.CreateFormFile("file", "test.jpg")
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("Failed to write form file %d: %v", i, err)
		}
	}
	for name, values := range fields {
		for _, v := range values {
			if err := w.WriteField(name, v); err != nil {
				t.Fatalf("Failed to write field %s: %v", name, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return &body, w.FormDataContentType()
}

func TestUploadRequiresPrincipal(t *testing.T) {
	router, _, _ := newTestServer(t)

	body, contentType := multipartUpload(t, [][]byte{encodeJPEG(t, 50, 50)}, nil)
	req := httptest.NewRequest("POST", "/api/images", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", rec.Code)
	}
}

func TestUploadSuccess(t *testing.T) {
	router, store, _ := newTestServer(t)

	body, contentType := multipartUpload(t, [][]byte{encodeJPEG(t, 2000, 1500)}, map[string][]string{
		"folder":      {"vacation"},
		"description": {"beach day"},
		"tags":        {"sea", "sun"},
	})
	req := httptest.NewRequest("POST", "/api/images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Principal-ID", "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var res ingest.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if res.AssetID == 0 {
		t.Error("Response should carry an asset id")
	}
	if res.Width != 1440 || res.Height != 1080 {
		t.Errorf("Dimensions = %dx%d, want 1440x1080", res.Width, res.Height)
	}
	if len(store.objects) != 2 {
		t.Errorf("Stored %d objects, want original + thumbnail", len(store.objects))
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	router, _, _ := newTestServer(t)

	body, contentType := multipartUpload(t, [][]byte{[]byte("plain text, not pixels")}, nil)
	req := httptest.NewRequest("POST", "/api/images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Principal-ID", "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	var errBody struct {
		Kind      string `json:"kind"`
		Retriable bool   `json:"retriable"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if errBody.Kind != string(ingest.KindDecodeFailure) {
		t.Errorf("Kind = %q, want %q", errBody.Kind, ingest.KindDecodeFailure)
	}
	if errBody.Retriable {
		t.Error("Decode failure should not be retriable")
	}
}

func TestUploadStorageFailure(t *testing.T) {
	router, store, _ := newTestServer(t)
	store.putErr = context.DeadlineExceeded

	body, contentType := multipartUpload(t, [][]byte{encodeJPEG(t, 50, 50)}, nil)
	req := httptest.NewRequest("POST", "/api/images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Principal-ID", "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadMissingFilePart(t *testing.T) {
	router, _, _ := newTestServer(t)

	body, contentType := multipartUpload(t, nil, map[string][]string{"folder": {"x"}})
	req := httptest.NewRequest("POST", "/api/images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Principal-ID", "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestUploadBatchPartialFailure(t *testing.T) {
	router, _, _ := newTestServer(t)

	body, contentType := multipartUpload(t,
		[][]byte{encodeJPEG(t, 50, 50), []byte("broken"), encodeJPEG(t, 60, 60)}, nil)
	req := httptest.NewRequest("POST", "/api/images/batch", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Principal-ID", "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200 on partial success: %s", rec.Code, rec.Body.String())
	}

	var res struct {
		Items []struct {
			Index  int            `json:"index"`
			Result *ingest.Result `json:"result"`
			Error  string         `json:"error"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(res.Items) != 3 {
		t.Fatalf("Got %d items, want 3", len(res.Items))
	}
	if res.Items[0].Result == nil || res.Items[2].Result == nil {
		t.Error("Good items should have results")
	}
	if res.Items[1].Error == "" {
		t.Error("Broken item should carry an error")
	}
}

func TestGetAndDeleteAsset(t *testing.T) {
	router, store, _ := newTestServer(t)

	// Ingest one asset through the upload endpoint.
	body, contentType := multipartUpload(t, [][]byte{encodeJPEG(t, 50, 50)}, nil)
	req := httptest.NewRequest("POST", "/api/images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Principal-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Upload failed: %d %s", rec.Code, rec.Body.String())
	}
	var created ingest.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode upload response: %v", err)
	}

	// Fetch it.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/images/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Get status = %d: %s", rec.Code, rec.Body.String())
	}
	var fetched struct {
		OriginalURL  string `json:"originalUrl"`
		ThumbnailURL string `json:"thumbnailUrl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("Failed to decode asset: %v", err)
	}
	if fetched.OriginalURL != created.OriginalURL {
		t.Errorf("OriginalURL = %q, want %q", fetched.OriginalURL, created.OriginalURL)
	}

	// Delete it; the row goes first, then the objects.
	delReq := httptest.NewRequest("DELETE", "/api/images/1", nil)
	delReq.Header.Set("X-Principal-ID", "user-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, delReq)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Delete status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(store.objects) != 0 {
		t.Errorf("Objects remaining after delete: %d", len(store.objects))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/images/1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Deleted asset get status = %d, want 404", rec.Code)
	}
}

func TestGetAssetNotFound(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/images/999", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rec.Code)
	}
}

func TestListAssets(t *testing.T) {
	router, _, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		body, contentType := multipartUpload(t, [][]byte{encodeJPEG(t, 40+i, 40)}, map[string][]string{
			"folder": {"album"},
		})
		req := httptest.NewRequest("POST", "/api/images", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("X-Principal-ID", "user-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("Upload %d failed: %d %s", i, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/images?folder=album&pageSize=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("List status = %d: %s", rec.Code, rec.Body.String())
	}

	var listing struct {
		TotalItems int `json:"totalItems"`
		TotalPages int `json:"totalPages"`
		Items      []struct {
			Folder string `json:"folder"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("Failed to decode listing: %v", err)
	}
	if listing.TotalItems != 3 || listing.TotalPages != 2 {
		t.Errorf("TotalItems/TotalPages = %d/%d, want 3/2", listing.TotalItems, listing.TotalPages)
	}
	if len(listing.Items) != 2 {
		t.Errorf("Page has %d items, want 2", len(listing.Items))
	}
}

func TestReadyz(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", rec.Code)
	}
}
