package ingest

import (
	"context"
	"fmt"
	"time"

	"photo-ingest/internal/database"
	"photo-ingest/internal/exif"
	"photo-ingest/internal/keys"
	"photo-ingest/internal/logging"
	"photo-ingest/internal/metrics"
	"photo-ingest/internal/pipeline"
	"photo-ingest/internal/storage"

	"github.com/google/uuid"
)

// State is one position in the ingestion state machine.
type State int

const (
	StateValidating State = iota
	StateExtracting
	StateDeriving
	StateUploadingOriginal
	StateUploadingThumbnail
	StatePersisting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "Validating"
	case StateExtracting:
		return "Extracting"
	case StateDeriving:
		return "Deriving"
	case StateUploadingOriginal:
		return "UploadingOriginal"
	case StateUploadingThumbnail:
		return "UploadingThumbnail"
	case StatePersisting:
		return "Persisting"
	case StateDone:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Persister is the slice of the metadata store the coordinator needs.
type Persister interface {
	InsertAsset(ctx context.Context, a *database.Asset) (int64, error)
}

// Request is one image submission. PrincipalID comes from the
// authentication collaborator before ingestion starts.
type Request struct {
	Data          []byte
	MIMEType      string
	Folder        string
	Description   string
	AltText       string
	Tags          []string
	DeviceLabel   string
	LocationLabel string
	AlbumID       *int64
	PrincipalID   string

	// Meta, when set, is camera metadata the submitter captured from the
	// source bytes before any client-side re-encode (which strips the tag
	// block). It takes the place of extraction from Data.
	Meta *exif.Metadata
}

// Result is the successful outcome of one run.
type Result struct {
	AssetID      int64  `json:"assetId"`
	OriginalURL  string `json:"originalUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	ByteSize     int64  `json:"byteSize"`
}

// Coordinator runs the ingestion state machine. It holds no per-run
// state; runs are independent and may execute concurrently.
type Coordinator struct {
	store    storage.ObjectStore
	db       Persister
	codec    pipeline.Codec
	scheme   keys.Scheme
	resolver keys.Resolver
	derive   pipeline.DeriveConfig

	// Overridable for deterministic tests.
	now   func() time.Time
	newID func() uuid.UUID
}

// NewCoordinator wires the pipeline's collaborators together.
func NewCoordinator(
	store storage.ObjectStore,
	db Persister,
	codec pipeline.Codec,
	scheme keys.Scheme,
	resolver keys.Resolver,
	derive pipeline.DeriveConfig,
) *Coordinator {
	return &Coordinator{
		store:    store,
		db:       db,
		codec:    codec,
		scheme:   scheme,
		resolver: resolver,
		derive:   derive,
		now:      time.Now,
		newID:    uuid.New,
	}
}

// Ingest runs one image through the full pipeline. On success the asset
// row exists and both objects are stored; on failure the returned error
// is an *Error carrying the failure kind and any keys already written.
//
// Cancellation is honored only at step boundaries: an upload that has
// started is never abandoned mid-flight.
func (c *Coordinator) Ingest(ctx context.Context, req Request) (*Result, error) {
	res, err := c.run(ctx, req)
	if err != nil {
		kind := KindStorageFailure
		if k, ok := KindOf(err); ok {
			kind = k
		}
		metrics.IngestsTotal.WithLabelValues(string(kind)).Inc()
		return nil, err
	}
	metrics.IngestsTotal.WithLabelValues("ok").Inc()
	return res, nil
}

func (c *Coordinator) run(ctx context.Context, req Request) (*Result, error) {
	// Validating: cheap rejections before any work.
	done := stepTimer(StateValidating)
	if len(req.Data) == 0 {
		done()
		return nil, failed(StateValidating, KindInvalidInput, nil,
			fmt.Errorf("empty image payload"))
	}
	if !pipeline.SupportedMIME(req.MIMEType) {
		done()
		return nil, failed(StateValidating, KindInvalidInput, nil,
			fmt.Errorf("unsupported content type %q", req.MIMEType))
	}
	ext, _ := keys.ExtForMIME(req.MIMEType)
	metrics.IngestInputBytes.Observe(float64(len(req.Data)))
	done()

	// Extracting: must run on the pre-derivative bytes, and never fails
	// the pipeline. An empty record just means null camera fields.
	done = stepTimer(StateExtracting)
	var meta exif.Metadata
	if req.Meta != nil {
		meta = *req.Meta
	} else {
		meta = exif.Extract(req.Data)
	}
	done()
	if meta.Empty() {
		logging.Debug("ingest: no camera metadata extracted")
	}

	// Deriving: decode failure is fatal. Nothing is stored yet, so no
	// cleanup is needed.
	done = stepTimer(StateDeriving)
	derived, err := pipeline.Derive(c.codec, req.Data, req.MIMEType, c.derive)
	done()
	if err != nil {
		return nil, failed(StateDeriving, KindDecodeFailure, nil, err)
	}

	pair := c.scheme.Pair(req.Folder, c.now(), c.newID(), ext)
	logging.Debug("ingest: derived %dx%d, keys %s / %s",
		derived.Width, derived.Height, pair.Original, pair.Thumbnail)

	// UploadingOriginal: on failure nothing is persisted and nothing
	// else was uploaded.
	if err := ctx.Err(); err != nil {
		return nil, failed(StateUploadingOriginal, KindStorageFailure, nil, err)
	}
	done = stepTimer(StateUploadingOriginal)
	err = c.store.Put(ctx, pair.Original, derived.Original, req.MIMEType)
	done()
	if err != nil {
		return nil, failed(StateUploadingOriginal, KindStorageFailure, nil, err)
	}

	// UploadingThumbnail: on failure the original already exists in
	// storage with no referencing row. Accepted orphan; reported, not
	// rolled back.
	if err := ctx.Err(); err != nil {
		return nil, failed(StateUploadingThumbnail, KindStorageFailure,
			[]string{pair.Original}, err)
	}
	done = stepTimer(StateUploadingThumbnail)
	err = c.store.Put(ctx, pair.Thumbnail, derived.Thumbnail, req.MIMEType)
	done()
	if err != nil {
		return nil, failed(StateUploadingThumbnail, KindStorageFailure,
			[]string{pair.Original}, err)
	}

	// Persisting: on failure both objects exist unreferenced. The insert
	// is idempotent on the original key, so a caller retry is safe.
	if err := ctx.Err(); err != nil {
		return nil, failed(StatePersisting, KindPersistenceFailure,
			[]string{pair.Original, pair.Thumbnail}, err)
	}
	asset := c.buildAsset(req, pair, derived, meta)
	done = stepTimer(StatePersisting)
	id, err := c.db.InsertAsset(ctx, asset)
	done()
	if err != nil {
		return nil, failed(StatePersisting, KindPersistenceFailure,
			[]string{pair.Original, pair.Thumbnail}, err)
	}

	logging.Info("ingest: asset %d stored (%s, %dx%d, %d bytes)",
		id, pair.Original, derived.Width, derived.Height, len(derived.Original))

	return &Result{
		AssetID:      id,
		OriginalURL:  c.resolver.URL(pair.Original, keys.ClassOriginal),
		ThumbnailURL: c.resolver.URL(pair.Thumbnail, keys.ClassThumbnail),
		Width:        derived.Width,
		Height:       derived.Height,
		ByteSize:     int64(len(derived.Original)),
	}, nil
}

// buildAsset assembles the row from the request, the derived artifacts
// and the extracted metadata. Width and height are the stored original's
// dimensions, never the input's.
func (c *Coordinator) buildAsset(req Request, pair keys.KeyPair, derived *pipeline.Derivatives, meta exif.Metadata) *database.Asset {
	asset := &database.Asset{
		OriginalKey:      pair.Original,
		ThumbnailKey:     pair.Thumbnail,
		ContentType:      req.MIMEType,
		ByteSize:         int64(len(derived.Original)),
		Width:            derived.Width,
		Height:           derived.Height,
		Folder:           c.scheme.SanitizeFolder(req.Folder),
		Description:      req.Description,
		AltText:          req.AltText,
		Tags:             req.Tags,
		OwnerPrincipalID: req.PrincipalID,
		AlbumID:          req.AlbumID,
		CreatedAt:        c.now().UTC(),

		ISO:             meta.ISO,
		ExposureSeconds: meta.ExposureSeconds,
		FNumber:         meta.FNumber,
		FocalLengthMm:   meta.FocalLengthMm,
	}

	if req.DeviceLabel != "" {
		asset.DeviceLabel = &req.DeviceLabel
	} else if label := meta.DeviceLabel(); label != "" {
		asset.DeviceLabel = &label
	}

	if req.LocationLabel != "" {
		asset.LocationLabel = &req.LocationLabel
	} else if meta.GPSLat != nil && meta.GPSLon != nil {
		label := fmt.Sprintf("%.5f,%.5f", *meta.GPSLat, *meta.GPSLon)
		asset.LocationLabel = &label
	}

	return asset
}

func failed(state State, kind Kind, written []string, err error) *Error {
	e := &Error{Kind: kind, State: state, WrittenKeys: written, Err: err}
	logging.Error("%v", e)
	return e
}

func stepTimer(state State) func() {
	start := time.Now()
	return func() {
		metrics.IngestStepDuration.WithLabelValues(state.String()).Observe(time.Since(start).Seconds())
	}
}
