package pipeline

import (
	"errors"
	"fmt"

	"photo-ingest/internal/logging"
)

// ErrDecode marks an input whose pixel data could not be decoded. This is
// fatal to the whole ingestion and distinct from storage or persistence
// failures.
var ErrDecode = errors.New("image decode failed")

// ErrEncode marks a failure to re-encode a derivative.
var ErrEncode = errors.New("image encode failed")

// DeriveConfig bounds the two derivatives.
type DeriveConfig struct {
	// MaxOriginalDim bounds both axes of the stored original.
	MaxOriginalDim int
	// MaxThumbDim bounds both axes of the thumbnail.
	MaxThumbDim int
	// Quality is the lossy re-encode quality factor.
	Quality int
}

// Derivatives holds the two byte streams produced from one input plus
// the final dimensions of the stored original. Width and Height describe
// the original derivative after any resize, not the caller's input.
type Derivatives struct {
	Original  []byte
	Thumbnail []byte
	Width     int
	Height    int
}

// Derive produces the bounded original and thumbnail derivatives.
//
// The original passes through byte-identical when it already fits the
// bound. The thumbnail is computed from the bounded original, never the
// raw input, so it can never be larger than the original; when the
// original already fits the thumbnail bound the thumbnail equals the
// original derivative and no second encode happens.
func Derive(codec Codec, data []byte, mimeType string, cfg DeriveConfig) (*Derivatives, error) {
	w, h, err := codec.Dimensions(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	origW, origH := FitBox(w, h, cfg.MaxOriginalDim, cfg.MaxOriginalDim)

	original := data
	if origW != w || origH != h {
		logging.Debug("derive: bounding original %dx%d -> %dx%d", w, h, origW, origH)
		original, err = codec.Resize(data, mimeType, origW, origH, cfg.Quality)
		if err != nil {
			return nil, fmt.Errorf("%w: original derivative: %v", ErrEncode, err)
		}
	}

	thumbW, thumbH := FitBox(origW, origH, cfg.MaxThumbDim, cfg.MaxThumbDim)

	thumbnail := original
	if thumbW != origW || thumbH != origH {
		logging.Debug("derive: thumbnail %dx%d -> %dx%d", origW, origH, thumbW, thumbH)
		thumbnail, err = codec.Resize(original, mimeType, thumbW, thumbH, cfg.Quality)
		if err != nil {
			return nil, fmt.Errorf("%w: thumbnail derivative: %v", ErrEncode, err)
		}
	}

	return &Derivatives{
		Original:  original,
		Thumbnail: thumbnail,
		Width:     origW,
		Height:    origH,
	}, nil
}
