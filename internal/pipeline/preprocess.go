package pipeline

import (
	"bytes"
	"fmt"
	"image/gif"

	"photo-ingest/internal/logging"
)

// PreprocessOptions configures the pre-upload shrink/watermark step.
type PreprocessOptions struct {
	// MaxWidth and MaxHeight bound the long edges before upload.
	MaxWidth  int
	MaxHeight int
	// FloorBytes triggers a re-encode when the input exceeds it even if
	// the dimensions are within bounds.
	FloorBytes int64
	// Watermark is the overlay asset; nil disables watermarking.
	Watermark []byte
	// WatermarkRatio bounds the overlay to this fraction of the host's
	// shorter dimension.
	WatermarkRatio float64
	// WatermarkMarginPx is the distance from the bottom edge.
	WatermarkMarginPx int
	// Quality is the re-encode quality factor.
	Quality int
}

// Preprocess optionally reduces an image before upload: proportional
// downscale (never upscale), optional watermark compositing, re-encode
// in the input's own MIME type.
//
// Nothing happens unless a dimension exceeds the bound, the byte size
// exceeds the floor, or a watermark is requested. Animated GIFs pass
// through untouched because a single-frame re-encode would destroy the
// animation. A broken or undecodable watermark asset does not abort the
// step; the unwatermarked frame is exported instead.
func Preprocess(codec Codec, data []byte, mimeType string, opts PreprocessOptions) ([]byte, error) {
	if mimeType == MIMEGIF && isAnimatedGIF(data) {
		logging.Debug("preprocess: animated gif, passing through unmodified")
		return data, nil
	}

	w, h, err := codec.Dimensions(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	wantWatermark := len(opts.Watermark) > 0
	needed := w > opts.MaxWidth || h > opts.MaxHeight ||
		int64(len(data)) > opts.FloorBytes || wantWatermark
	if !needed {
		return data, nil
	}

	targetW, targetH := FitBox(w, h, opts.MaxWidth, opts.MaxHeight)

	// A re-encode at unchanged dimensions still happens when only the
	// byte floor tripped.
	out, err := codec.Resize(data, mimeType, targetW, targetH, opts.Quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	if wantWatermark {
		stamped, err := applyWatermark(codec, out, mimeType, opts, targetW, targetH)
		if err != nil {
			logging.Warn("preprocess: watermark failed, exporting unwatermarked frame: %v", err)
		} else {
			out = stamped
		}
	}

	return out, nil
}

func applyWatermark(codec Codec, host []byte, mimeType string, opts PreprocessOptions, hostW, hostH int) ([]byte, error) {
	wmW, wmH, err := codec.Dimensions(opts.Watermark)
	if err != nil {
		return nil, fmt.Errorf("watermark asset not decodable: %w", err)
	}

	box := OverlayBox(hostW, hostH, wmW, wmH, opts.WatermarkRatio, opts.WatermarkMarginPx)
	return codec.Compose(host, mimeType, opts.Watermark, box, opts.Quality)
}

// isAnimatedGIF reports whether the bytes are a GIF with more than one
// frame. Non-GIF or undecodable input reports false.
func isAnimatedGIF(data []byte) bool {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return len(g.Image) > 1
}
