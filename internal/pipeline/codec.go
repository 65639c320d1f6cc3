package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	_ "golang.org/x/image/webp" // WebP decode support
)

// Codec rasterizes image bytes. Implementations cover one target
// platform each; the surrounding geometry is platform-independent and
// lives in this package.
type Codec interface {
	// Dimensions probes the pixel dimensions without a full decode where
	// the backend allows it.
	Dimensions(data []byte) (width, height int, err error)

	// Resize decodes, scales to exactly (width, height), and re-encodes
	// in the given MIME type. Calling it with the source dimensions is a
	// plain re-encode at the given quality.
	Resize(data []byte, mimeType string, width, height, quality int) ([]byte, error)

	// Compose draws overlay scaled into box on top of the host image and
	// re-encodes in the host's MIME type.
	Compose(host []byte, mimeType string, overlay []byte, box Box, quality int) ([]byte, error)
}

// StdCodec is the pure-Go codec built on the stdlib image packages,
// disintegration/imaging for resampling, and go-webp for webp encoding.
type StdCodec struct{}

func (StdCodec) Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to probe image dimensions: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func (StdCodec) Resize(data []byte, mimeType string, width, height, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}

	return encodeImage(img, mimeType, quality)
}

func (StdCodec) Compose(host []byte, mimeType string, overlay []byte, box Box, quality int) ([]byte, error) {
	hostImg, _, err := image.Decode(bytes.NewReader(host))
	if err != nil {
		return nil, fmt.Errorf("failed to decode host image: %w", err)
	}

	overlayImg, _, err := image.Decode(bytes.NewReader(overlay))
	if err != nil {
		return nil, fmt.Errorf("failed to decode overlay image: %w", err)
	}

	ob := overlayImg.Bounds()
	if ob.Dx() != box.W || ob.Dy() != box.H {
		overlayImg = imaging.Resize(overlayImg, box.W, box.H, imaging.Lanczos)
	}

	composed := imaging.Overlay(hostImg, overlayImg, image.Pt(box.X, box.Y), 1.0)

	return encodeImage(composed, mimeType, quality)
}

// encodeImage re-encodes a decoded frame in the requested container.
func encodeImage(img image.Image, mimeType string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch mimeType {
	case MIMEJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg: %w", err)
		}
	case MIMEPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
	case MIMEGIF:
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, fmt.Errorf("failed to encode gif: %w", err)
		}
	case MIMEWebP:
		opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
		if err != nil {
			return nil, fmt.Errorf("failed to build webp encoder options: %w", err)
		}
		if err := webp.Encode(&buf, img, opts); err != nil {
			return nil, fmt.Errorf("failed to encode webp: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported content type %q", mimeType)
	}

	return buf.Bytes(), nil
}
