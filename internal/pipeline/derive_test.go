package pipeline

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// encodeTestImage builds a gradient image of the given size encoded
// in-memory, so decoded dimensions can be checked after resizing.
func encodeTestImage(t *testing.T, width, height int, format string) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: 128,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg", "jpg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(&buf, img)
	default:
		t.Fatalf("Unsupported test image format: %s", format)
	}
	if err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func decodedDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode derivative: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestDeriveBoundsLargeJPEG(t *testing.T) {
	// 4000x3000 source: original bounded to 1440x1080, thumbnail to
	// 960x720, both axes proportional.
	data := encodeTestImage(t, 4000, 3000, "jpeg")
	cfg := DeriveConfig{MaxOriginalDim: 1440, MaxThumbDim: 960, Quality: 85}

	d, err := Derive(StdCodec{}, data, MIMEJPEG, cfg)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	if d.Width != 1440 || d.Height != 1080 {
		t.Errorf("Reported dimensions = %dx%d, want 1440x1080", d.Width, d.Height)
	}
	if w, h := decodedDims(t, d.Original); w != 1440 || h != 1080 {
		t.Errorf("Original derivative = %dx%d, want 1440x1080", w, h)
	}
	if w, h := decodedDims(t, d.Thumbnail); w != 960 || h != 720 {
		t.Errorf("Thumbnail derivative = %dx%d, want 960x720", w, h)
	}
	if len(d.Thumbnail) > len(d.Original) {
		t.Errorf("Thumbnail (%d bytes) larger than original (%d bytes)",
			len(d.Thumbnail), len(d.Original))
	}
}

func TestDeriveSmallImagePassesThrough(t *testing.T) {
	// 300x200 source fits both bounds: original must be byte-identical
	// to the input and the thumbnail equal to the original.
	data := encodeTestImage(t, 300, 200, "png")
	cfg := DeriveConfig{MaxOriginalDim: 1440, MaxThumbDim: 960, Quality: 85}

	d, err := Derive(StdCodec{}, data, MIMEPNG, cfg)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	if !bytes.Equal(d.Original, data) {
		t.Error("Original derivative should be byte-identical to input when within bounds")
	}
	if !bytes.Equal(d.Thumbnail, d.Original) {
		t.Error("Thumbnail should equal original derivative when it fits the thumbnail bound")
	}
	if d.Width != 300 || d.Height != 200 {
		t.Errorf("Reported dimensions = %dx%d, want 300x200", d.Width, d.Height)
	}
}

func TestDeriveThumbnailFromBoundedOriginal(t *testing.T) {
	// Source exceeds only the thumbnail bound: original passes through,
	// thumbnail is resized.
	data := encodeTestImage(t, 1200, 900, "jpeg")
	cfg := DeriveConfig{MaxOriginalDim: 1440, MaxThumbDim: 640, Quality: 85}

	d, err := Derive(StdCodec{}, data, MIMEJPEG, cfg)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	if !bytes.Equal(d.Original, data) {
		t.Error("Original derivative should pass through unchanged")
	}
	if w, h := decodedDims(t, d.Thumbnail); w != 640 || h != 480 {
		t.Errorf("Thumbnail derivative = %dx%d, want 640x480", w, h)
	}
}

func TestDeriveNeverUpscales(t *testing.T) {
	data := encodeTestImage(t, 100, 80, "jpeg")
	cfg := DeriveConfig{MaxOriginalDim: 1440, MaxThumbDim: 960, Quality: 85}

	d, err := Derive(StdCodec{}, data, MIMEJPEG, cfg)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if d.Width != 100 || d.Height != 80 {
		t.Errorf("Reported dimensions = %dx%d, want 100x80 (no upscaling)", d.Width, d.Height)
	}
}

func TestDeriveDecodeFailure(t *testing.T) {
	cfg := DeriveConfig{MaxOriginalDim: 1440, MaxThumbDim: 960, Quality: 85}

	tests := []struct {
		name string
		data []byte
	}{
		{"Garbage bytes", []byte("this is not an image at all")},
		{"Truncated JPEG header", []byte{0xFF, 0xD8, 0xFF}},
		{"Empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Derive(StdCodec{}, tt.data, MIMEJPEG, cfg)
			if err == nil {
				t.Fatal("Derive should fail on undecodable input")
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("Error should wrap ErrDecode, got: %v", err)
			}
		})
	}
}

func TestDerivePortraitOrientation(t *testing.T) {
	data := encodeTestImage(t, 1500, 3000, "jpeg")
	cfg := DeriveConfig{MaxOriginalDim: 1440, MaxThumbDim: 960, Quality: 85}

	d, err := Derive(StdCodec{}, data, MIMEJPEG, cfg)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if d.Width != 720 || d.Height != 1440 {
		t.Errorf("Reported dimensions = %dx%d, want 720x1440", d.Width, d.Height)
	}
	if w, h := decodedDims(t, d.Thumbnail); w != 480 || h != 960 {
		t.Errorf("Thumbnail derivative = %dx%d, want 480x960", w, h)
	}
}
