package pipeline

import "math"

// Supported input MIME types. Anything else is rejected before the
// pipeline does any work.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEGIF  = "image/gif"
	MIMEWebP = "image/webp"
)

// SupportedMIME reports whether the declared content type is one the
// pipeline accepts.
func SupportedMIME(mimeType string) bool {
	switch mimeType {
	case MIMEJPEG, MIMEPNG, MIMEGIF, MIMEWebP:
		return true
	}
	return false
}

// Box is a placement rectangle in host-image pixel coordinates.
type Box struct {
	X, Y, W, H int
}

// FitScale returns the proportional scale factor that fits (w, h) inside
// (maxW, maxH). The factor never exceeds 1: images already within the
// bound are not upscaled.
func FitScale(w, h, maxW, maxH int) float64 {
	if w <= 0 || h <= 0 {
		return 1
	}
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	if scale >= 1 {
		return 1
	}
	return scale
}

// FitBox returns the dimensions of (w, h) scaled proportionally to fit
// inside (maxW, maxH). Aspect ratio is preserved to within one pixel of
// rounding; dimensions are never increased.
func FitBox(w, h, maxW, maxH int) (int, int) {
	scale := FitScale(w, h, maxW, maxH)
	if scale >= 1 {
		return w, h
	}
	tw := int(math.Round(float64(w) * scale))
	th := int(math.Round(float64(h) * scale))
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}

// OverlayBox computes the placement of a watermark overlay on a host
// image: the overlay is scaled proportionally so its longer edge is
// bounded by ratio times the host's shorter dimension, then anchored
// bottom-center with marginPx above the bottom edge.
func OverlayBox(hostW, hostH, overlayW, overlayH int, ratio float64, marginPx int) Box {
	short := hostW
	if hostH < short {
		short = hostH
	}
	bound := int(math.Round(float64(short) * ratio))
	if bound < 1 {
		bound = 1
	}

	w, h := FitBox(overlayW, overlayH, bound, bound)

	x := (hostW - w) / 2
	y := hostH - h - marginPx
	if y < 0 {
		y = 0
	}
	return Box{X: x, Y: y, W: w, H: h}
}
