// Package pipeline implements the pixel-processing half of the ingestion
// flow: derivative generation (bounded original + thumbnail) and the
// pre-upload shrink/watermark step.
//
// The geometry (scale factors, fit boxes, watermark placement) is pure
// and implemented once. Rasterization goes through the Codec interface,
// with a pure-Go implementation (StdCodec) and a libvips-backed one
// (VipsCodec) selected by configuration.
package pipeline
