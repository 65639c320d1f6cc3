// Package exif extracts camera and exposure metadata from raw image
// bytes.
//
// Extraction is best-effort by contract: Extract never fails and never
// panics. Malformed, truncated, or tag-free input yields an empty
// Metadata record. Callers must feed it the bytes as produced by the
// capturing device; resizing or re-encoding an image discards the
// embedded tag block, so extraction has to happen before any derivative
// is generated.
package exif
