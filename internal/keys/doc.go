// Package keys derives object storage keys for ingested images and maps
// them back to public URLs.
//
// A single ingestion run produces two keys that share every path
// component except the leading prefix token:
//
//	originals/<folder>/<unixMillis>-<uuid>.<ext>
//	thumbnails/<folder>/<unixMillis>-<uuid>.<ext>
//
// That symmetry is load-bearing: the resolver rewrites one class's URL
// into the other's by swapping the prefix token alone, without touching
// the metadata store. URLs that do not match the expected shape (for
// example externally hosted images) are returned unchanged.
package keys
