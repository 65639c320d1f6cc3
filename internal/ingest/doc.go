// Package ingest coordinates one image's journey from validated bytes to
// two stored objects and a metadata row.
//
// The run is an explicit state machine:
//
//	Validating -> Extracting -> Deriving -> UploadingOriginal ->
//	UploadingThumbnail -> Persisting -> Done
//
// with a terminal Failed(kind) reachable from every state. Steps are
// strictly sequential; metadata extraction runs on the pre-derivative
// bytes because resizing discards the embedded tag block, and the
// thumbnail is computed from the bounded original rather than the input.
//
// The failure contract is deliberate: a failed thumbnail upload or
// metadata insert leaves already-written objects in storage with no
// referencing row. Those orphans are not rolled back here; the error
// reports which keys were written so a caller or an external
// reconciliation job can retry or issue compensating deletes.
package ingest
