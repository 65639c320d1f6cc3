// Package storage writes image derivatives to an S3-compatible object
// store.
//
// The store is treated as an opaque key->bytes service with full-object
// PUT/overwrite semantics and no transactions. Every Put is a complete
// replace, so a retried Put with the same key and bytes is safe; the
// ingestion coordinator relies on that for its at-least-once contract.
package storage
