// Package database is the relational metadata store for ingested image
// assets: one row per asset, created exactly once at the end of a
// successful ingestion run.
//
// Storage keys are unique and immutable once written. Inserts are
// idempotent on the original key so a retried persistence step after a
// partial failure never creates a duplicate row.
package database
