// Package handlers implements the HTTP surface of the ingestion
// service: the multipart upload entry points, asset lookup and listing,
// health checks, and version info.
//
// Authentication is an external collaborator: requests arrive with the
// authenticated principal id in the X-Principal-ID header, set by the
// fronting auth layer. Handlers reject requests without it but never
// validate credentials themselves.
package handlers
