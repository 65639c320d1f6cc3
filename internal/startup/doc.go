// Package startup handles configuration loading and startup logging for
// the photo ingestion service.
//
// Configuration is read once from the environment (optionally seeded from
// a .env file) into an immutable [Config] that is passed explicitly to
// every component; no package reads environment variables after startup.
//
// The package also owns the human-readable startup banner, build
// information injected via -ldflags, and helpers that log the server's
// registered routes and endpoints.
package startup
