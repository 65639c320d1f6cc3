// Package metrics defines the Prometheus instrumentation for the photo
// ingestion service.
//
// Metrics are declared as package-level promauto variables and registered
// with the default registry at init time. The /metrics endpoint is served
// on a separate port when enabled.
package metrics
